package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Listing backends
const (
	BackendAPI           = "api"
	BackendElasticsearch = "elasticsearch"
)

// Cache stores
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the directory service
type Config struct {
	Server        ServerConfig
	Upstream      UpstreamConfig
	Listing       ListingConfig
	Elasticsearch ElasticsearchConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Catalog       CatalogConfig
	Cleanup       CleanupConfig
	Log           LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// UpstreamConfig holds the remote marketplace API configuration
type UpstreamConfig struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	RetryMax int
}

// ListingConfig selects where listings come from
type ListingConfig struct {
	Backend  string
	PageSize int
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	// MaxResultWindow mirrors the index's max_result_window setting
	MaxResultWindow int
}

// CacheConfig holds listing cache configuration
type CacheConfig struct {
	Store  string
	TTL    time.Duration
	Prefix string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN disables bookmarks.
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
}

// CatalogConfig holds region catalog configuration
type CatalogConfig struct {
	Dir    string
	Region string
}

// CleanupConfig holds cache sweeper configuration
type CleanupConfig struct {
	Interval time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := LoadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Upstream: UpstreamConfig{
			URL:      getEnv("UPSTREAM_URL", "http://localhost:5000"),
			APIKey:   getEnv("UPSTREAM_API_KEY", ""),
			Timeout:  getEnvAsDuration("UPSTREAM_TIMEOUT", 15*time.Second),
			RetryMax: getEnvAsInt("UPSTREAM_RETRY_MAX", 2),
		},
		Listing: ListingConfig{
			Backend:  getEnv("LISTING_BACKEND", BackendAPI),
			PageSize: getEnvAsInt("LISTING_PAGE_SIZE", 12),
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses:       getEnvAsList("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:        getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:        getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:           getEnv("ELASTICSEARCH_INDEX", "professionals"),
			MaxResultWindow: getEnvAsInt("ELASTICSEARCH_MAX_RESULT_WINDOW", 10000),
		},
		Cache: CacheConfig{
			Store:  getEnv("CACHE_STORE", CacheMemory),
			TTL:    getEnvAsDuration("CACHE_TTL", time.Minute),
			Prefix: getEnv("CACHE_PREFIX", "directory:listing:"),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Catalog: CatalogConfig{
			Dir:    getEnv("CATALOG_DIR", "./catalog"),
			Region: getEnv("CATALOG_REGION", "kamshet"),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Listing.Backend {
	case BackendAPI:
		if _, err := url.ParseRequestURI(c.Upstream.URL); err != nil {
			return fmt.Errorf("invalid upstream URL %q: %w", c.Upstream.URL, err)
		}
	case BackendElasticsearch:
		if len(c.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("elasticsearch addresses are required")
		}
		if c.Elasticsearch.MaxResultWindow < c.Listing.PageSize {
			return fmt.Errorf("elasticsearch max result window %d is smaller than the page size", c.Elasticsearch.MaxResultWindow)
		}
	default:
		return fmt.Errorf("unknown listing backend: %q", c.Listing.Backend)
	}

	if c.Listing.PageSize < 1 {
		return fmt.Errorf("invalid listing page size: %d", c.Listing.PageSize)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Upstream.RetryMax < 0 {
		return fmt.Errorf("invalid upstream retry max: %d", c.Upstream.RetryMax)
	}

	switch c.Cache.Store {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache store: %q", c.Cache.Store)
	}
	if c.Cache.Store != CacheNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
