package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, BackendAPI, cfg.Listing.Backend)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 2, cfg.Upstream.RetryMax)
	assert.Equal(t, CacheMemory, cfg.Cache.Store)
	assert.Equal(t, "kamshet", cfg.Catalog.Region)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LISTING_BACKEND", "elasticsearch")
	t.Setenv("ELASTICSEARCH_ADDRESSES", "http://es1:9200, http://es2:9200")
	t.Setenv("CACHE_STORE", "redis")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("UPSTREAM_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, CacheRedis, cfg.Cache.Store)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout, "unparsable values fall back to defaults")
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nSERVER_PORT=7000\n"), 0o644))

	t.Setenv("ENV_FILE", path)
	t.Setenv("SERVER_PORT", "7001")
	// registered so the variable set by the file is removed after the test
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Upstream: UpstreamConfig{URL: "http://upstream", Timeout: time.Second},
			Listing:  ListingConfig{Backend: BackendAPI, PageSize: 12},
			Cache:    CacheConfig{Store: CacheMemory, TTL: time.Minute},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"port":         func(c *Config) { c.Server.Port = 0 },
		"backend":      func(c *Config) { c.Listing.Backend = "solr" },
		"upstream url": func(c *Config) { c.Upstream.URL = "" },
		"es addresses": func(c *Config) { c.Listing.Backend = BackendElasticsearch },
		"page size":    func(c *Config) { c.Listing.PageSize = 0 },
		"es window": func(c *Config) {
			c.Listing.Backend = BackendElasticsearch
			c.Elasticsearch = ElasticsearchConfig{Addresses: []string{"http://es:9200"}, MaxResultWindow: 5}
		},
		"timeout":     func(c *Config) { c.Upstream.Timeout = 0 },
		"retry max":   func(c *Config) { c.Upstream.RetryMax = -1 },
		"cache store": func(c *Config) { c.Cache.Store = "memcached" },
		"redis addr":  func(c *Config) { c.Cache.Store = CacheRedis },
		"cache ttl":   func(c *Config) { c.Cache.TTL = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
