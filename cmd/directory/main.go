package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/api"
	"github.com/terra-clan/build-directory/internal/cache"
	"github.com/terra-clan/build-directory/internal/catalog"
	"github.com/terra-clan/build-directory/internal/cleanup"
	"github.com/terra-clan/build-directory/internal/config"
	"github.com/terra-clan/build-directory/internal/listing"
	"github.com/terra-clan/build-directory/internal/logger"
	"github.com/terra-clan/build-directory/internal/services"
	"github.com/terra-clan/build-directory/internal/storage"
	"github.com/terra-clan/build-directory/pkg/client"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	log.Info("starting directory",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("backend", cfg.Listing.Backend),
		zap.String("cache", cfg.Cache.Store),
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	registry := services.NewRegistry()

	// Marketplace client
	market := client.NewClient(cfg.Upstream.URL,
		client.WithAPIKey(cfg.Upstream.APIKey),
		client.WithTimeout(cfg.Upstream.Timeout),
		client.WithRetryMax(cfg.Upstream.RetryMax),
		client.WithLogger(log.Named("upstream")),
	)
	registry.Register(services.NewCheckerFunc("upstream", market.Health))

	// Listing backend
	var fetcher listing.Fetcher
	switch cfg.Listing.Backend {
	case config.BackendElasticsearch:
		es, err := listing.NewESFetcher(listing.ESConfig{
			Addresses:       cfg.Elasticsearch.Addresses,
			Username:        cfg.Elasticsearch.Username,
			Password:        cfg.Elasticsearch.Password,
			Index:           cfg.Elasticsearch.Index,
			PageSize:        cfg.Listing.PageSize,
			MaxResultWindow: cfg.Elasticsearch.MaxResultWindow,
		}, log)
		if err != nil {
			log.Fatal("failed to create elasticsearch fetcher", zap.Error(err))
		}
		registry.Register(es)
		fetcher = es
	default:
		fetcher = listing.NewAPIFetcher(market, log)
	}

	// Listing cache
	var sweepers []cleanup.Sweeper
	var listingCache api.ListingCache
	switch cfg.Cache.Store {
	case config.CacheMemory:
		store := cache.NewMemoryStore(cfg.Cache.TTL)
		sweepers = append(sweepers, store)
		cached := listing.NewCachedFetcher(fetcher, store, log)
		fetcher, listingCache = cached, cached
	case config.CacheRedis:
		store, err := cache.NewRedisStore(initCtx, cache.RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Cache.Prefix,
			TTL:      cfg.Cache.TTL,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer store.Close()
		registry.Register(store)
		cached := listing.NewCachedFetcher(fetcher, store, log)
		fetcher, listingCache = cached, cached
	}

	// Bookmarks (optional)
	var bookmarks storage.BookmarkRepository
	if cfg.Database.DSN != "" {
		log.Info("running database migrations", zap.String("dir", cfg.Database.MigrationsDir))
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{DSN: cfg.Database.DSN})
		if err != nil {
			log.Fatal("failed to create database repository", zap.Error(err))
		}
		defer repo.Close()
		registry.Register(repo)
		bookmarks = repo
		log.Info("database connected successfully")
	} else {
		log.Warn("DATABASE_DSN not set, bookmarks disabled")
	}

	// Region catalog
	catalogs := catalog.NewLoader(log)
	if err := catalogs.LoadFromDir(cfg.Catalog.Dir); err != nil {
		log.Warn("failed to load catalog", zap.String("dir", cfg.Catalog.Dir), zap.Error(err))
	}
	if catalogs.Get(cfg.Catalog.Region) == nil {
		log.Warn("catalog region not loaded, raw values will be shown", zap.String("region", cfg.Catalog.Region))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	var cleanerDone <-chan struct{}
	if len(sweepers) > 0 {
		cleanerDone = cleanup.NewCleaner(cfg.Cleanup.Interval, log, sweepers...).Start(ctx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Deps{
		Fetcher:      fetcher,
		ListingCache: listingCache,
		Marketplace:  market,
		Bookmarks:    bookmarks,
		Catalogs:     catalogs,
		Region:       cfg.Catalog.Region,
		Registry:     registry,
		Log:          log,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()
	if cleanerDone != nil {
		<-cleanerDone
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("directory stopped")
}
