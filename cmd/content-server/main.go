// cmd/content-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"restaurant-site/internal/api"
	"restaurant-site/internal/cache"
	"restaurant-site/internal/common/config"
	"restaurant-site/internal/common/database"
	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/common/observability"
	"restaurant-site/internal/feeds/menu"
	"restaurant-site/internal/feeds/reviews"
	"restaurant-site/internal/proxy/googlereviews"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting content server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("cacheBackend", cfg.Cache.Backend),
	)

	obs := observability.New("content-server", log)
	defer obs.Shutdown()

	ctx := context.Background()
	checks := map[string]api.Checker{}

	// --- Durable cache backend ---
	var (
		redis *database.RedisClient
		pg    *database.PostgresClient
	)
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		checks["redis"] = redis.Ping
		zapLog.Info("Redis connected successfully")

	case config.CacheBackendPostgres:
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	store, err := cache.FromConfig(cfg.Cache, redis, pg)
	if err != nil {
		zapLog.Fatal("cache store init failed", zap.Error(err))
	}
	if ps, ok := store.(*cache.PostgresStore); ok {
		if err := ps.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("cache table init failed", zap.Error(err))
		}
	}
	if _, ok := store.(cache.NopStore); ok {
		store = nil
	}

	// --- Feeds ---
	fetcher := commonhttp.NewFetcher(
		commonhttp.NewClient(30*time.Second),
		commonhttp.WithBaseDelay(config.GetDuration(cfg.Fetch.BaseDelay)),
	)
	cacheTTL := config.GetDuration(cfg.Cache.TTL)

	reviewsFeed, err := reviews.NewService(reviews.Config{
		Reviews:  cfg.Reviews,
		Fetch:    cfg.Fetch,
		CacheTTL: cacheTTL,
	}, reviews.Deps{
		Fetcher:  fetcher,
		Store:    store,
		Logger:   log,
		Recorder: obs,
	})
	if err != nil {
		zapLog.Fatal("reviews feed init failed", zap.Error(err))
	}

	menuFeed, err := menu.NewService(menu.Config{
		Menu:     cfg.Menu,
		Fetch:    cfg.Fetch,
		CacheTTL: cacheTTL,
	}, menu.Deps{
		Fetcher:  fetcher,
		Store:    store,
		Logger:   log,
		Recorder: obs,
	})
	if err != nil {
		zapLog.Fatal("menu feed init failed", zap.Error(err))
	}

	var proxy http.Handler
	if cfg.Proxy.Enabled {
		proxy = googlereviews.NewHandler(googlereviews.HandlerOptions{
			Config:        cfg.Proxy,
			DefaultAPIKey: cfg.Reviews.APIKey,
			Fetcher:       fetcher,
			Logger:        log,
		})
	}

	router := api.NewRouter(api.Options{
		Reviews:        reviewsFeed,
		Menu:           menuFeed,
		Proxy:          proxy,
		Checks:         checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Content server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("content server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Content server stopped gracefully")
}
