package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bizscreen/console/platform/go/cache"
	"github.com/bizscreen/console/platform/go/gcp"
	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/metrics"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "console-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	b := backends{pings: map[string]func(ctx context.Context) error{}}

	if cfg.DatabaseURL != "" {
		pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
			ConnString:      cfg.DatabaseURL,
			ApplicationName: "console-api",
			ConnectAttempts: 5,
		})
		if err != nil {
			logger.Fatal("init postgres pool", zap.Error(err))
		}
		defer persistence.ClosePool(pool)
		metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool)
		b.pool = pool
		b.pings["postgres"] = pool.Ping
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("init redis", zap.Error(err))
		}
		defer client.Close()
		b.kv = client.KV("console:" + cfg.EnvKey + ":")
		b.pings["redis"] = client.Ping
	} else {
		logger.Warn("REDIS_URL not set; ephemeral state is kept in process memory")
		b.kv = cache.NewMemoryKV(nil)
	}

	switch cfg.StorageBackend {
	case "gcs":
		client, err := gcp.NewStorageClient(ctx, gcp.Credentials{File: cfg.GCPCredentialsFile, ProjectID: cfg.GCPProjectID})
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		defer client.Close()
		b.store = storage.NewGCSStore(client, cfg.StorageBucket, cfg.StoragePublicBase)
	case "local":
		b.store = storage.NewLocalStore(cfg.StorageLocalDir, cfg.StorageBucket, cfg.StoragePublicBase)
	default:
		logger.Fatal("invalid STORAGE_BACKEND (use gcs or local)", zap.String("backend", cfg.StorageBackend))
	}

	a, err := newApp(cfg, b, logger)
	if err != nil {
		logger.Fatal("wire services", zap.Error(err))
	}
	authMiddleware, err := buildAuthMiddleware(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init auth", zap.Error(err))
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: newRouter(cfg, routerDeps{
			app:         a,
			auth:        authMiddleware,
			pings:       b.pings,
			gatherer:    prometheus.DefaultGatherer,
			httpMetrics: metrics.NewHTTP(prometheus.DefaultRegisterer),
		}, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
