package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/visitor-insight/internal/adapter/api"
	"github.com/V4T54L/visitor-insight/internal/adapter/metrics"
	"github.com/V4T54L/visitor-insight/internal/adapter/objectstore/s3store"
	"github.com/V4T54L/visitor-insight/internal/adapter/repository/parquet"
	"github.com/V4T54L/visitor-insight/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/visitor-insight/internal/adapter/repository/redis"
	"github.com/V4T54L/visitor-insight/internal/pkg/config"
	"github.com/V4T54L/visitor-insight/internal/pkg/logger"
	"github.com/V4T54L/visitor-insight/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const redisHealthInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewInsightMetrics()
	checks := map[string]api.Check{}

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Object Store and Dataset Loader ---
	store, err := s3store.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize object store", "error", err)
		os.Exit(1)
	}
	loader := parquet.NewLoader(store, logger, m, cfg.PartFilePattern, cfg.ReadTimeout, parquet.Columns(cfg.Columns))

	// --- Optional Redis Listing Cache ---
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, listings will be fetched from storage", "error", err)
		}

		listingCache := redisrepo.NewListingCache(redisClient, logger)
		go listingCache.StartHealthCheck(ctx, redisHealthInterval)
		loader.WithListingCache(listingCache, cfg.ListingCacheTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// --- Use Case ---
	reducer := usecase.NewReducer(usecase.NewClassifier(cfg.AddressChangeActions, cfg.PlacedOrderAction), logger)
	insightUseCase := usecase.NewVisitorInsightUseCase(loader, reducer, logger, cfg.SessionsPrefix, cfg.TransactionsPrefix, cfg.RequestTimeout)

	if cfg.TransactionsSource == config.TransactionsSourcePostgres {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		insightUseCase.WithOrderLookup(postgres.NewTransactionRepository(db, logger, cfg.PostgresTransactionsTable))
		checks["postgres"] = db.PingContext
		logger.Info("reading transactions from postgres", "table", cfg.PostgresTransactionsTable)
	}

	// --- Start Admin and Metrics Server ---
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(prometheus.DefaultGatherer, checks, logger),
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize API Server ---
	apiServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      api.NewRouter(cfg, logger, m, insightUseCase),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting insight api server", "addr", apiServer.Addr,
			"bucket", cfg.Storage.Bucket,
			"sessions_prefix", cfg.SessionsPrefix,
			"transactions_source", cfg.TransactionsSource,
		)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("insight api server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("insight api server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
