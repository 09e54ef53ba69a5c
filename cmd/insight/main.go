package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/V4T54L/visitor-insight/internal/adapter/api/handler"
	"github.com/V4T54L/visitor-insight/internal/adapter/objectstore/s3store"
	"github.com/V4T54L/visitor-insight/internal/adapter/repository/parquet"
	"github.com/V4T54L/visitor-insight/internal/adapter/repository/postgres"
	"github.com/V4T54L/visitor-insight/internal/domain"
	"github.com/V4T54L/visitor-insight/internal/pkg/config"
	"github.com/V4T54L/visitor-insight/internal/pkg/logger"
	"github.com/V4T54L/visitor-insight/internal/usecase"

	_ "github.com/lib/pq"
)

func main() {
	visitorID := flag.String("visitor", "", "fullVisitorId to look up (digits only)")
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only the answer.
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := s3store.NewStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to initialize object store", "error", err)
		os.Exit(1)
	}
	loader := parquet.NewLoader(store, log, nil, cfg.PartFilePattern, cfg.ReadTimeout, parquet.Columns(cfg.Columns))
	reducer := usecase.NewReducer(usecase.NewClassifier(cfg.AddressChangeActions, cfg.PlacedOrderAction), log)
	uc := usecase.NewVisitorInsightUseCase(loader, reducer, log, cfg.SessionsPrefix, cfg.TransactionsPrefix, cfg.RequestTimeout)

	if cfg.TransactionsSource == config.TransactionsSourcePostgres {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		uc.WithOrderLookup(postgres.NewTransactionRepository(db, log, cfg.PostgresTransactionsTable))
	}

	insight, err := uc.Lookup(ctx, *visitorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", domain.KindOf(err), err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(handler.NewInsightResponse(insight)); err != nil {
		log.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}
