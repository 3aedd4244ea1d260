// cmd/librarydesk/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"librarydesk/internal/chaos"
	"librarydesk/internal/circulation"
	"librarydesk/internal/config"
	"librarydesk/internal/console"
	"librarydesk/internal/eventstore"
	"librarydesk/internal/logger"
	"librarydesk/internal/observability"
	"librarydesk/internal/storage"
)

const version = "0.1.0"

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logr.Sync()

	ctx := context.Background()

	shutdown, err := observability.InitTracing(ctx, logr, observability.TracingConfig{
		ServiceName:  "librarydesk",
		Version:      version,
		OTLPEndpoint: cfg.OTLPEndpoint,
		TraceFile:    cfg.TraceFile,
	})
	if err != nil {
		logr.Warn("tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logr.Warn("failed to shut down tracing", "error", err)
		}
	}()

	shutdownMetrics, err := observability.InitMetrics(ctx, logr, observability.MetricsConfig{
		ServiceName:  "librarydesk",
		Version:      version,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		logr.Warn("metrics disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logr.Warn("failed to shut down metrics", "error", err)
		}
	}()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Error("library desk stopped", "error", err)
		exitCode = 1
	}
}

func run(ctx context.Context, cfg config.Config, logr *logger.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	defer closeStore()

	if cfg.ChaosEnabled() {
		seed := cfg.ChaosSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		logr.Warn("chaos fault injection enabled", "load_failure", cfg.ChaosLoadFailure, "save_failure", cfg.ChaosSaveFailure, "latency", cfg.ChaosLatency, "seed", seed)
		store = chaos.Wrap(store, seed, chaos.DrillFaults(cfg.ChaosLoadFailure, cfg.ChaosSaveFailure, cfg.ChaosLatency)...)
	}

	lib := circulation.NewService(eventstore.NewEventStore(), logr)
	logr.Info("library desk started", "storage", cfg.Storage, "data_file", cfg.DataFile)
	return console.New(lib, store, os.Stdin, os.Stdout, logr).Run(ctx)
}

func openStore(ctx context.Context, cfg config.Config, logr *logger.Logger) (storage.Store, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, cfg.ConnectAttempts, cfg.ConnectInterval)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logr.Info("connected to database")
		return store, func() { db.Close() }, nil
	case config.StorageFile:
		return storage.NewFileStore(cfg.DataFile), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
