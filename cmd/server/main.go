package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/ledger-posting-engine/internal/api"
	rediscache "github.com/sheikh-saqib/ledger-posting-engine/internal/cache/redis"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/config"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/ledger"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/logging"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/metrics"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/seed"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/storage/memory"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/storage/postgres"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type backend interface {
	interfaces.LedgerStore
	interfaces.AccountRegistry
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		closers = append(closers, db.Close)
	}

	collector := metrics.NewCollector(logger)
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithMetrics(collector),
		ledger.WithMaxAttempts(cfg.PostingMaxAttempts),
		ledger.WithPostingTimeout(cfg.PostingTimeout),
	}

	if cfg.RedisAddr != "" {
		client, err := rediscache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		closers = append(closers, client.Close)
		opts = append(opts, ledger.WithReplayCache(rediscache.NewReplayCache(client, cfg.ReplayCacheTTL)))
		logger.Info("Replay cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, logger)
		closers = append(closers, publisher.Close)
		opts = append(opts, ledger.WithPublisher(publisher, cfg.KafkaTopic))
		logger.Info("Event publishing enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	ledgerService := ledger.NewLedger(store, opts...)

	if db == nil {
		// the in-memory store starts empty on every boot
		report, err := seed.Run(ctx, store, ledgerService, seed.Options{Currencies: cfg.SeedCurrencies, AccountsPerCurrency: 2}, logger)
		if err != nil {
			return err
		}
		for _, account := range report.Accounts {
			logger.Info("Seeded account", zap.String("id", account.ID), zap.String("code", account.Code))
		}
	}

	metricsServer := collector.StartServer(cfg.MetricsAddr)

	handler := api.NewHandler(ledgerService, store, logger, cfg.AppEnv == logging.EnvProduction)
	app := api.NewApp(handler)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.HTTPAddr))
		serveErr <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-serveErr:
		logger.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := app.ShutdownWithContext(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP shutdown failed", zap.Error(shutdownErr))
	}
	if shutdownErr := collector.Shutdown(shutdownCtx, metricsServer); shutdownErr != nil {
		logger.Error("Metrics shutdown failed", zap.Error(shutdownErr))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if closeErr := closers[i](); closeErr != nil {
			logger.Warn("Close failed", zap.Error(closeErr))
		}
	}

	logger.Info("Server stopped")
	return err
}

// openStore returns the postgres store when DATABASE_URL is set and the
// in-memory store otherwise. db is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using the in-memory store")
		return memory.NewMemoryLedgerStore(), nil, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db, logger); err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	return postgres.NewPostgresLedgerStore(db), db, nil
}
