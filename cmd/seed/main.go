package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/sheikh-saqib/ledger-posting-engine/internal/config"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/ledger"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/logging"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/seed"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	currencies := flag.String("currencies", strings.Join(cfg.SeedCurrencies, ","), "comma separated currency codes")
	accounts := flag.Int("accounts", 2, "demo accounts per currency")
	balance := flag.Int64("balance", 0, "starting balance of each demo account in minor units")
	flag.Parse()

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("failed to migrate", zap.Error(err))
	}

	store := postgres.NewPostgresLedgerStore(db)
	report, err := seed.Run(ctx, store, ledger.NewLedger(store, ledger.WithLogger(logger)), seed.Options{
		Currencies:          strings.Split(*currencies, ","),
		AccountsPerCurrency: *accounts,
		StartingBalance:     *balance,
	}, logger)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}

	for _, account := range report.Accounts {
		logger.Info("account",
			zap.String("id", account.ID),
			zap.String("code", account.Code),
			zap.Bool("system", account.IsSystem))
	}
	logger.Info("seed complete", zap.Int("funded", report.Funded), zap.Int("replayed", report.Replayed))
}
