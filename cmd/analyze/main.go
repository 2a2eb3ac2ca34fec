package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerlens/engine/internal/application/service"
	"github.com/ledgerlens/engine/internal/infrastructure/config"
	"github.com/ledgerlens/engine/internal/infrastructure/logging"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// analyze runs the full pipeline once for every user and exits. Meant
// for cron; each run is idempotent so overlapping invocations are safe.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	workers := flag.Int("workers", 0, "concurrent users (0 = config value)")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	if *workers > 0 {
		cfg.Analysis.BatchWorkers = *workers
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "analyze")

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open storage", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	subscriptions := service.NewSubscriptionService(repo, logger, cfg.Analysis.SubscriptionLookbackMonths)
	incomes := service.NewIncomeService(repo, logger, cfg.Analysis.IncomeMonthsBack)
	reconciler := service.NewReconcileService(repo, logger)
	runner := service.NewRunner(repo, subscriptions, incomes, reconciler, logger, cfg.Analysis.BatchWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processed, failed, err := runner.RunAll(ctx)
	if err != nil {
		logger.Error("batch run aborted", "processed", processed, "failed", failed, "error", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
