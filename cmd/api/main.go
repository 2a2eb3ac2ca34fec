package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerlens/engine/internal/api"
	"github.com/ledgerlens/engine/internal/application/service"
	"github.com/ledgerlens/engine/internal/infrastructure/config"
	"github.com/ledgerlens/engine/internal/infrastructure/logging"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open storage", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	subscriptions := service.NewSubscriptionService(repo, logger, cfg.Analysis.SubscriptionLookbackMonths)
	incomes := service.NewIncomeService(repo, logger, cfg.Analysis.IncomeMonthsBack)
	reconciler := service.NewReconcileService(repo, logger)

	server := api.NewServer(cfg, repo, subscriptions, incomes, reconciler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
