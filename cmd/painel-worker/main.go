package main

import (
	"context"
	"errors"
	"os"

	"painel/internal/amqp"
	"painel/internal/backend"
	"painel/internal/cli"
	"painel/internal/config"
	applog "painel/internal/log"
	"painel/internal/storage"
	"painel/internal/worker"
)

func main() {
	cfg, logger := cli.MustBootstrap(func(c *config.Config) error {
		return errors.Join(c.Validate(), c.ValidateWorker())
	})
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting painel-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	mirror, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer mirror.Close()

	sheets, err := cli.OpenBackend(ctx, logger, cfg, backend.SheetsBackend)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	defer sheets.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheets.Source, mirror, logger)

	// A failed first sync is not fatal: the ticker and the queue retry it.
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", applog.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeRefresh(ctx, syncWorker.HandleRefreshMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			cancel()
		}
	}()

	syncWorker.RunPeriodic(ctx, cfg.SyncInterval)
	logger.Info("Worker shutdown complete")
}
