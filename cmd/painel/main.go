package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"painel/internal/amqp"
	"painel/internal/backend"
	"painel/internal/cache"
	"painel/internal/cli"
	"painel/internal/config"
	apphttp "painel/internal/http"
	applog "painel/internal/log"
	"painel/internal/services"
)

func main() {
	cfg, logger := cli.MustBootstrap((*config.Config).Validate)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res, err := cli.OpenBackend(ctx, logger, cfg, backend.BackendType(cfg.DataBackend))
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	// Refreshes are announced to the sync worker when a broker is configured.
	// The dashboard keeps working without one.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, refreshes stay local", applog.FieldError, err)
		} else {
			publisher = client
			defer client.Close()
		}
	}

	svc := services.NewDashboardService(services.Options{
		Source:    res.Source,
		Settings:  res.Settings,
		Publisher: publisher,
		Backend:   cfg.DataBackend,
		Defaults:  cfg.PipelineParams(),
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
	})

	if cfg.CacheTTL > 0 {
		cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache))
		cacheManager.Register(svc.Cache())
		cacheManager.StartCleanup(cfg.CacheTTL)
		defer cacheManager.Stop()
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.ServerOptions{Logger: logger})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting painel server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	<-stopped
	logger.Info("Server stopped gracefully")
}
