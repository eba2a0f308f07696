// Package cli holds the bootstrap steps shared by the painel binaries:
// environment loading, logging, configuration and backend wiring.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"painel/internal/backend"
	"painel/internal/config"
	applog "painel/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.JSON = os.Getenv("LOG_FORMAT") == "json"
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, then returns a logger built
// from it. validate is Config.Validate or Config.ValidateWorker.
func Bootstrap(validate func(*config.Config) error) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	if validate != nil {
		if err := validate(cfg); err != nil {
			return cfg, logger, err
		}
	}
	return cfg, logger, nil
}

// MustBootstrap is Bootstrap for main functions: it exits on invalid configuration.
func MustBootstrap(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	cfg, logger, err := Bootstrap(validate)
	if err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend creates the data backend of the given type from cfg.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config, backendType backend.BackendType) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.Type = backendType
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", backendType, err)
	}
	return res, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
