// Package cli holds the start-up steps shared by cmd/finboard,
// cmd/finboard-worker and cmd/reminder-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/config"
	"finboard/internal/log"
	"finboard/internal/services"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and installs
// it as the slog default. Unknown levels fall back to info with a warning.
func SetupLogger(component, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: component})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err.Error())
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads the environment and validates it. The caller exits on error.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// OpenBackend creates the ledger store selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
}

// ConnectAMQP returns the broker client, or nil when AMQP_URL is unset.
func ConnectAMQP(logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled - ledger events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// Publisher turns an optional client into the service's publisher, keeping
// the interface nil when there is no broker.
func Publisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
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

// WarnIfIsolated notes that a worker on the memory backend cannot see the
// API's data.
func WarnIfIsolated(logger *log.Logger, cfg *config.Config) {
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Worker is using the memory backend; it will not see ledger data written by the API",
			"data_backend", cfg.DataBackend)
	}
}
