package main

import (
	"context"
	"os"
	"time"

	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger("reminder-worker", cfg.LogLevel).WithComponent(log.ComponentReminders)
	cli.WarnIfIsolated(logger, cfg)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to create data backend", log.FieldError, err.Error())
		os.Exit(1)
	}

	broker, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	ledgerSvc := services.NewLedgerService(result.Store, cli.Publisher(broker), nil)
	defer ledgerSvc.Close()

	processor := services.NewReminderProcessor(result.Store, ledgerSvc, cfg.ReminderHorizon)
	logger.Info("Starting reminder worker", "interval", cfg.ReminderInterval, "horizon", cfg.ReminderHorizon)

	process := func() {
		runCtx, done := context.WithTimeout(ctx, time.Minute)
		defer done()
		n, err := processor.ProcessDueReminders(runCtx, time.Now())
		if err != nil {
			logger.Error("Failed to process due reminders", log.FieldError, err.Error())
			return
		}
		if n > 0 {
			logger.Info("Published due reminders", "count", n)
		}
	}

	process()
	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reminder worker stopped")
			return
		case <-ticker.C:
			process()
		}
	}
}
