package main

import (
	"os"

	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/sheets/google"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger("finboard-worker", cfg.LogLevel).WithComponent(log.ComponentWorker)
	cli.WarnIfIsolated(logger, cfg)

	if !cfg.SheetsEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the sync worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to create data backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	mirror, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		LedgerSheet:     cfg.GoogleSheetName,
		RemindersSheet:  cfg.GoogleRemindersSheetName,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}

	broker, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	var consumer worker.Consumer
	if broker != nil {
		defer broker.Close()
		consumer = broker
	} else {
		logger.Info("Running periodic sync only", "interval", cfg.SyncInterval)
	}

	w := worker.NewSyncWorker(result.Store, mirror, cfg.SyncInterval)
	logger.Info("Starting sync worker", "spreadsheet_id", cfg.GoogleSpreadsheetID, "interval", cfg.SyncInterval)
	if err := w.Run(ctx, consumer); err != nil {
		logger.Error("Sync worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Sync worker stopped")
}
