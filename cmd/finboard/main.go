package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/advisor"
	"finboard/internal/cache"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/metrics"
	"finboard/internal/report"
	"finboard/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger("finboard", cfg.LogLevel)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to create data backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	broker, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	// Close releases the store and the broker connection.
	ledgerSvc := services.NewLedgerService(result.Store, cli.Publisher(broker), recorder(collector))
	defer func() {
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Failed to close ledger service", log.FieldError, err.Error())
		}
	}()

	dashboards := cache.NewLRUCache[report.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(dashboards)
	caches.StartCleanup(ctx, cfg.CacheTTL)
	defer caches.Stop()
	reportSvc := services.NewReportService(result.Store, dashboards, cacheRecorder(collector))

	var adv advisor.Advisor
	if cfg.AdvisorEnabled() {
		gen, err := advisor.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize advisor", log.FieldError, err.Error())
			os.Exit(1)
		}
		acfg := advisor.DefaultConfig()
		acfg.Timeout = cfg.AdvisorTimeout
		adv = advisor.New(gen, acfg, advisorRecorder(collector))
		logger.Info("Advisor enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("GEMINI_API_KEY not set - advisor endpoints will return 503")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:             ledgerSvc,
		Reports:            reportSvc,
		Advisor:            adv,
		Metrics:            collector,
		Logger:             logger,
		Ready:              result.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	}()

	logger.Info("Starting finboard", "port", cfg.Port, "backend", cfg.DataBackend,
		"amqp", cfg.AMQPEnabled(), "advisor", cfg.AdvisorEnabled(), "metrics", cfg.MetricsEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error())
		cancel()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// The recorder helpers keep a nil *metrics.Collector out of the interfaces.

func recorder(c *metrics.Collector) services.Recorder {
	if c == nil {
		return nil
	}
	return c
}

func cacheRecorder(c *metrics.Collector) services.CacheRecorder {
	if c == nil {
		return nil
	}
	return c
}

func advisorRecorder(c *metrics.Collector) advisor.Recorder {
	if c == nil {
		return nil
	}
	return c
}
