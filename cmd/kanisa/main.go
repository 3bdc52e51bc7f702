package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kanisa/internal/backend"
	"kanisa/internal/config"
	"kanisa/internal/core"
	apphttp "kanisa/internal/http"
	"kanisa/internal/ledger"
	applog "kanisa/internal/log"
	"kanisa/internal/rates"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	reporting := core.CurrencyCode(cfg.ReportingCurrency).Normalized()

	var source rates.RateSource
	switch cfg.RateSource {
	case "http":
		source = rates.NewHTTPSource(cfg.RatesURL, cfg.RateTimeout)
		logger.Info("Using HTTP rate source", "url", cfg.RatesURL)
	default:
		var err error
		source, err = rates.ParseStaticTable(cfg.RatesTable, reporting)
		if err != nil {
			logger.Error("Failed to parse static rate table", "error", err)
			os.Exit(1)
		}
		logger.Info("Using static rate table")
	}

	result, err := backend.Create(context.Background(), backend.Config{
		Type:         backend.Type(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	svc := ledger.NewService(result.Store, rates.NewNormalizer(reporting, source), result.Publisher)
	srv := apphttp.NewServer(":"+cfg.Port, svc, result.Ready)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting kanisa server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"reporting_currency", string(reporting))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
