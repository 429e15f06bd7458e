// Command ledger-server serves the ledger contract over HTTP, backed by the
// sqlite or memory store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bearbudget/internal/backend"
	"bearbudget/internal/cli"
	ledgerhttp "bearbudget/internal/http"
	"bearbudget/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting ledger-server", "port", cfg.Port, "backend", cfg.LedgerBackend)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if !bcfg.Type.HasStore() {
		logger.Error("ledger-server needs a local store", "backend", bcfg.Type)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateStore(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err)
		os.Exit(1)
	}

	srv := ledgerhttp.NewServer(":"+cfg.Port, res.Store, ledgerhttp.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger: log.New(log.Config{
			Level:     log.ParseLevel(cfg.LogLevel),
			Component: log.ComponentHTTP,
		}),
	})

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Store cleanup failed", "error", err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
