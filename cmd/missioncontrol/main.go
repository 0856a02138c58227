package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httphandler "github.com/ericfisherdev/missioncontrol/internal/adapter/driving/http"
	"github.com/ericfisherdev/missioncontrol/internal/app"
	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars or a missing key).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store_driver", cfg.StoreDriver,
		"data_dir", cfg.DataDir,
		"key_source", cfg.KeySource,
		"seed_file", cfg.SeedFile,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the document store (runs migrations for sqlite).
	store, err := app.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	// 4. Wire services.
	cipher, err := app.NewCipher(cfg, slog.Default())
	if err != nil {
		return err
	}
	svc := app.NewServices(store, cipher, application.SystemClock{}, slog.Default())

	// 5. Apply the seed file, if any.
	if cfg.SeedFile != "" {
		result, err := svc.ApplySeedFile(ctx, cfg.SeedFile)
		if err != nil {
			return err
		}
		slog.Info("seed applied",
			"file", cfg.SeedFile,
			"resources_created", result.ResourcesCreated,
			"resources_skipped", result.ResourcesSkipped,
			"quotas_applied", result.QuotasApplied,
		)
	}

	// 6. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(svc.Vault, svc.Catalog, svc.Scheduler, svc.Ledger, svc.Quotas, svc.Metrics, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("mission control started", "listen_addr", cfg.ListenAddr, "store_driver", cfg.StoreDriver)

	// 7. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 8. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
