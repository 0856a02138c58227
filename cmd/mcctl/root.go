package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/missioncontrol/internal/app"
	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/config"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var (
	version      = "0.1.0"
	outputFormat string
	rootCmd      = &cobra.Command{
		Use:   "mcctl",
		Short: "Mission Control admin CLI",
		Long: `mcctl operates directly on the Mission Control store configured by the
MC_* environment variables. It is intended for operators and cron jobs:
generate an encryption key, apply seed files, reset quotas whose period
has elapsed and inspect bookings and metrics.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatText, "Output format: text, json")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case formatText, formatJSON:
			return nil
		default:
			return fmt.Errorf("unknown output format %q", outputFormat)
		}
	}
}

// withServices loads configuration, opens the store and runs fn against the
// wired services. The store is closed when fn returns.
func withServices(ctx context.Context, fn func(*app.Services) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	cipher, err := app.NewCipher(cfg, logger)
	if err != nil {
		return err
	}
	return fn(app.NewServices(store, cipher, application.SystemClock{}, logger))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
