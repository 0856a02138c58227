package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/missioncontrol/internal/app"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print a governance snapshot",
	Long: `Print counts of resources, bookings and credentials, cost totals and
quotas at or past their warning threshold.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *app.Services) error {
			return runMetrics(cmd.Context(), cmd.OutOrStdout(), svc)
		})
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(ctx context.Context, w io.Writer, svc *app.Services) error {
	m, err := svc.Metrics.Snapshot(ctx)
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, m)
	}

	fmt.Fprintf(w, "resources:   %d total, %d available\n", m.Resources.Total, m.Resources.Available)
	fmt.Fprintf(w, "bookings:    %d total, %d active, %d today, %d upcoming\n",
		m.Bookings.Total, m.Bookings.Active, m.Bookings.Today, len(m.Bookings.Upcoming))
	fmt.Fprintf(w, "credentials: %d total, %d used\n", m.Credentials.Total, m.Credentials.RecentlyUsed)
	fmt.Fprintf(w, "costs:       %.2f total\n", m.Costs.Total)
	fmt.Fprintf(w, "quotas:      %d total, %d warning, %d exceeded\n", m.Quotas.Total, m.Quotas.Warning, m.Quotas.Exceeded)
	for _, q := range m.Quotas.Details {
		if _, err := fmt.Fprintf(w, "  %s  %s  %.1f%%\n", q.ID, q.State, q.UsagePercent*100); err != nil {
			return err
		}
	}
	return nil
}
