package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/missioncontrol/internal/app"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

var quotaAgentID string

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and reset usage quotas",
}

var quotaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotas with their usage and state",
	Example: `  mcctl quota list
  mcctl quota list --agent agent-7 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *app.Services) error {
			return runQuotaList(cmd.Context(), cmd.OutOrStdout(), svc, quotaAgentID)
		})
	},
}

var quotaResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Zero a quota's usage and start a new period",
	Example: `  mcctl quota reset global:cost
  mcctl quota reset agent-7:tokens`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *app.Services) error {
			return runQuotaReset(cmd.Context(), cmd.OutOrStdout(), svc, args[0])
		})
	},
}

var quotaResetDueCmd = &cobra.Command{
	Use:   "reset-due",
	Short: "Reset every quota whose period has elapsed",
	Long: `Reset every quota whose period ended at or before now. Run it from cron
or a systemd timer; the server keeps no reset timers of its own.`,
	Example: `  */15 * * * * mcctl quota reset-due`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *app.Services) error {
			return runQuotaResetDue(cmd.Context(), cmd.OutOrStdout(), svc, time.Now().UTC())
		})
	},
}

func init() {
	quotaListCmd.Flags().StringVar(&quotaAgentID, "agent", "", "Only quotas that apply to this agent (its own plus global)")

	quotaCmd.AddCommand(quotaListCmd, quotaResetCmd, quotaResetDueCmd)
	rootCmd.AddCommand(quotaCmd)
}

func runQuotaList(ctx context.Context, w io.Writer, svc *app.Services, agentID string) error {
	quotas, err := svc.Quotas.GetQuotas(ctx, agentID)
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, quotas)
	}
	return writeQuotaTable(w, quotas)
}

func runQuotaReset(ctx context.Context, w io.Writer, svc *app.Services, id string) error {
	q, err := svc.Quotas.ResetQuota(ctx, id)
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, q)
	}
	_, err = fmt.Fprintf(w, "reset %s, period ends %s\n", q.ID, q.PeriodEnd().Format(time.RFC3339))
	return err
}

func runQuotaResetDue(ctx context.Context, w io.Writer, svc *app.Services, now time.Time) error {
	reset, err := svc.Quotas.ResetDue(ctx, now)
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, reset)
	}
	if len(reset) == 0 {
		_, err = fmt.Fprintln(w, "no quotas due for reset")
		return err
	}
	for _, q := range reset {
		if _, err := fmt.Fprintf(w, "reset %s\n", q.ID); err != nil {
			return err
		}
	}
	return nil
}

func writeQuotaTable(w io.Writer, quotas []model.Quota) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tUSAGE\tLIMIT\tPERCENT\tSTATE\tHARD STOP\tPERIOD END")
	for _, q := range quotas {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%.1f%%\t%s\t%t\t%s\n",
			q.ID, q.Type, q.CurrentUsage, q.Limit, q.UsagePercent(0)*100,
			q.State(), q.HardStop, q.PeriodEnd().Format(time.RFC3339))
	}
	return tw.Flush()
}
