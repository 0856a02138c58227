package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/missioncontrol/internal/app"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision resources and quotas from a YAML file",
}

var seedApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply a seed file",
	Long: `Create the resources declared in the file and upsert its quotas.
Resources that already exist are left untouched, so applying the same
file twice is safe.`,
	Example: `  mcctl seed apply deploy/seed.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *app.Services) error {
			return runSeedApply(cmd.Context(), cmd.OutOrStdout(), svc, args[0])
		})
	},
}

func init() {
	seedCmd.AddCommand(seedApplyCmd)
	rootCmd.AddCommand(seedCmd)
}

func runSeedApply(ctx context.Context, w io.Writer, svc *app.Services, path string) error {
	result, err := svc.ApplySeedFile(ctx, path)
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, map[string]int{
			"resources_created": result.ResourcesCreated,
			"resources_skipped": result.ResourcesSkipped,
			"quotas_applied":    result.QuotasApplied,
		})
	}
	_, err = fmt.Fprintf(w, "resources created: %d, skipped: %d; quotas applied: %d\n",
		result.ResourcesCreated, result.ResourcesSkipped, result.QuotasApplied)
	return err
}
