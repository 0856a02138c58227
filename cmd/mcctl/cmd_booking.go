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

var (
	bookingResource string
	bookingAgent    string
	bookingStatus   string
	bookingFrom     string
	bookingTo       string
)

var bookingCmd = &cobra.Command{
	Use:   "booking",
	Short: "Inspect resource bookings",
}

var bookingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookings ordered by start time",
	Example: `  mcctl booking list --resource gpu-1
  mcctl booking list --status confirmed --from 2025-03-10T00:00:00Z --to 2025-03-11T00:00:00Z`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := bookingFilter()
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(svc *app.Services) error {
			return runBookingList(cmd.Context(), cmd.OutOrStdout(), svc, filter)
		})
	},
}

func init() {
	bookingListCmd.Flags().StringVar(&bookingResource, "resource", "", "Filter by resource id")
	bookingListCmd.Flags().StringVar(&bookingAgent, "agent", "", "Filter by agent id")
	bookingListCmd.Flags().StringVar(&bookingStatus, "status", "", "Filter by status: confirmed, cancelled")
	bookingListCmd.Flags().StringVar(&bookingFrom, "from", "", "Only bookings ending at or after this RFC3339 time")
	bookingListCmd.Flags().StringVar(&bookingTo, "to", "", "Only bookings starting at or before this RFC3339 time")

	bookingCmd.AddCommand(bookingListCmd)
	rootCmd.AddCommand(bookingCmd)
}

func bookingFilter() (model.BookingFilter, error) {
	f := model.BookingFilter{
		ResourceID: bookingResource,
		AgentID:    bookingAgent,
		Status:     model.BookingStatus(bookingStatus),
	}
	var err error
	if f.From, err = parseFlagTime("from", bookingFrom); err != nil {
		return f, err
	}
	if f.To, err = parseFlagTime("to", bookingTo); err != nil {
		return f, err
	}
	return f, nil
}

func parseFlagTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

func runBookingList(ctx context.Context, w io.Writer, svc *app.Services, filter model.BookingFilter) error {
	bookings, err := svc.Scheduler.List(ctx, filter)
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, bookings)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRESOURCE\tBOOKED BY\tSTART\tEND\tSTATUS\tEST. COST")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			b.ID, b.ResourceID, b.BookedBy,
			b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339),
			b.Status, b.EstimatedCost)
	}
	return tw.Flush()
}
