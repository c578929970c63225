package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/view"
)

var (
	statsDetailed bool
	statsOutput   string
)

var statsCmd = &cobra.Command{
	Use:   "stats <index>",
	Short: "Show a device's counters",
	Long: `Show a device's success, confirm-human, and failure counters.

With --detailed, the successful and confirm-human counters are broken down
by request category.

Examples:
  fleetdash stats 0
  fleetdash stats 0 --detailed`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsDetailed, "detailed", "d", false, "Break counters down by request category")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "table", "Output format (table, json)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg, consoleLogger(cfg))

	if !statsDetailed {
		stats, err := client.FetchStats(cmd.Context(), index)
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}
		if statsOutput == "json" {
			return printJSON(stats)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Successful\t%d\n", stats.Successful)
		fmt.Fprintf(w, "Confirm Human\t%d\n", stats.ConfirmHuman)
		fmt.Fprintf(w, "Failed\t%d\n", stats.Failed)
		return w.Flush()
	}

	detailed, err := client.FetchDetailedStats(cmd.Context(), index)
	if err != nil {
		return fmt.Errorf("failed to fetch detailed stats: %w", err)
	}
	if statsOutput == "json" {
		return printJSON(detailed)
	}
	return printStatsView(view.RenderStatsView(*detailed))
}

func printStatsView(v view.StatsView) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, g := range v.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\t\n", g.Title)
		total := 0
		for _, row := range g.Rows {
			total += row.Value
			fmt.Fprintf(w, "  %s\t%d\n", row.Label, row.Value)
		}
		fmt.Fprintf(w, "  Total\t%d\n", total)
	}
	return w.Flush()
}
