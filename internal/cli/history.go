package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/journal"
)

var (
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent device actions",
	Long: `Show the most recent start, stop, add, and delete actions recorded in
the local journal, newest first.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "Output format (table, json)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("journal is disabled (journal.enabled: false)")
	}
	defer closeQuietly(store)

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if historyOutput == "json" {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No actions recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tDEVICE\tOUTCOME\tDETAIL")
	fmt.Fprintln(w, "----\t------\t------\t-------\t------")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Action,
			formatTarget(e),
			colorOutcome(e.Outcome),
			e.Detail,
		)
	}
	return w.Flush()
}

func formatTarget(e journal.Entry) string {
	if e.Index == journal.NoIndex {
		return e.Name
	}
	if e.Name == "" {
		return fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("#%d %s", e.Index, e.Name)
}

func colorOutcome(outcome string) string {
	if !isTerminal() {
		return outcome
	}

	switch outcome {
	case "success":
		return color.GreenString(outcome)
	case "declined":
		return color.YellowString(outcome)
	default:
		return color.RedString(outcome)
	}
}
