package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/view"
)

var (
	listOutput string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all devices",
	Long:    `List all devices with their status, ports, and counters.`,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table, json)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg, consoleLogger(cfg))

	devices, err := client.ListDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	switch listOutput {
	case "json":
		return printJSON(devices)
	}

	list := view.RenderDeviceList(devices)
	if list.IsEmpty() {
		fmt.Println(list.Empty.Title)
		fmt.Println("\nAdd one with:")
		fmt.Println("  fleetdash add <name> <udid>")
		return nil
	}
	return printTable(list.Cards)
}

func printTable(cards []view.Card) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tSTATUS\tUDID\tPORT\tOK\tHUMAN\tFAILED")
	fmt.Fprintln(w, "-----\t----\t------\t----\t----\t--\t-----\t------")

	for _, c := range cards {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			c.Key,
			c.Name,
			colorStatus(c.Status, c.StatusText),
			c.UDID,
			c.Port,
			c.Stats.Successful,
			c.Stats.ConfirmHuman,
			c.Stats.Failed,
		)
	}

	return w.Flush()
}

func colorStatus(status fleet.Status, text string) string {
	// Check if stdout is a terminal
	if !isTerminal() {
		return text
	}

	switch status {
	case fleet.StatusRunning:
		return color.GreenString(text)
	case fleet.StatusStarting:
		return color.YellowString(text)
	case fleet.StatusStopped:
		return color.RedString(text)
	default:
		return text
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal checks if stdout is a terminal (TTY).
// This is used to determine whether to use colors in output.
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
