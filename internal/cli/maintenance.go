package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/fleet"
)

var (
	cleanupMaxSizeMB int
	shutdownYes      bool
)

var cleanupLogsCmd = &cobra.Command{
	Use:   "cleanup-logs",
	Short: "Trim every device's log buffer on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg, consoleLogger(cfg))

		result, err := client.CleanupLogs(cmd.Context(), cleanupMaxSizeMB)
		if err != nil {
			return fmt.Errorf("failed to clean up logs: %w", err)
		}
		return reportResult(result, "Logs cleaned up")
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop all devices and shut the server down",
	Long: `Ask the device manager to stop every device and exit.

Asks for confirmation unless --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		confirmer := &promptConfirmer{in: os.Stdin, out: os.Stdout, yes: shutdownYes}
		if !confirmer.Confirm(cmd.Context(), fmt.Sprintf("Shut down %s and stop all devices?", cfg.Server.URL)) {
			fmt.Println("Cancelled.")
			return nil
		}

		client := newClient(cfg, consoleLogger(cfg))
		result, err := client.Shutdown(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return reportResult(result, "Server shutting down")
	},
}

func init() {
	cleanupLogsCmd.Flags().IntVar(&cleanupMaxSizeMB, "max-size-mb", 10, "Size each device's log buffer is trimmed to")
	shutdownCmd.Flags().BoolVarP(&shutdownYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(cleanupLogsCmd, shutdownCmd)
}

func reportResult(result *fleet.ActionResult, success string) error {
	if !result.Success {
		return fmt.Errorf("server refused: %s", result.Error)
	}
	fmt.Println(success)
	return nil
}
