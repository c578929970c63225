package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/config"
)

var (
	initForce  bool
	initGlobal bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default fleetdash.yaml",
	Long: `Write the default configuration to ./fleetdash.yaml, or to
~/.config/fleetdash/config.yaml with --global.

Safe to run multiple times - will not overwrite existing config.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "Write the per-user config instead")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	path := config.ProjectFile
	if initGlobal {
		path = config.GlobalConfigPath()
		if path == "" {
			return fmt.Errorf("cannot determine home directory")
		}
	}

	if config.Exists(path) && !initForce {
		fmt.Printf("Config %s already exists, skipping\n", path)
		return nil
	}

	cfg := config.DefaultConfig()
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if err := config.Write(cfg, path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	fmt.Printf("Created %s\n", path)
	return nil
}
