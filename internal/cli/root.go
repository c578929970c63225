package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/config"
	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/journal"
	"github.com/bkonkle/fleetdash/internal/logging"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	serverURL  string
	configPath string
	logLevel   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fleetdash",
	Short: "Terminal dashboard for a device automation fleet",
	Long: `Fleetdash monitors and controls a fleet of mobile devices managed by
a device manager server.

Each device runs its own automation session. The dashboard shows every
device's status and counters, tails its logs live, and lets you start,
stop, add, and remove devices without leaving the terminal.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fleetdash %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Device manager URL (overrides server.url)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file to load instead of the default search")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (same as --log-level debug)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// GetRootCmd returns the root command for testing and subcommand registration
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig merges the config files with the persistent flags.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if serverURL != "" {
		loader.SetOverride("server.url", serverURL)
	}
	switch {
	case logLevel != "":
		loader.SetOverride("logging.level", logLevel)
	case verbose:
		loader.SetOverride("logging.level", "debug")
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = loader.LoadFromPath(configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// consoleLogger logs to stderr for one-shot commands.
func consoleLogger(cfg *config.Config) zerolog.Logger {
	logger, _, err := logging.New(logging.Options{Level: cfg.Logging.Level, Console: os.Stderr})
	if err != nil {
		return zerolog.Nop()
	}
	return logger
}

func newClient(cfg *config.Config, logger zerolog.Logger) *fleet.Client {
	return fleet.NewClient(cfg.Server.URL,
		fleet.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
		fleet.WithLogger(logger),
	)
}

// openJournal opens the action journal, or returns nil when it is disabled.
func openJournal(cfg *config.Config) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	path := cfg.Journal.Path
	if path == "" {
		path = journal.DefaultPath()
	}
	store, err := journal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}

// parseIndex parses a device index argument.
func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid device index %q", arg)
	}
	return index, nil
}
