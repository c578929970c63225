package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/config"
	"github.com/bkonkle/fleetdash/internal/engine"
	"github.com/bkonkle/fleetdash/internal/logging"
	"github.com/bkonkle/fleetdash/internal/metrics"
	"github.com/bkonkle/fleetdash/internal/schedule"
	"github.com/bkonkle/fleetdash/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui", "tui"},
	Short:   "Open interactive TUI dashboard",
	Long: `Open an interactive terminal UI for monitoring and controlling devices.

The dashboard provides:
  - A live card per device with status, port, and counters
  - Live log tail and detailed stats for the selected device
  - Quick actions (start, stop, add, delete)

Navigation:
  arrows or h/j/k/l - Select device
  Enter             - Logs
  ?                 - Show help
  q                 - Quit

Logs go to a file (logging.file) because the dashboard owns the terminal.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = logging.DefaultFile()
	}
	logger, logCloser, err := logging.New(logging.Options{Level: cfg.Logging.Level, File: logFile})
	if err != nil {
		return err
	}
	defer closeQuietly(logCloser)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		stopMetrics := serveMetrics(cfg.Metrics.Addr, m, logger)
		defer stopMetrics()
	}

	client := newClient(cfg, logger)

	sched := schedule.NewTickerScheduler()
	sched.OnActiveChange(m.SetActiveTimers)
	defer sched.Stop()

	bridge := tui.NewBridge()
	intervals := dashboardIntervals(cfg)
	poller := engine.NewListPoller(client, sched, intervals.Devices, bridge, logger, m)
	sessions := engine.NewSessions(ctx, client, sched, intervals, bridge, logger, m)

	opts := []engine.DispatcherOption{
		engine.WithModals(sessions),
		engine.WithNotifier(bridge),
		engine.WithLogger(logger),
		engine.WithMetrics(m),
	}
	store, err := openJournal(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without journal")
	} else if store != nil {
		defer closeQuietly(store)
		opts = append(opts, engine.WithRecorder(store))
	}
	dispatcher := engine.NewDispatcher(client, tui.NewDialogConfirmer(bridge), poller, opts...)

	model := tui.NewModel(ctx, tui.Deps{
		Actions:    dispatcher,
		Logs:       sessions.Logs,
		Stats:      sessions.Stats,
		Refresher:  poller,
		ServerURL:  client.BaseURL(),
		AutoScroll: cfg.Logs.AutoScroll,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	go bridge.Run(ctx, p.Send)

	logger.Info().Str("server", client.BaseURL()).Msg("dashboard started")
	poller.Start(ctx)

	_, runErr := p.Run()

	// Unblock pending confirmations and in-flight fetches before waiting.
	cancel()
	poller.Stop()
	sessions.CloseAll()
	poller.Wait()
	sessions.Wait()
	logger.Info().Msg("dashboard stopped")

	if runErr != nil {
		return fmt.Errorf("run dashboard: %w", runErr)
	}
	return nil
}

// serveMetrics exposes m on addr and returns a function that stops it.
func serveMetrics(addr string, m *metrics.Metrics, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// dashboardIntervals maps the configured poll periods onto the engine.
func dashboardIntervals(cfg *config.Config) engine.Intervals {
	return engine.Intervals{
		Devices: cfg.Intervals.Devices,
		Logs:    cfg.Intervals.Logs,
		Stats:   cfg.Intervals.Stats,
	}
}
