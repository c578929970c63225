package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/fakefleet"
	"github.com/bkonkle/fleetdash/internal/fleet"
)

var (
	fakeAddr     string
	fakeSeed     int
	fakeSimulate time.Duration
)

var fakeServerCmd = &cobra.Command{
	Use:   "fake-server",
	Short: "Run an in-memory device manager for demos and testing",
	Long: `Run an in-memory device manager that speaks the same HTTP API as the
real server. Devices never touch hardware; running devices produce
simulated log lines and counters.

Examples:
  fleetdash fake-server --seed 4
  fleetdash fake-server --addr :5050 --simulate 500ms`,
	RunE: runFakeServer,
}

func init() {
	fakeServerCmd.Flags().StringVar(&fakeAddr, "addr", "127.0.0.1:5000", "Listen address")
	fakeServerCmd.Flags().IntVar(&fakeSeed, "seed", 3, "Number of devices to create at startup")
	fakeServerCmd.Flags().DurationVar(&fakeSimulate, "simulate", 2*time.Second, "Interval between simulated requests (0 disables)")
	rootCmd.AddCommand(fakeServerCmd)
}

func runFakeServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := consoleLogger(cfg)

	if cfg.Logging.Level != "debug" && cfg.Logging.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := fakefleet.New(fakefleet.WithLogger(logger))
	srv.OnShutdown = stop
	for i := 0; i < fakeSeed; i++ {
		srv.Seed(fleet.AddRequest{
			Name: fmt.Sprintf("Device %d", i+1),
			UDID: fmt.Sprintf("00008110-%016X", i+1),
		})
	}
	if fakeSimulate > 0 {
		go srv.Simulate(ctx, fakeSimulate)
	}

	httpServer := &http.Server{
		Addr:              fakeAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", fakeAddr).Int("devices", fakeSeed).Msg("fake device manager listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("fake server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
