package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/engine"
	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/schedule"
	"github.com/bkonkle/fleetdash/internal/view"
)

var logsFollow bool

var logsCmd = &cobra.Command{
	Use:   "logs <index>",
	Short: "Show a device's log tail",
	Long: `Print the log tail of a device.

With --follow, keep polling at intervals.logs and print new lines as they
arrive until interrupted.

Examples:
  fleetdash logs 0
  fleetdash logs 0 --follow`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := consoleLogger(cfg)
	client := newClient(cfg, logger)

	if !logsFollow {
		snap, err := client.FetchLogs(cmd.Context(), index)
		if err != nil {
			return fmt.Errorf("failed to fetch logs: %w", err)
		}
		fmt.Println(view.RenderLogView(view.ScrollState{}, snap.Logs, false).Text)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := schedule.NewTickerScheduler()
	defer sched.Stop()

	tail := &tailPrinter{out: os.Stdout}
	session := engine.NewSession[*fleet.LogSnapshot](ctx, engine.KindLogs, cfg.Intervals.Logs, sched,
		client.FetchLogs,
		func(_ int, _ uint64, snap *fleet.LogSnapshot) {
			tail.Print(snap.Logs)
		},
		logger, nil)

	session.Open(index)
	<-ctx.Done()
	session.Close()
	session.Wait()
	return nil
}

// tailPrinter prints only what a new snapshot adds to the previous one.
// When the server trimmed its buffer the whole snapshot is printed again.
type tailPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (p *tailPrinter) Print(logs *string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := ""
	if logs != nil {
		text = *logs
	}
	if text == p.last {
		return
	}

	if p.last != "" && strings.HasPrefix(text, p.last) {
		fmt.Fprint(p.out, strings.TrimPrefix(strings.TrimPrefix(text, p.last), "\n"))
	} else {
		fmt.Fprint(p.out, text)
	}
	if !strings.HasSuffix(text, "\n") && text != "" {
		fmt.Fprintln(p.out)
	}
	p.last = text
}
