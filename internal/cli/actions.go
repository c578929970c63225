package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bkonkle/fleetdash/internal/engine"
	"github.com/bkonkle/fleetdash/internal/fleet"
)

var assumeYes bool

var startCmd = &cobra.Command{
	Use:   "start <index>",
	Short: "Start a device",
	Long: `Start a device's automation session.

Examples:
  fleetdash start 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), engine.ActionStart, args)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <index>",
	Short: "Stop a device",
	Long: `Stop a device's automation session. Asks for confirmation unless --yes.

Examples:
  fleetdash stop 2
  fleetdash stop 2 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), engine.ActionStop, args)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <index>",
	Aliases: []string{"rm"},
	Short:   "Remove a stopped device",
	Long: `Remove a device from the fleet. This cannot be undone.

Examples:
  fleetdash delete 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), engine.ActionDelete, args)
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name> <udid>",
	Short: "Add a device",
	Long: `Register a new device. The server assigns its ports.

Examples:
  fleetdash add "iPhone 13 #4" 00008110-001A2B3C4D5E6F70`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), engine.ActionAdd, args)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{stopCmd, deleteCmd} {
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	}
	rootCmd.AddCommand(startCmd, stopCmd, deleteCmd, addCmd)
}

func runAction(ctx context.Context, action engine.ActionKind, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := consoleLogger(cfg)
	client := newClient(cfg, logger)

	opts := []engine.DispatcherOption{
		engine.WithLogger(logger),
		engine.WithNotifier(&consoleNotifier{out: os.Stdout}),
	}
	store, err := openJournal(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without journal")
	} else if store != nil {
		defer closeQuietly(store)
		opts = append(opts, engine.WithRecorder(store))
	}

	confirmer := &promptConfirmer{in: os.Stdin, out: os.Stdout, yes: assumeYes}
	d := engine.NewDispatcher(client, confirmer, nopRefresher{}, opts...)

	switch action {
	case engine.ActionAdd:
		_, err = d.Add(ctx, args[0], args[1])
	default:
		index, perr := parseIndex(args[0])
		if perr != nil {
			return perr
		}
		switch action {
		case engine.ActionStart:
			err = d.Start(ctx, index)
		case engine.ActionStop:
			err = d.Stop(ctx, index)
		case engine.ActionDelete:
			err = d.Delete(ctx, index, deviceName(ctx, client, index))
		}
	}

	if errors.Is(err, engine.ErrDeclined) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}

// deviceName looks up the name shown in the delete prompt.
func deviceName(ctx context.Context, client *fleet.Client, index int) string {
	devices, err := client.ListDevices(ctx)
	if err == nil {
		for _, d := range devices {
			if d.Index == index {
				return d.Name
			}
		}
	}
	return fmt.Sprintf("device %d", index)
}

// promptConfirmer asks y/N on the terminal.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
	yes bool
}

func (p *promptConfirmer) Confirm(ctx context.Context, message string) bool {
	if p.yes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N] ", message)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.in).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case a := <-answer:
		return a == "y" || a == "yes"
	case <-ctx.Done():
		return false
	}
}

// consoleNotifier prints success notices. Failures are returned as errors
// and printed by cobra.
type consoleNotifier struct {
	out io.Writer
}

func (n *consoleNotifier) Notify(notice engine.Notice) {
	if notice.Err != nil {
		return
	}
	msg := notice.Message
	if isTerminal() {
		msg = color.GreenString(msg)
	}
	fmt.Fprintln(n.out, msg)
}

type nopRefresher struct{}

func (nopRefresher) ForceRefresh() {}
