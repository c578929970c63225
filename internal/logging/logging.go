// Package logging builds the zerolog loggers used by fleetdash.
//
// The dashboard owns the terminal, so it logs to a file. One-shot commands
// log to stderr through a console writer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how much to log.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", "error").
	Level string

	// File is the log file path. Empty means log to Console.
	File string

	// Console is the writer used when File is empty, usually os.Stderr.
	Console io.Writer
}

// New creates a logger from opts. The returned closer releases the log file
// and is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	if opts.File == "" {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		logger := zerolog.New(console).Level(level).With().Timestamp().Logger()
		return logger, nopCloser{}, nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}

	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, f, nil
}

// DefaultFile returns the dashboard's default log file path.
func DefaultFile() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "fleetdash", "fleetdash.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "fleetdash.log"
	}
	return filepath.Join(home, ".local", "state", "fleetdash", "fleetdash.log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
