// Package main is the entry point for the fleetdash CLI.
package main

import (
	"os"

	"github.com/bkonkle/fleetdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
