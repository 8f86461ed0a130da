// Package main is the entry point for the chainfleet CLI and server.
//
// chainfleet plans replica placement for consensus ledger clusters, drives
// their deployment through an external orchestrator and serves the
// per-node configuration bundles the nodes fetch while bootstrapping.
//
// For detailed usage information, run:
//
//	chainfleet --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/chainfleet/cmd/chainfleet/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
