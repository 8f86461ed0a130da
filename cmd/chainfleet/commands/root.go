// Package commands defines the CLI command structure and flag bindings.
//
// Commands parse arguments and flags only; execution is delegated to the
// handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the chainfleet CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chainfleet",
		Short:        "Provision consensus ledger clusters",
		SilenceUsage: true,
	}

	// Server
	cmd.AddCommand(Serve())

	// Offline planning
	cmd.AddCommand(Plan())
	cmd.AddCommand(Components())

	// Remote API
	cmd.AddCommand(Blockchain())
	cmd.AddCommand(Task())
	cmd.AddCommand(Configuration())

	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
