package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/chainfleet/cmd/chainfleet/handlers"
)

// Configuration returns the node configuration command group.
func Configuration() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage node configuration sessions",
	}
	cmd.AddCommand(configCreate())
	cmd.AddCommand(configGet())
	cmd.AddCommand(configDelete())
	return cmd
}

func configCreate() *cobra.Command {
	var remote handlers.Remote
	var req handlers.ConfigurationRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate configuration for a set of hosts and print the session id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CreateConfiguration(cmd.Context(), cmd.OutOrStdout(), remote, req)
		},
	}

	addServerFlag(cmd, &remote)
	cmd.Flags().StringSliceVar(&req.Hosts, "hosts", nil, "Node addresses, in node order")
	cmd.Flags().StringSliceVar(&req.Services, "services", nil, "Service types to configure (e.g. CONCORD,ETHEREUM_API)")
	cmd.Flags().StringVar(&req.BlockchainType, "type", "ETHEREUM", "ETHEREUM, DAML or HLF")
	_ = cmd.MarkFlagRequired("hosts")
	_ = cmd.MarkFlagRequired("services")

	return cmd
}

func configGet() *cobra.Command {
	var remote handlers.Remote
	var node int

	cmd := &cobra.Command{
		Use:   "get <session-id>",
		Short: "Print the configuration bundle of one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.GetConfiguration(cmd.Context(), cmd.OutOrStdout(), remote, args[0], node)
		},
	}

	addServerFlag(cmd, &remote)
	cmd.Flags().IntVarP(&node, "node", "n", 0, "Node index")

	return cmd
}

func configDelete() *cobra.Command {
	var remote handlers.Remote

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a configuration session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.DeleteConfiguration(cmd.Context(), cmd.OutOrStdout(), remote, args[0])
		},
	}

	addServerFlag(cmd, &remote)

	return cmd
}
