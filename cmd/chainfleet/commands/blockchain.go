package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/chainfleet/cmd/chainfleet/handlers"
	"github.com/imamik/chainfleet/internal/deployment"
)

// Blockchain returns the blockchain command group.
func Blockchain() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "blockchain",
		Aliases: []string{"bc"},
		Short:   "Manage blockchain deployments",
	}
	cmd.AddCommand(blockchainCreate(), blockchainList())
	return cmd
}

func blockchainList() *cobra.Command {
	var (
		remote     handlers.Remote
		principal  string
		consortium string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the blockchains of a consortium visible to a principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return handlers.ListBlockchains(cmd.Context(), cmd.OutOrStdout(), format, remote, principal, consortium)
		},
	}

	addServerFlag(cmd, &remote)
	addOutputFlag(cmd, &output)
	cmd.Flags().StringVar(&consortium, "consortium", "", "Consortium whose blockchains to list")
	cmd.Flags().StringVar(&principal, "principal", "", "Principal the listing is resolved for")
	_ = cmd.MarkFlagRequired("consortium")

	return cmd
}

func blockchainCreate() *cobra.Command {
	var (
		remote handlers.Remote
		req    deployment.CreateRequest
		op     deployment.OperationContext
		output string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a blockchain deployment and print its task",
		Long: `Start a blockchain deployment and print its task.

The command returns as soon as the deployment is scheduled. Follow its
progress with "chainfleet task get <id>".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return handlers.CreateBlockchain(cmd.Context(), cmd.OutOrStdout(), format, remote, op, req)
		},
	}

	addCreateRequestFlags(cmd, &req)
	addServerFlag(cmd, &remote)
	addOutputFlag(cmd, &output)
	cmd.Flags().StringVar(&op.Principal, "principal", "", "Principal the deployment is started for")
	cmd.Flags().StringVar(&op.OperationID, "operation-id", "", "Operation id for log correlation (default generated)")

	return cmd
}
