package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/chainfleet/cmd/chainfleet/handlers"
	"github.com/imamik/chainfleet/internal/deployment"
)

func addCreateRequestFlags(cmd *cobra.Command, req *deployment.CreateRequest) {
	cmd.Flags().StringVar(&req.ConsortiumID, "consortium", "", "Consortium owning the blockchain")
	cmd.Flags().IntVarP(&req.FCount, "f-count", "f", 1, "Byzantine faults to tolerate")
	cmd.Flags().IntVar(&req.CCount, "c-count", 0, "Slow replicas to tolerate")
	cmd.Flags().StringVar(&req.DeploymentType, "deployment-type", "", "FIXED or UNSPECIFIED (default UNSPECIFIED)")
	cmd.Flags().StringSliceVar(&req.ZoneIDs, "zones", nil, "Zone of each replica for FIXED placement")
	cmd.Flags().StringVar(&req.BlockchainType, "type", "", "ETHEREUM, DAML or HLF (default ETHEREUM)")
}

// Plan returns the command printing a placement without deploying it.
func Plan() *cobra.Command {
	var req deployment.CreateRequest
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the placement and components of a blockchain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return handlers.Plan(cmd.Context(), cmd.OutOrStdout(), format, req)
		},
	}

	addCreateRequestFlags(cmd, &req)
	addOutputFlag(cmd, &output)

	return cmd
}

// Components returns the command listing the components of a ledger flavor.
func Components() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "components [ETHEREUM|DAML|HLF]",
		Short:     "List the components composing one node",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"ETHEREUM", "DAML", "HLF"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return handlers.Components(cmd.OutOrStdout(), format, args[0])
		},
	}

	addOutputFlag(cmd, &output)

	return cmd
}
