package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imamik/chainfleet/cmd/chainfleet/handlers"
	"github.com/imamik/chainfleet/internal/config"
)

const defaultServer = "localhost" + config.DefaultRPCAddress

func addServerFlag(cmd *cobra.Command, remote *handlers.Remote) {
	cmd.Flags().StringVarP(&remote.Address, "server", "s", defaultServer, "Address of the chainfleet RPC server")
}

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", "auto", "Output format: auto, styled or yaml")
}

func parseFormat(s string) (handlers.Format, error) {
	switch s {
	case "auto", "":
		return handlers.FormatAuto, nil
	case "styled":
		return handlers.FormatStyled, nil
	case "yaml":
		return handlers.FormatYAML, nil
	default:
		return 0, fmt.Errorf("unknown output format %q", s)
	}
}
