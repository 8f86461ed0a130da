package commands

import (
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/imamik/chainfleet/cmd/chainfleet/handlers"
)

// Serve returns the command running the provisioning server.
func Serve() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the deployment and configuration services",
		Long: `Run the deployment and configuration services.

Both services share one RPC listener. Prometheus metrics are served on a
separate listener. Backends are selected by the configuration file and
environment overrides:

  CHAINFLEET_TASK_STORE      memory or postgres (DATABASE_URL)
  CHAINFLEET_SESSION_STORE   memory, s3 (S3_ACCESS_KEY, S3_SECRET_KEY) or kubernetes
  CHAINFLEET_KAFKA_BROKERS   comma separated orchestrator brokers
  HCLOUD_TOKEN               Hetzner Cloud token for site validation
`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Serve(ctrl.SetupSignalHandler(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
