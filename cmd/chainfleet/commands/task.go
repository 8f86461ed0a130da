package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/chainfleet/cmd/chainfleet/handlers"
)

// Task returns the task command group.
func Task() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect deployment tasks",
	}
	cmd.AddCommand(taskGet())
	cmd.AddCommand(taskList())
	return cmd
}

func taskGet() *cobra.Command {
	var remote handlers.Remote
	var output string

	cmd := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return handlers.GetTask(cmd.Context(), cmd.OutOrStdout(), format, remote, args[0])
		},
	}

	addServerFlag(cmd, &remote)
	addOutputFlag(cmd, &output)

	return cmd
}

func taskList() *cobra.Command {
	var remote handlers.Remote
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return handlers.ListTasks(cmd.Context(), cmd.OutOrStdout(), format, remote)
		},
	}

	addServerFlag(cmd, &remote)
	addOutputFlag(cmd, &output)

	return cmd
}
