// Package task provides the task subcommands.
package task

import (
	"github.com/spf13/cobra"
)

// Cmd returns the task parent command
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Create, list, and move tasks on the board.",
	}

	cmd.AddCommand(ListCmd())
	cmd.AddCommand(CreateCmd())
	cmd.AddCommand(MoveCmd())

	return cmd
}
