// Package project provides the project subcommands.
package project

import (
	"github.com/spf13/cobra"
)

// Cmd returns the project parent command
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Create, list, and export projects.",
	}

	cmd.AddCommand(ListCmd())
	cmd.AddCommand(CreateCmd())
	cmd.AddCommand(ExportCmd())

	return cmd
}
