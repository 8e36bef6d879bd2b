package cmd

import (
	"github.com/spf13/cobra"

	authcli "github.com/igebriel/taskweave/internal/cli/auth"
	projectcli "github.com/igebriel/taskweave/internal/cli/project"
	taskcli "github.com/igebriel/taskweave/internal/cli/task"
)

var rootCmd = &cobra.Command{
	Use:   "taskweave",
	Short: "Taskweave - an offline-tolerant task board client",
	Long: `Taskweave is a client for a task/project management API that keeps
working when the API does not: reads and writes fall back to a local
cache, and offline changes are kept for a later sync.`,
}

func init() {
	rootCmd.AddCommand(authcli.Cmd())
	rootCmd.AddCommand(projectcli.Cmd())
	rootCmd.AddCommand(taskcli.Cmd())
}

func Execute() error {
	return rootCmd.Execute()
}
