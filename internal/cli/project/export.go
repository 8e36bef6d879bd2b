package project

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
)

// ExportCmd returns the project export subcommand
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project's tasks",
		Long:  "Export a project's tasks as JSON on stdout, or to a CSV file with --csv.",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	cmd.Flags().String("csv", "", "Write a CSV file to the given path instead of printing JSON")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	csvPath, _ := cmd.Flags().GetString("csv")

	a, err := cli.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error closing app: %v", err)
		}
	}()

	if csvPath != "" {
		written, err := a.ProjectService.ExportTasksCSV(ctx, args[0], csvPath)
		if err != nil {
			return err
		}
		fmt.Println(styles.SuccessStyle.Render("Exported to ") + written)
		return nil
	}

	tasks, err := a.ProjectService.ExportTasks(ctx, args[0])
	if err != nil {
		return err
	}

	formatter := &cli.OutputFormatter{JSON: true}
	return formatter.Emit(tasks, nil)
}
