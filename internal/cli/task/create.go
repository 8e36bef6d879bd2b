package task

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
	"github.com/igebriel/taskweave/internal/models"
	taskservice "github.com/igebriel/taskweave/internal/services/task"
)

// CreateCmd returns the task create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(2),
		RunE:  runCreate,
	}

	cmd.Flags().String("description", "", "Task description")
	cmd.Flags().String("column", models.ColumnTodo, "Column to create the task in")
	cmd.Flags().String("priority", "", "Priority (low, medium, high)")
	cmd.Flags().Bool("json", false, "Output in JSON format")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	description, _ := cmd.Flags().GetString("description")
	column, _ := cmd.Flags().GetString("column")
	priority, _ := cmd.Flags().GetString("priority")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	formatter := &cli.OutputFormatter{JSON: jsonOutput}

	a, err := cli.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error closing app: %v", err)
		}
	}()

	t, err := a.TaskService.Create(ctx, taskservice.CreateTaskRequest{
		Title:       args[1],
		Description: description,
		ProjectID:   args[0],
		ColumnID:    column,
		Priority:    models.Priority(priority),
	})
	if err != nil {
		return err
	}

	return formatter.Emit(t, func() {
		fmt.Println(styles.SuccessStyle.Render("Created task ") + styles.TitleStyle.Render(t.Title))
		fmt.Printf("  ID: %s, column: %s, order: %d\n", t.ID, t.ColumnID, t.Order)
	})
}
