package task

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
)

// MoveCmd returns the task move subcommand
func MoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <column> <position>",
		Short: "Move a task to a column position",
		Long:  "Move a task to the given position within a column. Every other task in the column shifts to keep positions dense.",
		Args:  cobra.ExactArgs(3),
		RunE:  runMove,
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	position, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid position %q: %w", args[2], err)
	}

	a, err := cli.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error closing app: %v", err)
		}
	}()

	t, err := a.TaskService.Move(ctx, args[0], args[1], position)
	if err != nil {
		return err
	}

	fmt.Println(styles.SuccessStyle.Render("Moved ") + styles.TitleStyle.Render(t.Title))
	fmt.Printf("  Now at %s[%d], status %s\n", t.ColumnID, t.Order, t.Status)
	return nil
}
