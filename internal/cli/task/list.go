package task

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
	"github.com/igebriel/taskweave/internal/models"
)

// ListCmd returns the task list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks by column",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}

	cmd.Flags().Bool("json", false, "Output in JSON format")
	cmd.Flags().Bool("quiet", false, "Minimal output (IDs only)")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	formatter := &cli.OutputFormatter{JSON: jsonOutput, Quiet: quietMode}

	a, err := cli.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error closing app: %v", err)
		}
	}()

	tasks, err := a.TaskService.GetByProject(ctx, args[0])
	if err != nil {
		return err
	}

	if quietMode {
		for _, t := range tasks {
			fmt.Println(t.ID)
		}
		return nil
	}

	return formatter.Emit(tasks, func() {
		if len(tasks) == 0 {
			fmt.Println("No tasks found")
			return
		}

		byColumn := map[string][]models.Task{}
		for _, t := range tasks {
			byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t)
		}

		columns := make([]string, 0, len(byColumn))
		for column := range byColumn {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		for _, column := range columns {
			fmt.Println(styles.TitleStyle.Render(column))
			grouped := byColumn[column]
			sort.Slice(grouped, func(i, j int) bool { return grouped[i].Order < grouped[j].Order })
			for _, t := range grouped {
				fmt.Printf("  %d. [%s] %s (%s)\n", t.Order, t.ID, t.Title, t.Priority)
			}
		}
	})
}
