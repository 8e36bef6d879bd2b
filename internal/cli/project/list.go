package project

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
	"github.com/igebriel/taskweave/internal/models"
)

// ListCmd returns the project list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Long:  "List all projects with their status and task counts.",
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

	projects, err := a.ProjectService.GetAll(ctx)
	if err != nil {
		return err
	}

	if quietMode {
		for _, p := range projects {
			fmt.Println(p.ID)
		}
		return nil
	}

	return formatter.Emit(projects, func() {
		if len(projects) == 0 {
			fmt.Println("No projects found")
			return
		}

		fmt.Printf("Found %d projects:\n\n", len(projects))
		for _, p := range projects {
			line := fmt.Sprintf("  [%s] %s", p.ID, styles.TitleStyle.Render(p.Name))
			if p.Description != "" {
				line += styles.SubtitleStyle.Render(" - " + p.Description)
			}
			fmt.Println(line)
			fmt.Printf("      %s, %d/%d tasks done%s\n",
				p.Status, p.CompletedTaskCount, p.TaskCount, deletionTag(p))
		}
	})
}

func deletionTag(p models.Project) string {
	if !p.DeletionRequested {
		return ""
	}
	return styles.WarningStyle.Render(", deletion requested")
}
