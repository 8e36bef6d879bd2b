package project

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
	projectservice "github.com/igebriel/taskweave/internal/services/project"
)

// CreateCmd returns the project create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}

	cmd.Flags().String("description", "", "Project description")
	cmd.Flags().Bool("json", false, "Output in JSON format")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	description, _ := cmd.Flags().GetString("description")
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

	p, err := a.ProjectService.Create(ctx, projectservice.CreateProjectRequest{
		Name:        args[0],
		Description: description,
	})
	if err != nil {
		return err
	}

	return formatter.Emit(p, func() {
		fmt.Println(styles.SuccessStyle.Render("Created project ") + styles.TitleStyle.Render(p.Name))
		fmt.Printf("  ID: %s\n", p.ID)
	})
}
