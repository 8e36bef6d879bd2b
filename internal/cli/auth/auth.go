// Package auth provides the session subcommands.
package auth

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/igebriel/taskweave/internal/cli"
	"github.com/igebriel/taskweave/internal/cli/styles"
)

// Cmd returns the auth parent command
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the API session",
	}

	cmd.AddCommand(loginCmd())
	cmd.AddCommand(logoutCmd())
	cmd.AddCommand(whoamiCmd())

	return cmd
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogin,
	}

	cmd.Flags().String("password", "", "Password")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	password, _ := cmd.Flags().GetString("password")

	a, err := cli.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error closing app: %v", err)
		}
	}()

	user, err := a.AuthService.Login(ctx, args[0], password)
	if err != nil {
		return err
	}

	if user != nil {
		fmt.Println(styles.SuccessStyle.Render("Signed in as ") + user.Email)
	} else {
		fmt.Println(styles.SuccessStyle.Render("Signed in"))
	}
	return nil
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cli.Setup()
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Printf("Error closing app: %v", err)
				}
			}()

			if err := a.AuthService.Logout(context.Background()); err != nil {
				return err
			}
			fmt.Println(styles.SuccessStyle.Render("Signed out"))
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cli.Setup()
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Printf("Error closing app: %v", err)
				}
			}()

			user, err := a.AuthService.CurrentUser()
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", styles.TitleStyle.Render(user.Email), user.ID)
			return nil
		},
	}
}
