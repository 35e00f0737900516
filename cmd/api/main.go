package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/redmonkez12/tutorhub-identity/docs" // Swagger docs
)

// @title           TutorHub Identity API
// @version         1.0
// @description     Accounts, sessions and tutor approval for the TutorHub platform.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	rootCmd := &cobra.Command{
		Use:          "tutorhub-identity",
		Short:        "TutorHub identity and access-control service",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", RunE: runMigrate(migrateUp)},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", RunE: runMigrate(migrateDown)},
		&cobra.Command{Use: "status", Short: "Show migration status", RunE: runMigrate(migrateStatus)},
	)

	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE:  runCreateAdmin,
	}
	createAdminCmd.Flags().String("name", "", "Admin display name")
	createAdminCmd.Flags().String("email", "", "Admin email address")
	createAdminCmd.Flags().String("password", "", "Admin password (read from ADMIN_PASSWORD when omitted)")
	_ = createAdminCmd.MarkFlagRequired("name")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)

	// Running without a subcommand starts the API
	rootCmd.RunE = serveCmd.RunE

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
