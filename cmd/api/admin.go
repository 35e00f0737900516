package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required: pass --password or set ADMIN_PASSWORD")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	admin, err := a.service.CreateAdminUser(cmd.Context(), name, email, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	logger.Info("admin created", "user_id", admin.ID, "email", admin.Email)
	return nil
}
