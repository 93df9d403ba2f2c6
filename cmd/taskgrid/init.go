package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskgrid/internal/config"
	"taskgrid/pkg/models"
)

var initAdmin string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the taskgrid database",
	Long: `Create the database, apply migrations and seed the canonical
roles (owner, manager, developer, observer).

With --admin, also creates a superuser account with that username.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initAdmin, "admin", "", "Create a superuser with this username")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := openStore(cfg)
	if err != nil {
		printStatus("✗", "Database initialization failed", color.FgRed)
		return err
	}
	defer db.Close()
	printStatus("✓", fmt.Sprintf("Database ready at %s", db.Path()), color.FgGreen)

	if err := db.SeedDefaultRoles(); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	printStatus("✓", "Seeded default roles", color.FgGreen)

	if initAdmin != "" {
		admin := &models.User{
			ID:          uuid.NewString(),
			Username:    initAdmin,
			IsActive:    true,
			IsSuperuser: true,
		}
		if err := db.CreateUser(admin); err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Created superuser %s (%s)", admin.Username, admin.ID), color.FgGreen)
	}

	if config.GetProjectConfigPath() == "" {
		printStatus("⚠", "No .taskgrid.yaml found (defaults apply)", color.FgYellow)
	}

	fmt.Printf("\n%s taskgrid initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  taskgrid project create --name \"My Project\" --owner <user-id>")
	fmt.Println("  taskgrid worker    # run the scheduler")
	return nil
}

// printStatus prints a colored status symbol followed by a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	c.Printf("%s ", symbol)
	fmt.Println(message)
}
