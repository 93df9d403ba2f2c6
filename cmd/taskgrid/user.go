package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskgrid/pkg/models"
)

var (
	userSuperuser bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		user := &models.User{
			ID:          uuid.NewString(),
			Username:    args[0],
			IsActive:    true,
			IsSuperuser: userSuperuser,
		}
		if err := db.CreateUser(user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

var userStatsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a user's task statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		user, err := db.GetUser(args[0])
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user %s not found", args[0])
		}

		stats, err := db.UserStats(user.ID, time.Now())
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}

		fmt.Printf("Stats for %s:\n", user.DisplayName())
		fmt.Printf("  Assigned:    %d\n", stats.Assigned)
		fmt.Printf("  Created:     %d\n", stats.Created)
		fmt.Printf("  Completed:   %d\n", stats.Completed)
		fmt.Printf("  In progress: %d\n", stats.InProgress)
		fmt.Printf("  Overdue:     %d\n", stats.Overdue)
		fmt.Printf("  Completion:  %.0f%%\n", stats.CompletionRate*100)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().BoolVar(&userSuperuser, "superuser", false, "Grant superuser privileges")
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userStatsCmd)
}
