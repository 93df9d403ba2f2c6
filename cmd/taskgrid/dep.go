package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskgrid/internal/engine"
	"taskgrid/pkg/models"
)

var (
	depActor       string
	depDescription string
	actionType     string
	actionTarget   string
	actionStatus   string
	actionTemplate string
	actionDelay    int
	actionOrder    int
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges and their action rules",
}

var depAddCmd = &cobra.Command{
	Use:   "add <source-task-id> <target-task-id>",
	Short: "Add a dependency edge (target waits for source)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if depActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		dep, err := newEngine(db, logger).CreateDependency(commandContext(), args[0], args[1], depActor, depDescription)
		if err != nil {
			return err
		}
		fmt.Printf("Created dependency %s: %s -> %s\n", dep.ID, dep.SourceTaskID, dep.TargetTaskID)
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <dependency-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if depActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		if err := newEngine(db, logger).DeleteDependency(commandContext(), args[0], depActor); err != nil {
			return err
		}
		fmt.Printf("Removed dependency %s\n", args[0])
		return nil
	},
}

var actionAddCmd = &cobra.Command{
	Use:   "action-add <dependency-id>",
	Short: "Attach an action rule to an edge",
	Long: `Attach an action that fires when the edge's source task
completes: notify_assignee, notify_creator, notify_custom,
change_status or create_subtask. Actions with --delay are dispatched by
the worker after the delay elapses.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if depActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		action, err := newEngine(db, logger).AddDependencyAction(commandContext(), engine.AddActionRequest{
			DependencyID:    args[0],
			ActorID:         depActor,
			Type:            models.ActionType(actionType),
			TargetUserID:    actionTarget,
			TargetStatus:    models.Status(actionStatus),
			MessageTemplate: actionTemplate,
			DelayMinutes:    actionDelay,
			ExecuteOrder:    actionOrder,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s action %s\n", action.Type, action.ID)
		return nil
	},
}

var actionRemoveCmd = &cobra.Command{
	Use:   "action-remove <action-id>",
	Short: "Remove an action rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if depActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		if err := newEngine(db, logger).RemoveDependencyAction(commandContext(), args[0], depActor); err != nil {
			return err
		}
		fmt.Printf("Removed action %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{depAddCmd, depRemoveCmd, actionAddCmd, actionRemoveCmd} {
		c.Flags().StringVar(&depActor, "actor", "", "Acting user ID")
	}

	depAddCmd.Flags().StringVar(&depDescription, "description", "", "Edge description")

	actionAddCmd.Flags().StringVar(&actionType, "type", string(models.ActionNotifyAssignee), "Action type")
	actionAddCmd.Flags().StringVar(&actionTarget, "target-user", "", "Target user ID (notify_custom, create_subtask)")
	actionAddCmd.Flags().StringVar(&actionStatus, "target-status", "", "Target status (change_status)")
	actionAddCmd.Flags().StringVar(&actionTemplate, "template", "", "Message template ({task_name}, {project_name}, {user})")
	actionAddCmd.Flags().IntVar(&actionDelay, "delay", 0, "Delay in minutes before dispatch")
	actionAddCmd.Flags().IntVar(&actionOrder, "order", 0, "Execution order among the edge's actions")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(actionAddCmd)
	depCmd.AddCommand(actionRemoveCmd)
}
