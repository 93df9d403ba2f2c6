package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskgrid/internal/engine"
	"taskgrid/internal/store"
	"taskgrid/pkg/models"
)

var (
	taskActor       string
	taskProject     string
	taskDescription string
	taskAssignee    string
	taskDeadline    string
	taskPriority    int
	taskName        string
	taskClearDue    bool
	taskListStatus  string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskProject == "" || taskActor == "" {
			return fmt.Errorf("--project and --actor are required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		project, err := lookupProject(db, taskProject)
		if err != nil {
			return err
		}

		req := engine.CreateTaskRequest{
			ProjectID:   project.ID,
			ActorID:     taskActor,
			Name:        args[0],
			Description: taskDescription,
			AssigneeID:  taskAssignee,
			Priority:    taskPriority,
		}
		if taskDeadline != "" {
			deadline, err := parseDeadline(taskDeadline)
			if err != nil {
				return err
			}
			req.Deadline = &deadline
		}

		task, err := newEngine(db, logger).CreateTask(commandContext(), req)
		if err != nil {
			return err
		}
		fmt.Printf("Created task %s (%s)\n", task.Name, task.ID)
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update task fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		// Renaming is reserved for managers and up; the engine would
		// let an assigned developer do it through edit_own_task, so the
		// boundary enforces the narrower rule.
		if cmd.Flags().Changed("name") {
			if err := checkRenameAllowed(db, args[0], taskActor); err != nil {
				return err
			}
		}

		upd := engine.TaskUpdate{ClearDeadline: taskClearDue}
		if cmd.Flags().Changed("name") {
			upd.Name = &taskName
		}
		if cmd.Flags().Changed("description") {
			upd.Description = &taskDescription
		}
		if cmd.Flags().Changed("assignee") {
			upd.AssigneeID = &taskAssignee
		}
		if cmd.Flags().Changed("priority") {
			upd.Priority = &taskPriority
		}
		if taskDeadline != "" {
			deadline, err := parseDeadline(taskDeadline)
			if err != nil {
				return err
			}
			upd.Deadline = &deadline
		}

		task, err := newEngine(db, logger).UpdateTask(commandContext(), args[0], taskActor, upd)
		if err != nil {
			return err
		}
		fmt.Printf("Updated task %s\n", task.ID)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Change a task's status",
	Long: `Transition a task to todo, in_progress, review, completed or
blocked. Completing a task fires the action rules on its outgoing
dependency edges.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		res, err := newEngine(db, logger).ChangeTaskStatus(commandContext(), args[0], models.Status(args[1]), taskActor)
		if err != nil {
			return err
		}
		if !res.StatusChanged {
			fmt.Printf("Task already %s\n", res.NewStatus)
			return nil
		}
		fmt.Printf("Task %s: %s -> %s\n", res.Task.ID, res.OldStatus, res.NewStatus)
		for _, action := range res.ActionsExecuted {
			line := fmt.Sprintf("  action %s: %s", action.Type, action.Outcome)
			if action.Detail != "" {
				line += " (" + action.Detail + ")"
			}
			if action.ScheduledFor != nil {
				line += " at " + action.ScheduledFor.Format(time.RFC3339)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and its edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskActor == "" {
			return fmt.Errorf("--actor is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		if err := newEngine(db, logger).DeleteTask(commandContext(), args[0], taskActor); err != nil {
			return err
		}
		fmt.Printf("Deleted task %s\n", args[0])
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list <project-slug>",
	Short: "List a project's tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		project, err := lookupProject(db, args[0])
		if err != nil {
			return err
		}

		filter, err := buildTaskFilter(taskListStatus, taskAssignee)
		if err != nil {
			return err
		}

		tasks, err := db.ProjectTasks(project.ID, filter)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}
		for _, t := range tasks {
			line := fmt.Sprintf("%-36s  %-12s  %s", t.ID, t.Status, t.Name)
			if t.Deadline != nil {
				line += "  (due " + t.Deadline.Format("2006-01-02 15:04") + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

// buildTaskFilter translates the list flags into a store filter.
func buildTaskFilter(statusFlag, assignee string) (store.TaskFilter, error) {
	filter := store.TaskFilter{AssigneeID: assignee}
	if statusFlag != "" {
		status := models.Status(statusFlag)
		if !status.Valid() {
			return store.TaskFilter{}, fmt.Errorf("unknown status %q", statusFlag)
		}
		filter.Status = status
	}
	return filter, nil
}

// checkRenameAllowed rejects renames by members in the developer role.
func checkRenameAllowed(db *store.DB, taskID, actorID string) error {
	actor, err := db.GetUser(actorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	if actor == nil || actor.IsSuperuser {
		return nil
	}
	task, err := db.GetTask(taskID)
	if err != nil || task == nil {
		return nil // Engine reports the missing task with a proper kind.
	}
	member, err := db.GetMember(task.ProjectID, actorID)
	if err != nil {
		return fmt.Errorf("load membership: %w", err)
	}
	if member != nil && member.Role == models.RoleDeveloper {
		return fmt.Errorf("the developer role cannot rename tasks")
	}
	return nil
}

// parseDeadline accepts RFC3339 or a bare date.
func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse deadline %q (want RFC3339 or YYYY-MM-DD)", s)
}

func init() {
	for _, c := range []*cobra.Command{taskCreateCmd, taskUpdateCmd, taskStatusCmd, taskDeleteCmd} {
		c.Flags().StringVar(&taskActor, "actor", "", "Acting user ID")
	}

	taskCreateCmd.Flags().StringVar(&taskProject, "project", "", "Project slug or ID")
	taskCreateCmd.Flags().StringVar(&taskDescription, "description", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Assignee user ID")
	taskCreateCmd.Flags().StringVar(&taskDeadline, "deadline", "", "Deadline (RFC3339 or YYYY-MM-DD)")
	taskCreateCmd.Flags().IntVar(&taskPriority, "priority", 0, "Priority (0 normal, 1 high, 2 urgent)")

	taskUpdateCmd.Flags().StringVar(&taskName, "name", "", "New name")
	taskUpdateCmd.Flags().StringVar(&taskDescription, "description", "", "New description")
	taskUpdateCmd.Flags().StringVar(&taskAssignee, "assignee", "", "New assignee user ID (empty to unassign)")
	taskUpdateCmd.Flags().StringVar(&taskDeadline, "deadline", "", "New deadline")
	taskUpdateCmd.Flags().BoolVar(&taskClearDue, "clear-deadline", false, "Remove the deadline")
	taskUpdateCmd.Flags().IntVar(&taskPriority, "priority", 0, "New priority")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status")
	taskListCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Filter by assignee")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskListCmd)
}
