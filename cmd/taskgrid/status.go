package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskgrid/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <project-slug>",
	Short: "Show a project's current state",
	Long: `Display the current state of a project.

Shows:
  - Task counts by status and overdue tasks
  - Tasks that are ready to start
  - Dependency edges and active action rules
  - Pending scheduled work`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	stats, err := db.ProjectTaskStats(project.ID, time.Now())
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	fmt.Printf("Project: %s (%s)\n", project.Name, project.Status)
	fmt.Printf("  Tasks: %d total\n", stats.Total)
	for _, status := range []models.Status{
		models.StatusTodo, models.StatusInProgress, models.StatusReview,
		models.StatusCompleted, models.StatusBlocked,
	} {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Printf("    %-12s %d\n", status, n)
		}
	}
	if stats.Overdue > 0 {
		fmt.Printf("  Overdue: %s\n", color.RedString("%d", stats.Overdue))
	}

	snap, err := newEngine(db, logger).ProjectGraph(commandContext(), project.ID)
	if err != nil {
		return err
	}

	var ready []string
	for _, node := range snap.Nodes {
		if node.Ready {
			ready = append(ready, node.Task.Name)
		}
	}
	if len(ready) > 0 {
		fmt.Printf("\nReady to start:\n")
		for _, name := range ready {
			fmt.Printf("  %s %s\n", color.GreenString("▸"), name)
		}
	}

	actions := 0
	for _, edge := range snap.Edges {
		actions += edge.ActiveActions
	}
	fmt.Printf("\nGraph: %d edges, %d active action rules\n", len(snap.Edges), actions)

	pending := 0
	for _, node := range snap.Nodes {
		rows, err := db.PendingScheduledActions(node.Task.ID)
		if err != nil {
			return fmt.Errorf("load scheduled work: %w", err)
		}
		pending += len(rows)
	}
	if pending > 0 {
		fmt.Printf("Scheduled: %d pending actions (run 'taskgrid worker' to dispatch)\n", pending)
	}
	return nil
}
