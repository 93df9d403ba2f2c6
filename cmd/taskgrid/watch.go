package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taskgrid/internal/engine"
	"taskgrid/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <project-slug>",
	Short: "Live board of a project's graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		project, err := lookupProject(db, args[0])
		if err != nil {
			return err
		}

		eng := newEngine(db, logger)
		board := tui.NewBoard(func(ctx context.Context) (*engine.GraphSnapshot, error) {
			return eng.ProjectGraph(ctx, project.ID)
		}, cfg.TUI.RefreshRate)

		if _, err := tea.NewProgram(board, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("run board: %w", err)
		}
		return nil
	},
}
