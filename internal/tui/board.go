// Package tui provides the terminal user interface for taskgrid. The
// board is a read-only live view of one project's graph: tasks with
// status and readiness, plus edge and action counts.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskgrid/internal/engine"
	"taskgrid/pkg/models"
)

// Status icons for the board.
const (
	iconTodo       = "○"
	iconInProgress = "◐"
	iconReview     = "◎"
	iconCompleted  = "●"
	iconBlocked    = "■"
	iconReady      = "▸"
)

// SnapshotFunc loads the current project graph. The board calls it on
// every refresh tick.
type SnapshotFunc func(ctx context.Context) (*engine.GraphSnapshot, error)

// snapshotMsg carries a refresh result.
type snapshotMsg struct {
	snap *engine.GraphSnapshot
	err  error
}

// tickMsg drives periodic refresh.
type tickMsg time.Time

// Board is the bubbletea model for the watch command.
type Board struct {
	fetch   SnapshotFunc
	refresh time.Duration

	snap     *engine.GraphSnapshot
	err      error
	selected int
	width    int
	height   int
	quitting bool
	loaded   bool

	spinner spinner.Model

	titleStyle    lipgloss.Style
	headerStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	normalStyle   lipgloss.Style
	dimStyle      lipgloss.Style
	todoStyle     lipgloss.Style
	runningStyle  lipgloss.Style
	reviewStyle   lipgloss.Style
	doneStyle     lipgloss.Style
	blockedStyle  lipgloss.Style
	readyStyle    lipgloss.Style
	errorStyle    lipgloss.Style
	footerStyle   lipgloss.Style
}

// NewBoard creates a Board that refreshes via fetch every refresh
// interval.
func NewBoard(fetch SnapshotFunc, refresh time.Duration) *Board {
	if refresh <= 0 {
		refresh = 2 * time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	return &Board{
		fetch:   fetch,
		refresh: refresh,
		spinner: sp,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		headerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		selectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true),

		normalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		todoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		reviewStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")), // Light blue

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")), // Dark green

		blockedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange

		readyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("48")). // Bright green
			Bold(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.spinner.Tick, b.load(), b.tick())
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			b.quitting = true
			return b, tea.Quit
		case "up", "k":
			if b.selected > 0 {
				b.selected--
			}
		case "down", "j":
			if b.snap != nil && b.selected < len(b.snap.Nodes)-1 {
				b.selected++
			}
		case "r":
			return b, b.load()
		}

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height

	case snapshotMsg:
		b.loaded = true
		b.err = msg.err
		if msg.err == nil {
			b.snap = msg.snap
			if b.selected >= len(b.snap.Nodes) {
				b.selected = len(b.snap.Nodes) - 1
			}
			if b.selected < 0 {
				b.selected = 0
			}
		}

	case tickMsg:
		return b, tea.Batch(b.load(), b.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd
	}

	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.quitting {
		return ""
	}
	if !b.loaded {
		return fmt.Sprintf("\n %s loading project...\n", b.spinner.View())
	}
	if b.err != nil {
		return b.errorStyle.Render(fmt.Sprintf("\n error: %v\n", b.err)) +
			b.footerStyle.Render("\n r refresh · q quit\n")
	}

	var sb strings.Builder

	sb.WriteString(b.titleStyle.Render(b.snap.Project.Name))
	sb.WriteString("\n")
	sb.WriteString(b.headerStyle.Render(b.summaryLine()))
	sb.WriteString("\n\n")

	if len(b.snap.Nodes) == 0 {
		sb.WriteString(b.dimStyle.Render("  No tasks"))
		sb.WriteString("\n")
	}
	for i, node := range b.snap.Nodes {
		sb.WriteString(b.renderTaskLine(node, i == b.selected))
		sb.WriteString("\n")
	}

	if len(b.snap.Edges) > 0 {
		sb.WriteString("\n")
		sb.WriteString(b.headerStyle.Render(fmt.Sprintf(" %d dependencies, %d action rules", len(b.snap.Edges), b.activeActionCount())))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(b.footerStyle.Render(" ↑/↓ select · r refresh · q quit"))
	sb.WriteString("\n")
	return sb.String()
}

// summaryLine renders the per-status totals header.
func (b *Board) summaryLine() string {
	counts := map[models.Status]int{}
	ready := 0
	for _, node := range b.snap.Nodes {
		counts[node.Task.Status]++
		if node.Ready {
			ready++
		}
	}
	return fmt.Sprintf(" %d tasks · %d ready · %d in progress · %d completed",
		len(b.snap.Nodes), ready,
		counts[models.StatusInProgress], counts[models.StatusCompleted])
}

// renderTaskLine renders one task row with status icon and readiness
// marker.
func (b *Board) renderTaskLine(node engine.GraphNode, selected bool) string {
	icon := b.statusIcon(node.Task.Status)

	ready := "  "
	if node.Ready {
		ready = b.readyStyle.Render(iconReady) + " "
	}

	suffix := ""
	if node.Task.AssigneeID != "" {
		short := node.Task.AssigneeID
		if len(short) > 8 {
			short = short[:8]
		}
		suffix = b.dimStyle.Render(fmt.Sprintf(" [%s]", short))
	}
	if node.Task.Deadline != nil {
		suffix += b.dimStyle.Render(" due " + node.Task.Deadline.Format("Jan 2 15:04"))
	}

	name := truncate(node.Task.Name, b.nameWidth(suffix))
	line := fmt.Sprintf(" %s%s %s%s", ready, icon, name, suffix)

	if selected {
		return b.selectedStyle.Render(line)
	}
	return b.normalStyle.Render(line)
}

// nameWidth bounds the task name so the row fits the terminal.
func (b *Board) nameWidth(suffix string) int {
	width := b.width - 10 - lipgloss.Width(suffix)
	if width < 10 {
		width = 10
	}
	return width
}

func (b *Board) activeActionCount() int {
	total := 0
	for _, edge := range b.snap.Edges {
		total += edge.ActiveActions
	}
	return total
}

// statusIcon returns the styled icon for a task status.
func (b *Board) statusIcon(status models.Status) string {
	switch status {
	case models.StatusTodo:
		return b.todoStyle.Render(iconTodo)
	case models.StatusInProgress:
		return b.runningStyle.Render(iconInProgress)
	case models.StatusReview:
		return b.reviewStyle.Render(iconReview)
	case models.StatusCompleted:
		return b.doneStyle.Render(iconCompleted)
	case models.StatusBlocked:
		return b.blockedStyle.Render(iconBlocked)
	default:
		return b.todoStyle.Render(iconTodo)
	}
}

// SelectedTask returns the currently selected task, or nil.
func (b *Board) SelectedTask() *models.Task {
	if b.snap == nil || b.selected < 0 || b.selected >= len(b.snap.Nodes) {
		return nil
	}
	return &b.snap.Nodes[b.selected].Task
}

func (b *Board) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		snap, err := b.fetch(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (b *Board) tick() tea.Cmd {
	return tea.Tick(b.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
