// Package models defines the shared data model for the taskgrid engine:
// projects, members, roles, tasks, dependency edges, dependency actions,
// the immutable event log, and scheduled actions.
package models

// Status represents the workflow state of a task.
//
// The status set is closed: the constants below are the whole set, and
// adding one is a schema migration plus a release, not a runtime insert.
type Status string

const (
	// StatusTodo indicates the task has not started.
	StatusTodo Status = "todo"
	// StatusInProgress indicates the task is being worked on.
	StatusInProgress Status = "in_progress"
	// StatusReview indicates the task is awaiting review.
	StatusReview Status = "review"
	// StatusCompleted indicates the task is finished. It is the only
	// final status and the only one that satisfies downstream readiness.
	StatusCompleted Status = "completed"
	// StatusBlocked indicates the task cannot proceed.
	StatusBlocked Status = "blocked"
)

// AllStatuses lists every status in display order.
func AllStatuses() []Status {
	return []Status{StatusBlocked, StatusTodo, StatusInProgress, StatusReview, StatusCompleted}
}

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// IsFinal returns true for terminal statuses. Entering a final status
// triggers evaluation of the task's outgoing dependency edges.
func (s Status) IsFinal() bool {
	return s == StatusCompleted
}

// IsBlocking returns true for statuses that mark a task as stuck.
func (s Status) IsBlocking() bool {
	return s == StatusBlocked
}

// DisplayName returns a human-readable label for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusTodo:
		return "To do"
	case StatusInProgress:
		return "In progress"
	case StatusReview:
		return "In review"
	case StatusCompleted:
		return "Completed"
	case StatusBlocked:
		return "Blocked"
	default:
		return string(s)
	}
}

// Color returns the hex color used when rendering the status.
func (s Status) Color() string {
	switch s {
	case StatusTodo:
		return "#757575"
	case StatusInProgress:
		return "#1976d2"
	case StatusReview:
		return "#ed6c02"
	case StatusCompleted:
		return "#2e7d32"
	case StatusBlocked:
		return "#d32f2f"
	default:
		return "#1976d2"
	}
}

// Order returns the sort position of the status on a board.
func (s Status) Order() int {
	switch s {
	case StatusBlocked:
		return 5
	case StatusTodo:
		return 10
	case StatusInProgress:
		return 20
	case StatusReview:
		return 30
	case StatusCompleted:
		return 40
	default:
		return 0
	}
}

// ActionType identifies what a dependency action does when its edge fires.
// Like Status, the set is closed.
type ActionType string

const (
	// ActionNotifyAssignee notifies the assignee of the target task.
	ActionNotifyAssignee ActionType = "notify_assignee"
	// ActionNotifyCreator notifies the creator of the source task.
	ActionNotifyCreator ActionType = "notify_creator"
	// ActionNotifyCustom notifies an explicitly configured user.
	ActionNotifyCustom ActionType = "notify_custom"
	// ActionChangeStatus transitions the target task to a configured status.
	ActionChangeStatus ActionType = "change_status"
	// ActionCreateSubtask creates a subtask under the target task.
	ActionCreateSubtask ActionType = "create_subtask"
)

// Valid returns true if the action type is a known value.
func (a ActionType) Valid() bool {
	switch a {
	case ActionNotifyAssignee, ActionNotifyCreator, ActionNotifyCustom, ActionChangeStatus, ActionCreateSubtask:
		return true
	default:
		return false
	}
}

// RequiresTargetUser reports whether the action must name an explicit recipient.
func (a ActionType) RequiresTargetUser() bool {
	return a == ActionNotifyCustom || a == ActionCreateSubtask
}

// RequiresTemplate reports whether the action must carry a message template.
func (a ActionType) RequiresTemplate() bool {
	switch a {
	case ActionNotifyAssignee, ActionNotifyCreator, ActionNotifyCustom:
		return true
	default:
		return false
	}
}

// SupportsDelay reports whether the action may be deferred with delay_minutes.
func (a ActionType) SupportsDelay() bool {
	return a == ActionNotifyCustom || a == ActionChangeStatus
}
