package models

import "time"

// Priority levels for tasks.
const (
	PriorityNormal = 0
	PriorityHigh   = 1
	PriorityUrgent = 2
)

// Task is a node in a project's dependency graph.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ProjectID is the project the task belongs to.
	ProjectID string `json:"project_id"`
	// Name is the short description of the task, 1..500 characters.
	Name string `json:"name"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Status is the current workflow state.
	Status Status `json:"status"`
	// AssigneeID is the user working on the task, if any. Weak reference.
	AssigneeID string `json:"assignee_id,omitempty"`
	// CreatorID is the user who created the task. Weak reference.
	CreatorID string `json:"creator_id"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// StartedAt is set exactly once, on the first transition into
	// in_progress.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is set exactly once, on the first transition into a
	// final status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Deadline is the optional due time; setting it schedules reminders.
	Deadline *time.Time `json:"deadline,omitempty"`
	// Priority is 0 (normal), 1 (high) or 2 (urgent).
	Priority int `json:"priority"`
	// PositionX and PositionY place the node on the graph canvas.
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	// Metadata is an opaque blob the engine stores but never interprets.
	Metadata []byte `json:"metadata,omitempty"`
}

// IsOverdue reports whether the task has a deadline in the past and is
// not in a final status.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now) && !t.Status.IsFinal()
}

// Dependency is a directed edge source -> target within one project:
// the source must complete before the target counts as ready.
type Dependency struct {
	// ID is the unique identifier for this edge.
	ID string `json:"id"`
	// ProjectID scopes the edge; it always equals the project of both
	// endpoint tasks.
	ProjectID string `json:"project_id"`
	// SourceTaskID is the upstream task.
	SourceTaskID string `json:"source_task_id"`
	// TargetTaskID is the downstream task.
	TargetTaskID string `json:"target_task_id"`
	// Type distinguishes edge flavors; "simple" by default.
	Type string `json:"dependency_type"`
	// Description annotates the edge.
	Description string `json:"description,omitempty"`
	// CreatedBy is the user who created the edge. Weak reference.
	CreatedBy string `json:"created_by"`
	// CreatedAt is when the edge was created.
	CreatedAt time.Time `json:"created_at"`
}

// DependencyTypeSimple is the default edge type.
const DependencyTypeSimple = "simple"

// DependencyAction is an ordered rule on an edge, executed when the edge's
// source task reaches a final status.
type DependencyAction struct {
	// ID is the unique identifier for this action.
	ID string `json:"id"`
	// DependencyID is the edge the action belongs to.
	DependencyID string `json:"dependency_id"`
	// Type selects the behavior.
	Type ActionType `json:"action_type"`
	// TargetUserID names the recipient for notify_custom. Weak reference.
	TargetUserID string `json:"target_user_id,omitempty"`
	// TargetStatus is the status change_status transitions the target to.
	TargetStatus Status `json:"target_status,omitempty"`
	// MessageTemplate is the notification text; {task_name},
	// {project_name} and {user} are substituted at dispatch time.
	MessageTemplate string `json:"message_template,omitempty"`
	// DelayMinutes defers execution through the scheduler when > 0.
	DelayMinutes int `json:"delay_minutes"`
	// ExecuteOrder orders actions on the same edge, ascending.
	ExecuteOrder int `json:"execute_order"`
	// IsActive disables the action without deleting it.
	IsActive bool `json:"is_active"`
	// CreatedAt is when the action was created.
	CreatedAt time.Time `json:"created_at"`
}

// EventType classifies entries in the task event log.
type EventType string

const (
	EventCreated           EventType = "created"
	EventUpdated           EventType = "updated"
	EventStatusChanged     EventType = "status_changed"
	EventDependencyAdded   EventType = "dependency_added"
	EventDependencyRemoved EventType = "dependency_removed"
	EventAssigneeChanged   EventType = "assignee_changed"
)

// Event is one immutable line in a task's audit log.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`
	// ProjectID and TaskID scope the event.
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
	// UserID is the actor. Weak reference.
	UserID string `json:"user_id"`
	// Type classifies the event.
	Type EventType `json:"event_type"`
	// OldValue and NewValue record the change for updates.
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
	// Metadata carries event-specific details as a JSON blob.
	Metadata []byte `json:"metadata,omitempty"`
	// CreatedAt is when the event was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// ScheduledStatus tracks a scheduled action through its lifetime.
// Transitions pending -> processing -> completed/failed are linearizable
// per row.
type ScheduledStatus string

const (
	ScheduledPending    ScheduledStatus = "pending"
	ScheduledProcessing ScheduledStatus = "processing"
	ScheduledCompleted  ScheduledStatus = "completed"
	ScheduledFailed     ScheduledStatus = "failed"
	ScheduledCancelled  ScheduledStatus = "cancelled"
)

// Scheduled action families dispatched by the worker.
const (
	// ScheduledDeadlineApproaching reminds a task's assignee before the
	// deadline; payload carries hours_before.
	ScheduledDeadlineApproaching = "deadline_approaching"
	// ScheduledDelayedNotification runs a deferred dependency action;
	// payload carries action_id, trigger_event and triggered_by.
	ScheduledDelayedNotification = "delayed_notification"
)

// ScheduledAction is a persisted unit of future work drained by the
// scheduler worker.
type ScheduledAction struct {
	// ID is the unique identifier for this row.
	ID string `json:"id"`
	// ProjectID and TaskID scope the work.
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
	// Type is one of the scheduled action families above.
	Type string `json:"action_type"`
	// ScheduledFor is the due time.
	ScheduledFor time.Time `json:"scheduled_for"`
	// ExecutedAt is set exactly once, when the row is dispatched.
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	// Payload is a JSON blob interpreted by the dispatcher.
	Payload []byte `json:"payload,omitempty"`
	// DependencyActionID links delayed notifications back to their rule.
	DependencyActionID string `json:"dependency_action_id,omitempty"`
	// Status is the row's lifecycle state.
	Status ScheduledStatus `json:"status"`
	// CreatedAt is when the row was enqueued.
	CreatedAt time.Time `json:"created_at"`
	// ClaimedAt is when a worker flipped the row to processing. The
	// reaper judges staleness by it, not by the due time.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}
