// Package store provides SQLite-based persistence for the task engine.
package store

import (
	"io"
	"time"

	"taskgrid/pkg/models"
)

// PrincipalStore handles user, project, role and membership persistence.
type PrincipalStore interface {
	CreateUser(u *models.User) error
	GetUser(id string) (*models.User, error)
	UpdateUser(u *models.User) error
	ClearUserReferences(userID string) error

	CreateProject(p *models.Project) error
	GetProject(id string) (*models.Project, error)
	GetProjectBySlug(slug string) (*models.Project, error)
	UpdateProject(p *models.Project) error

	UpsertRole(r *models.ProjectRole) error
	SeedDefaultRoles() error
	GetRole(name string) (*models.ProjectRole, error)

	UpsertMember(m *models.ProjectMember) error
	GetMember(projectID, userID string) (*models.ProjectMember, error)
	ListMembers(projectID string) ([]models.ProjectMember, error)
}

// TaskStore handles task persistence and aggregation.
type TaskStore interface {
	CreateTask(t *models.Task) error
	GetTask(id string) (*models.Task, error)
	UpdateTask(t *models.Task) error
	DeleteTask(id string) error
	ProjectTasks(projectID string, filter TaskFilter) ([]models.Task, error)
	ProjectTaskStats(projectID string, now time.Time) (*TaskStats, error)
	UserStats(userID string, now time.Time) (*UserTaskStats, error)
}

// DependencyStore handles edge and action-rule persistence.
type DependencyStore interface {
	CreateDependency(d *models.Dependency) error
	GetDependency(id string) (*models.Dependency, error)
	DeleteDependency(id string) error
	DeleteTaskDependencies(taskID string) error
	ProjectDependencies(projectID string) ([]models.Dependency, error)
	IncomingDependencies(taskID string) ([]models.Dependency, error)
	OutgoingDependencies(taskID string) ([]models.Dependency, error)

	CreateDependencyAction(a *models.DependencyAction) error
	GetDependencyAction(id string) (*models.DependencyAction, error)
	DeleteDependencyAction(id string) error
	ListDependencyActions(dependencyID string) ([]models.DependencyAction, error)
}

// EventStore appends to and reads the immutable event log.
type EventStore interface {
	AppendEvent(e *models.Event) error
	TaskEvents(taskID string, limit int) ([]models.Event, error)
}

// SchedulerStore handles the persistent queue of future work.
type SchedulerStore interface {
	CreateScheduledAction(a *models.ScheduledAction) error
	GetScheduledAction(id string) (*models.ScheduledAction, error)
	ClaimDueScheduledActions(now time.Time, limit int) ([]models.ScheduledAction, error)
	MarkScheduledActionDone(id string, status models.ScheduledStatus, executedAt time.Time, payload []byte) error
	RequeueStaleProcessing(olderThan time.Time) (int64, error)
	CancelScheduledActions(taskID, actionType string) (int64, error)
	CancelProjectScheduledActions(projectID string) (int64, error)
	PendingScheduledActions(taskID string) ([]models.ScheduledAction, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store is the full persistence contract consumed by the engine and the
// scheduler worker. It composes focused sub-interfaces so callers can
// depend on just the slice they use.
type Store interface {
	io.Closer
	Migrator
	PrincipalStore
	TaskStore
	DependencyStore
	EventStore
	SchedulerStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store           = (*DB)(nil)
	_ Migrator        = (*DB)(nil)
	_ PrincipalStore  = (*DB)(nil)
	_ TaskStore       = (*DB)(nil)
	_ DependencyStore = (*DB)(nil)
	_ EventStore      = (*DB)(nil)
	_ SchedulerStore  = (*DB)(nil)
)
