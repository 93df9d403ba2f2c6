package models

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectActive is the normal working state.
	ProjectActive ProjectStatus = "active"
	// ProjectArchived hides the project without destroying it.
	ProjectArchived ProjectStatus = "archived"
	// ProjectDeleted marks a soft-deleted project. Its tasks, edges and
	// scheduled actions are cancelled but back-references stay intact.
	ProjectDeleted ProjectStatus = "deleted"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectArchived, ProjectDeleted:
		return true
	default:
		return false
	}
}

// Project is the scoping container for tasks and dependencies. Every task
// and every edge lives within exactly one project.
type Project struct {
	// ID is the unique identifier for this project.
	ID string `json:"id"`
	// Name is the human-readable project name.
	Name string `json:"name"`
	// Slug is a short URL-safe handle.
	Slug string `json:"slug"`
	// Status is the lifecycle state of the project.
	Status ProjectStatus `json:"status"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
}

// ProjectRole is a named bundle of boolean capabilities scoped to one
// project. The canonical instances are built by DefaultRoles; deployments
// may define additional roles.
type ProjectRole struct {
	// Name identifies the role (owner, manager, developer, observer, ...).
	Name string `json:"name"`
	// Description explains the role to humans.
	Description string `json:"description,omitempty"`
	// Priority orders roles when displaying members.
	Priority int `json:"priority"`

	CanCreateTasks   bool `json:"can_create_tasks"`
	CanEditAnyTask   bool `json:"can_edit_any_task"`
	CanDeleteAnyTask bool `json:"can_delete_any_task"`
	CanEditOwnTask   bool `json:"can_edit_own_task"`
	CanDeleteOwnTask bool `json:"can_delete_own_task"`

	CanCreateDependencies bool `json:"can_create_dependencies"`
	CanDeleteDependencies bool `json:"can_delete_dependencies"`

	CanManageMembers bool `json:"can_manage_members"`
	CanEditProject   bool `json:"can_edit_project"`
	CanDeleteProject bool `json:"can_delete_project"`
}

// Canonical role names.
const (
	RoleOwner     = "owner"
	RoleManager   = "manager"
	RoleDeveloper = "developer"
	RoleObserver  = "observer"
)

// DefaultRoles returns the canonical role set:
// owner (everything), manager (everything except deleting the project),
// developer (own tasks plus creating edges), observer (read-only).
func DefaultRoles() []ProjectRole {
	return []ProjectRole{
		{
			Name:                  RoleOwner,
			Description:           "Project owner",
			Priority:              100,
			CanCreateTasks:        true,
			CanEditAnyTask:        true,
			CanDeleteAnyTask:      true,
			CanEditOwnTask:        true,
			CanDeleteOwnTask:      true,
			CanCreateDependencies: true,
			CanDeleteDependencies: true,
			CanManageMembers:      true,
			CanEditProject:        true,
			CanDeleteProject:      true,
		},
		{
			Name:                  RoleManager,
			Description:           "Project manager",
			Priority:              80,
			CanCreateTasks:        true,
			CanEditAnyTask:        true,
			CanDeleteAnyTask:      true,
			CanEditOwnTask:        true,
			CanDeleteOwnTask:      true,
			CanCreateDependencies: true,
			CanDeleteDependencies: true,
			CanManageMembers:      true,
			CanEditProject:        true,
		},
		{
			Name:                  RoleDeveloper,
			Description:           "Works on own tasks",
			Priority:              50,
			CanCreateTasks:        true,
			CanEditOwnTask:        true,
			CanDeleteOwnTask:      true,
			CanCreateDependencies: true,
		},
		{
			Name:        RoleObserver,
			Description: "Read-only access",
			Priority:    10,
		},
	}
}

// ProjectMember ties a user to a project with a role. Unique on
// (project, user); removal flips IsActive rather than deleting the row.
type ProjectMember struct {
	// ProjectID is the project this membership belongs to.
	ProjectID string `json:"project_id"`
	// UserID is the member.
	UserID string `json:"user_id"`
	// Role is the name of the member's ProjectRole.
	Role string `json:"role"`
	// IsActive is false once the member has been removed.
	IsActive bool `json:"is_active"`
	// AddedAt is when the membership was first created.
	AddedAt time.Time `json:"added_at"`
	// UpdatedAt is when the membership last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
