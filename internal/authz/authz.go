// Package authz holds the pure authorization predicates. Every
// state-changing engine operation starts with a check here. Predicates
// never touch the store; callers load the user, membership, role and task
// records first and pass them in. A nil role means "no capabilities",
// which is how non-members and removed members are expressed.
package authz

import (
	"taskgrid/pkg/models"
)

// IsSuperuser reports whether the user bypasses every project-level
// check. This is the single place superuser status is interpreted.
func IsSuperuser(u *models.User) bool {
	return u != nil && u.IsSuperuser
}

// IsMember reports whether the user has an active membership. The member
// record may be nil (no membership row).
func IsMember(u *models.User, m *models.ProjectMember) bool {
	if IsSuperuser(u) {
		return true
	}
	return u != nil && m != nil && m.IsActive && m.UserID == u.ID
}

// CanManageMembers reports whether the user may add, remove or re-role
// project members.
func CanManageMembers(u *models.User, role *models.ProjectRole) bool {
	return IsSuperuser(u) || (role != nil && role.CanManageMembers)
}

// CanEditProject reports whether the user may change project settings.
func CanEditProject(u *models.User, role *models.ProjectRole) bool {
	return IsSuperuser(u) || (role != nil && role.CanEditProject)
}

// CanDeleteProject reports whether the user may soft-delete the project.
func CanDeleteProject(u *models.User, role *models.ProjectRole) bool {
	return IsSuperuser(u) || (role != nil && role.CanDeleteProject)
}

// CanCreateTasks reports whether the user may create tasks in the
// project.
func CanCreateTasks(u *models.User, role *models.ProjectRole) bool {
	return IsSuperuser(u) || (role != nil && role.CanCreateTasks)
}

// CanEditTask reports whether the user may edit the given task: either
// the blanket edit capability, or the own-task capability when the user
// created the task or is assigned to it.
func CanEditTask(u *models.User, role *models.ProjectRole, task *models.Task) bool {
	if IsSuperuser(u) {
		return true
	}
	if u == nil || role == nil || task == nil {
		return false
	}
	if role.CanEditAnyTask {
		return true
	}
	return role.CanEditOwnTask && isOwn(u, task)
}

// CanDeleteTask reports whether the user may delete the given task. The
// own-task form requires the user to be the creator; being assignee is
// not enough to destroy a task.
func CanDeleteTask(u *models.User, role *models.ProjectRole, task *models.Task) bool {
	if IsSuperuser(u) {
		return true
	}
	if u == nil || role == nil || task == nil {
		return false
	}
	if role.CanDeleteAnyTask {
		return true
	}
	return role.CanDeleteOwnTask && task.CreatorID == u.ID
}

// CanCreateDependencies reports whether the user may add an edge whose
// source is the given task. The role flag is required; a user without
// the blanket edit capability must additionally be the source task's
// creator or assignee.
func CanCreateDependencies(u *models.User, role *models.ProjectRole, source *models.Task) bool {
	if IsSuperuser(u) {
		return true
	}
	if u == nil || role == nil || source == nil || !role.CanCreateDependencies {
		return false
	}
	if role.CanEditAnyTask {
		return true
	}
	return isOwn(u, source)
}

// CanDeleteDependencies reports whether the user may remove edges in the
// project.
func CanDeleteDependencies(u *models.User, role *models.ProjectRole) bool {
	return IsSuperuser(u) || (role != nil && role.CanDeleteDependencies)
}

// CanManageActions reports whether the user may attach or remove
// dependency actions. Actions mutate other people's tasks when they
// fire, so this requires the blanket edit capability.
func CanManageActions(u *models.User, role *models.ProjectRole) bool {
	return IsSuperuser(u) || (role != nil && role.CanEditAnyTask)
}

// isOwn reports whether the user created the task or is its assignee.
func isOwn(u *models.User, task *models.Task) bool {
	if task.CreatorID == u.ID {
		return true
	}
	return task.AssigneeID != "" && task.AssigneeID == u.ID
}
