package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"taskgrid/pkg/models"
)

// User CRUD operations

// CreateUser inserts a new user.
func (db *DB) CreateUser(u *models.User) error {
	prefs, err := marshalPrefs(u.NotificationPrefs)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO users (id, username, is_active, is_superuser, notification_prefs)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.IsActive, u.IsSuperuser, prefs)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (db *DB) GetUser(id string) (*models.User, error) {
	row := db.QueryRow(`
		SELECT id, username, is_active, is_superuser, notification_prefs
		FROM users WHERE id = ?
	`, id)

	var u models.User
	var prefs sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.IsActive, &u.IsSuperuser, &prefs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if u.NotificationPrefs, err = unmarshalPrefs(prefs); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UpdateUser updates a user's mutable fields.
func (db *DB) UpdateUser(u *models.User) error {
	prefs, err := marshalPrefs(u.NotificationPrefs)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	_, err = db.Exec(`
		UPDATE users SET username = ?, is_active = ?, is_superuser = ?, notification_prefs = ?
		WHERE id = ?
	`, u.Username, u.IsActive, u.IsSuperuser, prefs, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func marshalPrefs(prefs map[models.NotificationKind]bool) (any, error) {
	if prefs == nil {
		return nil, nil
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshal notification prefs: %w", err)
	}
	return string(data), nil
}

func unmarshalPrefs(s sql.NullString) (map[models.NotificationKind]bool, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var prefs map[models.NotificationKind]bool
	if err := json.Unmarshal([]byte(s.String), &prefs); err != nil {
		return nil, fmt.Errorf("unmarshal notification prefs: %w", err)
	}
	return prefs, nil
}

// Project CRUD operations

// CreateProject inserts a new project.
func (db *DB) CreateProject(p *models.Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (id, name, slug, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Slug, string(p.Status), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID. Returns (nil, nil) when not found.
func (db *DB) GetProject(id string) (*models.Project, error) {
	return db.scanProject(db.QueryRow(`
		SELECT id, name, slug, status, created_at FROM projects WHERE id = ?
	`, id))
}

// GetProjectBySlug retrieves a project by its slug.
func (db *DB) GetProjectBySlug(slug string) (*models.Project, error) {
	return db.scanProject(db.QueryRow(`
		SELECT id, name, slug, status, created_at FROM projects WHERE slug = ?
	`, slug))
}

func (db *DB) scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt, _ = parseTime(createdAt)
	return &p, nil
}

// UpdateProject updates a project's mutable fields.
func (db *DB) UpdateProject(p *models.Project) error {
	_, err := db.Exec(`
		UPDATE projects SET name = ?, slug = ?, status = ? WHERE id = ?
	`, p.Name, p.Slug, string(p.Status), p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// Role operations

// UpsertRole inserts or replaces a role definition.
func (db *DB) UpsertRole(r *models.ProjectRole) error {
	_, err := db.Exec(`
		INSERT INTO project_roles (
			name, description, priority,
			can_create_tasks, can_edit_any_task, can_delete_any_task,
			can_edit_own_task, can_delete_own_task,
			can_create_dependencies, can_delete_dependencies,
			can_manage_members, can_edit_project, can_delete_project
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			priority = excluded.priority,
			can_create_tasks = excluded.can_create_tasks,
			can_edit_any_task = excluded.can_edit_any_task,
			can_delete_any_task = excluded.can_delete_any_task,
			can_edit_own_task = excluded.can_edit_own_task,
			can_delete_own_task = excluded.can_delete_own_task,
			can_create_dependencies = excluded.can_create_dependencies,
			can_delete_dependencies = excluded.can_delete_dependencies,
			can_manage_members = excluded.can_manage_members,
			can_edit_project = excluded.can_edit_project,
			can_delete_project = excluded.can_delete_project
	`, r.Name, r.Description, r.Priority,
		r.CanCreateTasks, r.CanEditAnyTask, r.CanDeleteAnyTask,
		r.CanEditOwnTask, r.CanDeleteOwnTask,
		r.CanCreateDependencies, r.CanDeleteDependencies,
		r.CanManageMembers, r.CanEditProject, r.CanDeleteProject)
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

// SeedDefaultRoles installs the canonical role set.
func (db *DB) SeedDefaultRoles() error {
	for _, r := range models.DefaultRoles() {
		role := r
		if err := db.UpsertRole(&role); err != nil {
			return err
		}
	}
	return nil
}

// GetRole retrieves a role by name. Returns (nil, nil) when not found.
func (db *DB) GetRole(name string) (*models.ProjectRole, error) {
	row := db.QueryRow(`
		SELECT name, description, priority,
			can_create_tasks, can_edit_any_task, can_delete_any_task,
			can_edit_own_task, can_delete_own_task,
			can_create_dependencies, can_delete_dependencies,
			can_manage_members, can_edit_project, can_delete_project
		FROM project_roles WHERE name = ?
	`, name)

	var r models.ProjectRole
	err := row.Scan(&r.Name, &r.Description, &r.Priority,
		&r.CanCreateTasks, &r.CanEditAnyTask, &r.CanDeleteAnyTask,
		&r.CanEditOwnTask, &r.CanDeleteOwnTask,
		&r.CanCreateDependencies, &r.CanDeleteDependencies,
		&r.CanManageMembers, &r.CanEditProject, &r.CanDeleteProject)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return &r, nil
}

// Membership operations

// UpsertMember inserts or updates a project membership.
func (db *DB) UpsertMember(m *models.ProjectMember) error {
	_, err := db.Exec(`
		INSERT INTO project_members (project_id, user_id, role, is_active, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, user_id) DO UPDATE SET
			role = excluded.role,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, m.ProjectID, m.UserID, m.Role, m.IsActive, formatTime(m.AddedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// GetMember retrieves the membership for (project, user). Returns
// (nil, nil) when there is no row.
func (db *DB) GetMember(projectID, userID string) (*models.ProjectMember, error) {
	row := db.QueryRow(`
		SELECT project_id, user_id, role, is_active, added_at, updated_at
		FROM project_members WHERE project_id = ? AND user_id = ?
	`, projectID, userID)

	var m models.ProjectMember
	var addedAt, updatedAt string
	err := row.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.IsActive, &addedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	m.AddedAt, _ = parseTime(addedAt)
	m.UpdatedAt, _ = parseTime(updatedAt)
	return &m, nil
}

// ListMembers returns all active memberships of a project.
func (db *DB) ListMembers(projectID string) ([]models.ProjectMember, error) {
	rows, err := db.Query(`
		SELECT project_id, user_id, role, is_active, added_at, updated_at
		FROM project_members WHERE project_id = ? AND is_active = 1
		ORDER BY added_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.ProjectMember
	for rows.Next() {
		var m models.ProjectMember
		var addedAt, updatedAt string
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.IsActive, &addedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.AddedAt, _ = parseTime(addedAt)
		m.UpdatedAt, _ = parseTime(updatedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}
