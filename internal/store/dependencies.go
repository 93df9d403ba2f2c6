package store

import (
	"database/sql"
	"fmt"

	"taskgrid/pkg/models"
)

const depColumns = `id, project_id, source_task_id, target_task_id,
	dependency_type, description, created_by, created_at`

// CreateDependency inserts an edge. The (source, target) unique index
// makes duplicate edges fail with a unique violation.
func (db *DB) CreateDependency(d *models.Dependency) error {
	_, err := db.Exec(`
		INSERT INTO task_dependencies (`+depColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.ProjectID, d.SourceTaskID, d.TargetTaskID,
		d.Type, d.Description, nullString(d.CreatedBy), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("create dependency: %w", err)
	}
	return nil
}

// GetDependency retrieves an edge by ID. Returns (nil, nil) when not
// found.
func (db *DB) GetDependency(id string) (*models.Dependency, error) {
	row := db.QueryRow(`SELECT `+depColumns+` FROM task_dependencies WHERE id = ?`, id)
	d, err := scanDependency(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency: %w", err)
	}
	return d, nil
}

// DeleteDependency removes an edge and its actions.
func (db *DB) DeleteDependency(id string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM dependency_actions WHERE dependency_id = ?`, id); err != nil {
			return fmt.Errorf("delete dependency actions: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM task_dependencies WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete dependency: %w", err)
		}
		return nil
	})
}

// DeleteTaskDependencies removes every edge touching the task, with
// their actions.
func (db *DB) DeleteTaskDependencies(taskID string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			DELETE FROM dependency_actions WHERE dependency_id IN (
				SELECT id FROM task_dependencies
				WHERE source_task_id = ? OR target_task_id = ?
			)
		`, taskID, taskID)
		if err != nil {
			return fmt.Errorf("delete edge actions: %w", err)
		}
		_, err = tx.Exec(`
			DELETE FROM task_dependencies WHERE source_task_id = ? OR target_task_id = ?
		`, taskID, taskID)
		if err != nil {
			return fmt.Errorf("delete task edges: %w", err)
		}
		return nil
	})
}

// ProjectDependencies lists every edge in a project in creation order.
func (db *DB) ProjectDependencies(projectID string) ([]models.Dependency, error) {
	return db.queryDependencies(`
		SELECT `+depColumns+` FROM task_dependencies
		WHERE project_id = ? ORDER BY created_at, id
	`, projectID)
}

// IncomingDependencies lists the edges whose target is the task.
func (db *DB) IncomingDependencies(taskID string) ([]models.Dependency, error) {
	return db.queryDependencies(`
		SELECT `+depColumns+` FROM task_dependencies
		WHERE target_task_id = ? ORDER BY created_at, id
	`, taskID)
}

// OutgoingDependencies lists the edges whose source is the task.
func (db *DB) OutgoingDependencies(taskID string) ([]models.Dependency, error) {
	return db.queryDependencies(`
		SELECT `+depColumns+` FROM task_dependencies
		WHERE source_task_id = ? ORDER BY created_at, id
	`, taskID)
}

func (db *DB) queryDependencies(query string, args ...any) ([]models.Dependency, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []models.Dependency
	for rows.Next() {
		d, err := scanDependency(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, *d)
	}
	return deps, rows.Err()
}

func scanDependency(scan func(...any) error) (*models.Dependency, error) {
	var d models.Dependency
	var description, createdBy sql.NullString
	var createdAt string

	err := scan(&d.ID, &d.ProjectID, &d.SourceTaskID, &d.TargetTaskID,
		&d.Type, &description, &createdBy, &createdAt)
	if err != nil {
		return nil, err
	}
	d.Description = description.String
	d.CreatedBy = createdBy.String
	d.CreatedAt, _ = parseTime(createdAt)
	return &d, nil
}

// Dependency action operations

const actionColumns = `id, dependency_id, action_type, target_user_id, target_status,
	message_template, delay_minutes, execute_order, is_active, created_at`

// CreateDependencyAction inserts an action rule on an edge.
func (db *DB) CreateDependencyAction(a *models.DependencyAction) error {
	_, err := db.Exec(`
		INSERT INTO dependency_actions (`+actionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.DependencyID, string(a.Type), nullString(a.TargetUserID),
		nullString(string(a.TargetStatus)), a.MessageTemplate,
		a.DelayMinutes, a.ExecuteOrder, a.IsActive, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create dependency action: %w", err)
	}
	return nil
}

// GetDependencyAction retrieves an action by ID. Returns (nil, nil) when
// not found.
func (db *DB) GetDependencyAction(id string) (*models.DependencyAction, error) {
	row := db.QueryRow(`SELECT `+actionColumns+` FROM dependency_actions WHERE id = ?`, id)
	a, err := scanAction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency action: %w", err)
	}
	return a, nil
}

// DeleteDependencyAction removes an action rule.
func (db *DB) DeleteDependencyAction(id string) error {
	_, err := db.Exec(`DELETE FROM dependency_actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dependency action: %w", err)
	}
	return nil
}

// ListDependencyActions returns an edge's actions ordered by
// execute_order, ties broken by insertion order. Inactive actions are
// included; the evaluator filters them.
func (db *DB) ListDependencyActions(dependencyID string) ([]models.DependencyAction, error) {
	rows, err := db.Query(`
		SELECT `+actionColumns+` FROM dependency_actions
		WHERE dependency_id = ? ORDER BY execute_order, created_at, rowid
	`, dependencyID)
	if err != nil {
		return nil, fmt.Errorf("list dependency actions: %w", err)
	}
	defer rows.Close()

	var actions []models.DependencyAction
	for rows.Next() {
		a, err := scanAction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan dependency action: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

func scanAction(scan func(...any) error) (*models.DependencyAction, error) {
	var a models.DependencyAction
	var targetUser, targetStatus, template sql.NullString
	var createdAt string

	err := scan(&a.ID, &a.DependencyID, &a.Type, &targetUser, &targetStatus,
		&template, &a.DelayMinutes, &a.ExecuteOrder, &a.IsActive, &createdAt)
	if err != nil {
		return nil, err
	}
	a.TargetUserID = targetUser.String
	a.TargetStatus = models.Status(targetStatus.String)
	a.MessageTemplate = template.String
	a.CreatedAt, _ = parseTime(createdAt)
	return &a, nil
}
