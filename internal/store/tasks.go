package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"taskgrid/pkg/models"
)

const taskColumns = `id, project_id, name, description, status, assignee_id, creator_id,
	created_at, updated_at, started_at, completed_at, deadline,
	priority, position_x, position_y, metadata`

// TaskFilter narrows ProjectTasks. Zero values mean "no filter".
type TaskFilter struct {
	Status     models.Status
	AssigneeID string
	CreatorID  string
	Limit      int
	Offset     int
}

// TaskStats summarizes the tasks of one project.
type TaskStats struct {
	Total      int
	ByStatus   map[models.Status]int
	ByAssignee map[string]int
	Overdue    int
}

// UserTaskStats summarizes one user's tasks across all projects.
type UserTaskStats struct {
	Assigned       int
	Created        int
	Completed      int
	InProgress     int
	Overdue        int
	CompletionRate float64
}

// CreateTask inserts a new task.
func (db *DB) CreateTask(t *models.Task) error {
	_, err := db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProjectID, t.Name, t.Description, string(t.Status),
		nullString(t.AssigneeID), nullString(t.CreatorID),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		formatNullableTime(t.StartedAt), formatNullableTime(t.CompletedAt),
		formatNullableTime(t.Deadline),
		t.Priority, t.PositionX, t.PositionY, t.Metadata)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns (nil, nil) when not found.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask updates a task's mutable fields.
func (db *DB) UpdateTask(t *models.Task) error {
	_, err := db.Exec(`
		UPDATE tasks SET
			name = ?, description = ?, status = ?, assignee_id = ?,
			updated_at = ?, started_at = ?, completed_at = ?, deadline = ?,
			priority = ?, position_x = ?, position_y = ?, metadata = ?
		WHERE id = ?
	`, t.Name, t.Description, string(t.Status), nullString(t.AssigneeID),
		formatTime(t.UpdatedAt),
		formatNullableTime(t.StartedAt), formatNullableTime(t.CompletedAt),
		formatNullableTime(t.Deadline),
		t.Priority, t.PositionX, t.PositionY, t.Metadata, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask removes a task row. Edges and scheduled actions are cleaned
// up by the engine, not here.
func (db *DB) DeleteTask(id string) error {
	_, err := db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ProjectTasks lists a project's tasks, newest first within priority and
// deadline order, optionally filtered.
func (db *DB) ProjectTasks(projectID string, filter TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ?`
	args := []any{projectID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != "" {
		query += ` AND assignee_id = ?`
		args = append(args, filter.AssigneeID)
	}
	if filter.CreatorID != "" {
		query += ` AND creator_id = ?`
		args = append(args, filter.CreatorID)
	}

	query += ` ORDER BY priority DESC, deadline IS NULL, deadline, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ProjectTaskStats aggregates task counts for a project.
func (db *DB) ProjectTaskStats(projectID string, now time.Time) (*TaskStats, error) {
	stats := &TaskStats{
		ByStatus:   make(map[models.Status]int),
		ByAssignee: make(map[string]int),
	}

	rows, err := db.Query(`
		SELECT status, COALESCE(assignee_id, ''), deadline FROM tasks WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, assignee string
		var deadline sql.NullString
		if err := rows.Scan(&status, &assignee, &deadline); err != nil {
			return nil, fmt.Errorf("scan task stats: %w", err)
		}
		stats.Total++
		stats.ByStatus[models.Status(status)]++
		if assignee != "" {
			stats.ByAssignee[assignee]++
		}
		if d := parseNullableTime(deadline); d != nil && d.Before(now) && !models.Status(status).IsFinal() {
			stats.Overdue++
		}
	}
	return stats, rows.Err()
}

// UserStats aggregates a user's task counts across all projects.
func (db *DB) UserStats(userID string, now time.Time) (*UserTaskStats, error) {
	stats := &UserTaskStats{}

	rows, err := db.Query(`
		SELECT status, creator_id, COALESCE(assignee_id, ''), deadline
		FROM tasks WHERE creator_id = ? OR assignee_id = ?
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, assignee string
		var creator sql.NullString
		var deadline sql.NullString
		if err := rows.Scan(&status, &creator, &assignee, &deadline); err != nil {
			return nil, fmt.Errorf("scan user stats: %w", err)
		}

		st := models.Status(status)
		if creator.Valid && creator.String == userID {
			stats.Created++
		}
		if assignee == userID {
			stats.Assigned++
			switch {
			case st.IsFinal():
				stats.Completed++
			case st == models.StatusInProgress:
				stats.InProgress++
			}
			if d := parseNullableTime(deadline); d != nil && d.Before(now) && !st.IsFinal() {
				stats.Overdue++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Assigned > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Assigned)
	}
	return stats, nil
}

// scanTask reads one task row through the given scan function.
func scanTask(scan func(...any) error) (*models.Task, error) {
	var t models.Task
	var description, status sql.NullString
	var assignee, creator sql.NullString
	var createdAt, updatedAt string
	var startedAt, completedAt, deadline sql.NullString

	err := scan(&t.ID, &t.ProjectID, &t.Name, &description, &status,
		&assignee, &creator, &createdAt, &updatedAt,
		&startedAt, &completedAt, &deadline,
		&t.Priority, &t.PositionX, &t.PositionY, &t.Metadata)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Status = models.Status(status.String)
	t.AssigneeID = assignee.String
	t.CreatorID = creator.String
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	t.StartedAt = parseNullableTime(startedAt)
	t.CompletedAt = parseNullableTime(completedAt)
	t.Deadline = parseNullableTime(deadline)
	return &t, nil
}

// nullString maps the empty string to NULL for weak references.
func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// ClearUserReferences nulls out weak references to a destroyed user so
// surfaces render them as unknown.
func (db *DB) ClearUserReferences(userID string) error {
	stmts := []string{
		`UPDATE tasks SET assignee_id = NULL WHERE assignee_id = ?`,
		`UPDATE tasks SET creator_id = NULL WHERE creator_id = ?`,
		`UPDATE task_dependencies SET created_by = NULL WHERE created_by = ?`,
		`UPDATE dependency_actions SET target_user_id = NULL WHERE target_user_id = ?`,
		`UPDATE task_events SET user_id = NULL WHERE user_id = ?`,
	}
	return db.Transaction(func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt, userID); err != nil {
				return fmt.Errorf("clear user references: %w", err)
			}
		}
		return nil
	})
}
