package store

import (
	"database/sql"
	"fmt"

	"taskgrid/pkg/models"
)

const eventColumns = `id, project_id, task_id, user_id, event_type,
	old_value, new_value, metadata, created_at`

// AppendEvent writes one immutable event-log entry.
func (db *DB) AppendEvent(e *models.Event) error {
	_, err := db.Exec(`
		INSERT INTO task_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ProjectID, e.TaskID, nullString(e.UserID), string(e.Type),
		e.OldValue, e.NewValue, e.Metadata, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// TaskEvents returns a task's events, oldest first. limit <= 0 returns
// all of them.
func (db *DB) TaskEvents(taskID string, limit int) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM task_events WHERE task_id = ? ORDER BY created_at, id`
	args := []any{taskID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var userID, oldValue, newValue sql.NullString
		var createdAt string
		err := rows.Scan(&e.ID, &e.ProjectID, &e.TaskID, &userID, &e.Type,
			&oldValue, &newValue, &e.Metadata, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.UserID = userID.String
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		e.CreatedAt, _ = parseTime(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
