package store

import (
	"database/sql"
	"fmt"
	"time"

	"taskgrid/pkg/models"
)

const scheduledColumns = `id, project_id, task_id, action_type, scheduled_for,
	executed_at, payload, dependency_action_id, status, created_at, claimed_at`

// CreateScheduledAction enqueues a unit of future work.
func (db *DB) CreateScheduledAction(a *models.ScheduledAction) error {
	_, err := db.Exec(`
		INSERT INTO scheduled_actions (`+scheduledColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ProjectID, a.TaskID, a.Type, formatTime(a.ScheduledFor),
		formatNullableTime(a.ExecutedAt), a.Payload,
		nullString(a.DependencyActionID), string(a.Status), formatTime(a.CreatedAt),
		formatNullableTime(a.ClaimedAt))
	if err != nil {
		return fmt.Errorf("create scheduled action: %w", err)
	}
	return nil
}

// GetScheduledAction retrieves a row by ID. Returns (nil, nil) when not
// found.
func (db *DB) GetScheduledAction(id string) (*models.ScheduledAction, error) {
	row := db.QueryRow(`SELECT `+scheduledColumns+` FROM scheduled_actions WHERE id = ?`, id)
	a, err := scanScheduled(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled action: %w", err)
	}
	return a, nil
}

// ClaimDueScheduledActions atomically selects pending rows due at or
// before now, oldest due first, flips them to processing, and returns
// them. Two workers never claim the same row.
func (db *DB) ClaimDueScheduledActions(now time.Time, limit int) ([]models.ScheduledAction, error) {
	var claimed []models.ScheduledAction

	err := db.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT `+scheduledColumns+` FROM scheduled_actions
			WHERE status = ? AND scheduled_for <= ?
			ORDER BY scheduled_for, id LIMIT ?
		`, string(models.ScheduledPending), formatTime(now), limit)
		if err != nil {
			return fmt.Errorf("select due actions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanScheduled(rows.Scan)
			if err != nil {
				return fmt.Errorf("scan scheduled action: %w", err)
			}
			claimed = append(claimed, *a)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range claimed {
			if _, err := tx.Exec(`
				UPDATE scheduled_actions SET status = ?, claimed_at = ? WHERE id = ?
			`, string(models.ScheduledProcessing), formatTime(now), claimed[i].ID); err != nil {
				return fmt.Errorf("claim scheduled action: %w", err)
			}
			claimed[i].Status = models.ScheduledProcessing
			claimedAt := now
			claimed[i].ClaimedAt = &claimedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkScheduledActionDone records the outcome of a dispatched row.
func (db *DB) MarkScheduledActionDone(id string, status models.ScheduledStatus, executedAt time.Time, payload []byte) error {
	var err error
	if payload != nil {
		_, err = db.Exec(`
			UPDATE scheduled_actions SET status = ?, executed_at = ?, payload = ? WHERE id = ?
		`, string(status), formatTime(executedAt), payload, id)
	} else {
		_, err = db.Exec(`
			UPDATE scheduled_actions SET status = ?, executed_at = ? WHERE id = ?
		`, string(status), formatTime(executedAt), id)
	}
	if err != nil {
		return fmt.Errorf("mark scheduled action: %w", err)
	}
	return nil
}

// RequeueStaleProcessing flips processing rows claimed before the
// cutoff back to pending. This is the reaper's recovery path for
// workers that died mid-dispatch; staleness is judged by the claim
// stamp so a live worker's freshly claimed but long-overdue rows are
// left alone. Returns the number of rows recovered.
func (db *DB) RequeueStaleProcessing(olderThan time.Time) (int64, error) {
	res, err := db.Exec(`
		UPDATE scheduled_actions SET status = ?, claimed_at = NULL
		WHERE status = ? AND claimed_at IS NOT NULL AND claimed_at < ?
	`, string(models.ScheduledPending), string(models.ScheduledProcessing), formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("requeue stale actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// CancelScheduledActions cancels a task's pending rows of the given
// type; an empty type cancels every pending row for the task. Used when
// deadlines move and when tasks are deleted.
func (db *DB) CancelScheduledActions(taskID, actionType string) (int64, error) {
	query := `UPDATE scheduled_actions SET status = ? WHERE task_id = ? AND status = ?`
	args := []any{string(models.ScheduledCancelled), taskID, string(models.ScheduledPending)}
	if actionType != "" {
		query += ` AND action_type = ?`
		args = append(args, actionType)
	}

	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("cancel scheduled actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// CancelProjectScheduledActions cancels every pending row in a project.
// Used on project soft delete.
func (db *DB) CancelProjectScheduledActions(projectID string) (int64, error) {
	res, err := db.Exec(`
		UPDATE scheduled_actions SET status = ? WHERE project_id = ? AND status = ?
	`, string(models.ScheduledCancelled), projectID, string(models.ScheduledPending))
	if err != nil {
		return 0, fmt.Errorf("cancel project scheduled actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// PendingScheduledActions lists a task's pending rows, due first.
func (db *DB) PendingScheduledActions(taskID string) ([]models.ScheduledAction, error) {
	rows, err := db.Query(`
		SELECT `+scheduledColumns+` FROM scheduled_actions
		WHERE task_id = ? AND status = ? ORDER BY scheduled_for, id
	`, taskID, string(models.ScheduledPending))
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	var actions []models.ScheduledAction
	for rows.Next() {
		a, err := scanScheduled(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled action: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

func scanScheduled(scan func(...any) error) (*models.ScheduledAction, error) {
	var a models.ScheduledAction
	var scheduledFor, createdAt string
	var executedAt, depAction, claimedAt sql.NullString

	err := scan(&a.ID, &a.ProjectID, &a.TaskID, &a.Type, &scheduledFor,
		&executedAt, &a.Payload, &depAction, &a.Status, &createdAt, &claimedAt)
	if err != nil {
		return nil, err
	}
	a.ScheduledFor, _ = parseTime(scheduledFor)
	a.ExecutedAt = parseNullableTime(executedAt)
	a.DependencyActionID = depAction.String
	a.CreatedAt, _ = parseTime(createdAt)
	a.ClaimedAt = parseNullableTime(claimedAt)
	return &a, nil
}
