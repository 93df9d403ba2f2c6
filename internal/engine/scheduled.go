package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"taskgrid/internal/notify"
	"taskgrid/pkg/models"
)

// DispatchScheduled executes one claimed scheduled-action row and
// returns the payload to persist with the outcome. The scheduler worker
// owns the row's status bookkeeping.
func (e *Engine) DispatchScheduled(ctx context.Context, sa *models.ScheduledAction) ([]byte, error) {
	switch sa.Type {
	case models.ScheduledDeadlineApproaching:
		return sa.Payload, e.dispatchDeadlineReminder(ctx, sa)
	case models.ScheduledDelayedNotification:
		return e.dispatchDelayedAction(ctx, sa)
	default:
		return sa.Payload, internal(fmt.Sprintf("unknown scheduled action type %q", sa.Type), nil)
	}
}

// dispatchDeadlineReminder notifies the task's assignee about the
// approaching deadline. The reminder quietly does nothing when the task
// is gone, finished, or unassigned by the time it fires.
func (e *Engine) dispatchDeadlineReminder(ctx context.Context, sa *models.ScheduledAction) error {
	task, err := e.store.GetTask(sa.TaskID)
	if err != nil {
		return internal("load task", err)
	}
	if task == nil || task.Status.IsFinal() || task.Deadline == nil || task.AssigneeID == "" {
		return nil
	}

	assignee, err := e.store.GetUser(task.AssigneeID)
	if err != nil {
		return internal("load assignee", err)
	}
	if !assignee.WantsNotification(models.NotifyDeadline) {
		return nil
	}

	var meta struct {
		HoursBefore int `json:"hours_before"`
	}
	_ = json.Unmarshal(sa.Payload, &meta)

	payload := map[string]string{
		"message":  fmt.Sprintf("Task %s is due in %dh", task.Name, meta.HoursBefore),
		"task_id":  task.ID,
		"deadline": task.Deadline.UTC().Format("2006-01-02 15:04"),
	}
	if err := e.notifier.Notify(ctx, task.AssigneeID, notify.KindDeadlineApproaching, payload); err != nil {
		return transient("deadline notification", err)
	}
	return nil
}

// dispatchDelayedAction resolves the deferred dependency action and runs
// it with the delayed trigger, merging the result into the row payload.
func (e *Engine) dispatchDelayedAction(ctx context.Context, sa *models.ScheduledAction) ([]byte, error) {
	action, err := e.store.GetDependencyAction(sa.DependencyActionID)
	if err != nil {
		return sa.Payload, internal("load dependency action", err)
	}
	if action == nil || !action.IsActive {
		// The rule was removed or disabled while the row waited.
		return sa.Payload, nil
	}
	dep, err := e.store.GetDependency(action.DependencyID)
	if err != nil {
		return sa.Payload, internal("load dependency", err)
	}
	if dep == nil {
		return sa.Payload, nil
	}

	var meta struct {
		TriggeredBy string `json:"triggered_by"`
	}
	_ = json.Unmarshal(sa.Payload, &meta)

	lock := e.projectLock(dep.ProjectID)
	lock.Lock()
	result := e.executeAction(ctx, dep, action, meta.TriggeredBy)
	lock.Unlock()

	e.logger.Info("delayed action dispatched",
		zap.String("scheduled", sa.ID),
		zap.String("action", action.ID),
		zap.String("outcome", string(result.Outcome)))

	merged := map[string]any{}
	_ = json.Unmarshal(sa.Payload, &merged)
	merged["result"] = result
	payload, err := json.Marshal(merged)
	if err != nil {
		return sa.Payload, nil
	}
	if result.Outcome == OutcomeFailed {
		return payload, transient("delayed action failed", fmt.Errorf("%s", result.Detail))
	}
	return payload, nil
}
