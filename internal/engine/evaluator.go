package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskgrid/internal/notify"
	"taskgrid/pkg/models"
)

// Trigger values recorded with action outcomes.
const (
	triggerCompleted = "completed"
	triggerDelayed   = "delayed"
)

// ActionOutcome is the per-action dispatch result.
type ActionOutcome string

const (
	// OutcomeExecuted means the action dispatched successfully.
	OutcomeExecuted ActionOutcome = "executed"
	// OutcomeScheduled means the action was deferred to the scheduler.
	OutcomeScheduled ActionOutcome = "scheduled"
	// OutcomeSkipped means the action had nothing to do, such as a
	// missing assignee or a disabled notification preference.
	OutcomeSkipped ActionOutcome = "skipped"
	// OutcomeFailed means dispatch was attempted and failed.
	OutcomeFailed ActionOutcome = "failed"
	// OutcomeNotImplemented marks action types without an implementation.
	OutcomeNotImplemented ActionOutcome = "not_implemented"
)

// ActionResult records one action's dispatch.
type ActionResult struct {
	ActionID     string            `json:"action_id"`
	Type         models.ActionType `json:"action_type"`
	Outcome      ActionOutcome     `json:"outcome"`
	Detail       string            `json:"detail,omitempty"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
}

// evaluateEdge runs the ordered active actions of an edge whose source
// just became final. One failing action never aborts the batch. The
// caller holds the project lock.
func (e *Engine) evaluateEdge(ctx context.Context, dep *models.Dependency, triggeredBy, trigger string) []ActionResult {
	actions, err := e.store.ListDependencyActions(dep.ID)
	if err != nil {
		e.logger.Error("load dependency actions",
			zap.String("dependency", dep.ID),
			zap.Error(err))
		return []ActionResult{{Outcome: OutcomeFailed, Detail: "load actions: " + err.Error()}}
	}

	var results []ActionResult
	for i := range actions {
		action := &actions[i]
		if !action.IsActive {
			continue
		}
		if action.DelayMinutes > 0 && trigger != triggerDelayed {
			results = append(results, e.deferAction(ctx, dep, action, triggeredBy, trigger))
			continue
		}
		results = append(results, e.executeAction(ctx, dep, action, triggeredBy))
	}
	return results
}

// deferAction enqueues a delayed_notification row for the action.
func (e *Engine) deferAction(ctx context.Context, dep *models.Dependency, action *models.DependencyAction, triggeredBy, trigger string) ActionResult {
	due := e.clock().Add(time.Duration(action.DelayMinutes) * time.Minute)
	payload, _ := json.Marshal(map[string]string{
		"action_id":     action.ID,
		"trigger_event": trigger,
		"triggered_by":  triggeredBy,
	})
	sa := &models.ScheduledAction{
		ID:                 uuid.NewString(),
		ProjectID:          dep.ProjectID,
		TaskID:             dep.TargetTaskID,
		Type:               models.ScheduledDelayedNotification,
		ScheduledFor:       due,
		Payload:            payload,
		DependencyActionID: action.ID,
		Status:             models.ScheduledPending,
		CreatedAt:          e.clock(),
	}
	if err := e.withRetry(ctx, func() error { return e.store.CreateScheduledAction(sa) }); err != nil {
		return ActionResult{ActionID: action.ID, Type: action.Type, Outcome: OutcomeFailed, Detail: "enqueue: " + err.Error()}
	}
	return ActionResult{ActionID: action.ID, Type: action.Type, Outcome: OutcomeScheduled, ScheduledFor: &due}
}

// executeAction dispatches one action immediately.
func (e *Engine) executeAction(ctx context.Context, dep *models.Dependency, action *models.DependencyAction, triggeredBy string) ActionResult {
	result := ActionResult{ActionID: action.ID, Type: action.Type}

	switch action.Type {
	case models.ActionNotifyAssignee:
		target, err := e.store.GetTask(dep.TargetTaskID)
		if err != nil || target == nil {
			result.Outcome = OutcomeFailed
			result.Detail = "target task unavailable"
			return result
		}
		if target.AssigneeID == "" {
			result.Outcome = OutcomeSkipped
			result.Detail = "target has no assignee"
			return result
		}
		return e.dispatchNotification(ctx, result, target.AssigneeID, notify.KindTaskReady,
			action.MessageTemplate, target, models.NotifyDependencyReady)

	case models.ActionNotifyCreator:
		source, err := e.store.GetTask(dep.SourceTaskID)
		if err != nil || source == nil {
			result.Outcome = OutcomeFailed
			result.Detail = "source task unavailable"
			return result
		}
		if source.CreatorID == "" {
			result.Outcome = OutcomeSkipped
			result.Detail = "source creator unknown"
			return result
		}
		return e.dispatchNotification(ctx, result, source.CreatorID, notify.KindTaskCompleted,
			action.MessageTemplate, source, models.NotifyTaskCompleted)

	case models.ActionNotifyCustom:
		if action.TargetUserID == "" {
			result.Outcome = OutcomeFailed
			result.Detail = "no target user configured"
			return result
		}
		target, err := e.store.GetTask(dep.TargetTaskID)
		if err != nil || target == nil {
			result.Outcome = OutcomeFailed
			result.Detail = "target task unavailable"
			return result
		}
		// Custom notifications bypass preference gating.
		return e.dispatchNotification(ctx, result, action.TargetUserID, notify.KindCustom,
			action.MessageTemplate, target, "")

	case models.ActionChangeStatus:
		if !action.TargetStatus.Valid() {
			result.Outcome = OutcomeFailed
			result.Detail = "invalid target status"
			return result
		}
		// System-privileged transition of the target task; may cascade
		// depth-first when the new status is itself final.
		res, err := e.changeStatusLocked(ctx, dep.TargetTaskID, action.TargetStatus, triggeredBy)
		if err != nil {
			result.Outcome = OutcomeFailed
			result.Detail = err.Error()
			return result
		}
		result.Outcome = OutcomeExecuted
		result.Detail = "status -> " + string(action.TargetStatus)
		if !res.StatusChanged {
			result.Outcome = OutcomeSkipped
			result.Detail = "target already " + string(action.TargetStatus)
		}
		return result

	case models.ActionCreateSubtask:
		result.Outcome = OutcomeNotImplemented
		return result

	default:
		result.Outcome = OutcomeFailed
		result.Detail = "unknown action type"
		return result
	}
}

// dispatchNotification renders the template, applies preference gating
// (skipped when gate is empty), and calls the Notifier.
func (e *Engine) dispatchNotification(ctx context.Context, result ActionResult, recipientID string, kind notify.Kind, template string, task *models.Task, gate models.NotificationKind) ActionResult {
	recipient, err := e.store.GetUser(recipientID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = "load recipient: " + err.Error()
		return result
	}
	if gate != "" && !recipient.WantsNotification(gate) {
		result.Outcome = OutcomeSkipped
		result.Detail = "notification preference disabled"
		return result
	}

	project, err := e.store.GetProject(task.ProjectID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = "load project: " + err.Error()
		return result
	}

	message := renderTemplate(template, task, project, recipient)
	payload := map[string]string{
		"message": message,
		"task_id": task.ID,
	}
	if err := e.notifier.Notify(ctx, recipientID, kind, payload); err != nil {
		e.logger.Warn("notification failed",
			zap.String("recipient", recipientID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		result.Outcome = OutcomeFailed
		result.Detail = err.Error()
		return result
	}
	result.Outcome = OutcomeExecuted
	return result
}

// renderTemplate substitutes {task_name}, {project_name} and {user}.
// Unknown placeholders render literally.
func renderTemplate(template string, task *models.Task, project *models.Project, user *models.User) string {
	replacements := []string{
		"{task_name}", task.Name,
		"{user}", user.DisplayName(),
	}
	if project != nil {
		replacements = append(replacements, "{project_name}", project.Name)
	}
	return strings.NewReplacer(replacements...).Replace(template)
}
