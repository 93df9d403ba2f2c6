// Package notify defines the out-of-band notification contract. The
// engine and scheduler talk to a Notifier; the transport behind it
// (Telegram, email, a log) is a deployment concern.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind classifies a notification.
type Kind string

const (
	// KindTaskReady tells an assignee their task's prerequisites are done.
	KindTaskReady Kind = "task_ready"
	// KindTaskCompleted tells a creator their task was completed.
	KindTaskCompleted Kind = "task_completed"
	// KindTaskAssigned tells a user a task was assigned to them.
	KindTaskAssigned Kind = "task_assigned"
	// KindDeadlineApproaching reminds an assignee about a due date.
	KindDeadlineApproaching Kind = "deadline_approaching"
	// KindCustom carries an explicitly configured message.
	KindCustom Kind = "custom"
)

// DefaultTimeout bounds a single dispatch. A timeout is a failure, not a
// retry; the caller logs and continues.
const DefaultTimeout = 10 * time.Second

// Notifier delivers a structured message to a user.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, kind Kind, payload map[string]string) error
}

// WithTimeout wraps a Notifier so every dispatch is bounded by d
// (DefaultTimeout when d <= 0).
func WithTimeout(n Notifier, d time.Duration) Notifier {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutNotifier{inner: n, timeout: d}
}

type timeoutNotifier struct {
	inner   Notifier
	timeout time.Duration
}

func (t *timeoutNotifier) Notify(ctx context.Context, recipientID string, kind Kind, payload map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.inner.Notify(ctx, recipientID, kind, payload); err != nil {
		return fmt.Errorf("notify %s: %w", kind, err)
	}
	return nil
}

// LogNotifier writes notifications to a structured log. It is the
// default transport for the CLI.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification and reports success.
func (l *LogNotifier) Notify(_ context.Context, recipientID string, kind Kind, payload map[string]string) error {
	fields := []zap.Field{
		zap.String("recipient", recipientID),
		zap.String("kind", string(kind)),
	}
	for k, v := range payload {
		fields = append(fields, zap.String(k, v))
	}
	l.logger.Info("notification", fields...)
	return nil
}

// Delivery is one recorded notification.
type Delivery struct {
	RecipientID string
	Kind        Kind
	Payload     map[string]string
}

// Recorder captures notifications for tests. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	// Err, when set, is returned from every Notify call.
	Err error
}

// Notify records the delivery.
func (r *Recorder) Notify(_ context.Context, recipientID string, kind Kind, payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	copied := make(map[string]string, len(payload))
	for k, v := range payload {
		copied[k] = v
	}
	r.deliveries = append(r.deliveries, Delivery{RecipientID: recipientID, Kind: kind, Payload: copied})
	return nil
}

// Deliveries returns a snapshot of everything recorded so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// Reset clears the recorded deliveries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Recorder)(nil)
)
