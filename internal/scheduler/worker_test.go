package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskgrid/pkg/models"
)

type fakeQueue struct {
	mu       sync.Mutex
	pending  []models.ScheduledAction
	done     map[string]models.ScheduledStatus
	payloads map[string][]byte
	requeued int64
	claimErr error
}

func newFakeQueue(rows ...models.ScheduledAction) *fakeQueue {
	return &fakeQueue{
		pending:  rows,
		done:     map[string]models.ScheduledStatus{},
		payloads: map[string][]byte{},
	}
}

func (q *fakeQueue) ClaimDueScheduledActions(now time.Time, limit int) ([]models.ScheduledAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	var due, rest []models.ScheduledAction
	for _, row := range q.pending {
		if len(due) < limit && !row.ScheduledFor.After(now) {
			due = append(due, row)
		} else {
			rest = append(rest, row)
		}
	}
	q.pending = rest
	return due, nil
}

func (q *fakeQueue) MarkScheduledActionDone(id string, status models.ScheduledStatus, executedAt time.Time, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done[id] = status
	q.payloads[id] = payload
	return nil
}

func (q *fakeQueue) RequeueStaleProcessing(olderThan time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeued++
	return 0, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	seen   []string
	errFor map[string]error
}

func (d *fakeDispatcher) DispatchScheduled(ctx context.Context, sa *models.ScheduledAction) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, sa.ID)
	if err, ok := d.errFor[sa.ID]; ok {
		return sa.Payload, err
	}
	return []byte(`{"ok":true}`), nil
}

func row(id string, due time.Time) models.ScheduledAction {
	return models.ScheduledAction{
		ID:           id,
		ProjectID:    "p1",
		TaskID:       "t1",
		Type:         models.ScheduledDelayedNotification,
		ScheduledFor: due,
		Status:       models.ScheduledPending,
	}
}

func TestTickDispatchesDueRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	queue := newFakeQueue(
		row("due-1", now.Add(-time.Minute)),
		row("due-2", now),
		row("future", now.Add(time.Hour)),
	)
	dispatcher := &fakeDispatcher{}
	worker := New(queue, dispatcher, WithClock(func() time.Time { return now }))

	n, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows processed, got %d", n)
	}
	if len(dispatcher.seen) != 2 {
		t.Fatalf("expected 2 dispatches, got %v", dispatcher.seen)
	}
	for _, id := range []string{"due-1", "due-2"} {
		if queue.done[id] != models.ScheduledCompleted {
			t.Errorf("expected %s completed, got %s", id, queue.done[id])
		}
		if string(queue.payloads[id]) != `{"ok":true}` {
			t.Errorf("expected dispatcher payload persisted for %s", id)
		}
	}
	if _, ok := queue.done["future"]; ok {
		t.Error("future row must not be dispatched")
	}
}

func TestTickMarksFailuresAndContinues(t *testing.T) {
	now := time.Now()
	queue := newFakeQueue(
		row("bad", now.Add(-2*time.Minute)),
		row("good", now.Add(-time.Minute)),
	)
	dispatcher := &fakeDispatcher{errFor: map[string]error{"bad": errors.New("boom")}}
	worker := New(queue, dispatcher, WithClock(func() time.Time { return now }))

	n, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected both rows processed, got %d", n)
	}
	if queue.done["bad"] != models.ScheduledFailed {
		t.Errorf("expected bad failed, got %s", queue.done["bad"])
	}
	if queue.done["good"] != models.ScheduledCompleted {
		t.Errorf("expected good completed, got %s", queue.done["good"])
	}
}

func TestTickRespectsBatchSize(t *testing.T) {
	now := time.Now()
	queue := newFakeQueue(
		row("a", now.Add(-3*time.Minute)),
		row("b", now.Add(-2*time.Minute)),
		row("c", now.Add(-time.Minute)),
	)
	worker := New(queue, &fakeDispatcher{},
		WithClock(func() time.Time { return now }),
		WithBatchSize(2))

	n, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected batch of 2, got %d", n)
	}

	n, err = worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected remaining row, got %d", n)
	}
}

func TestRunStopsOnCancelAndRunsReaper(t *testing.T) {
	now := time.Now()
	queue := newFakeQueue(row("due", now.Add(-time.Minute)))
	worker := New(queue, &fakeDispatcher{},
		WithClock(func() time.Time { return now }),
		WithTickInterval(5*time.Millisecond),
		WithReaper(5*time.Millisecond, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		queue.mu.Lock()
		dispatched := queue.done["due"] == models.ScheduledCompleted
		reaped := queue.requeued > 0
		queue.mu.Unlock()
		if dispatched && reaped {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker made no progress")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
