// Package scheduler runs the deferred-work loop. A Worker periodically
// claims due scheduled_actions rows, hands each one to the engine for
// dispatch, and records the outcome. A companion reaper requeues rows
// stuck in processing after a worker died mid-dispatch.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskgrid/pkg/models"
)

// Defaults for the worker loops.
const (
	DefaultTickInterval   = time.Minute
	DefaultBatchSize      = 100
	DefaultReaperInterval = 5 * time.Minute
	DefaultStaleAfter     = 10 * time.Minute
)

// Queue is the slice of the store the worker needs.
type Queue interface {
	ClaimDueScheduledActions(now time.Time, limit int) ([]models.ScheduledAction, error)
	MarkScheduledActionDone(id string, status models.ScheduledStatus, executedAt time.Time, payload []byte) error
	RequeueStaleProcessing(olderThan time.Time) (int64, error)
}

// Dispatcher executes one claimed row and returns the payload to persist
// with the outcome.
type Dispatcher interface {
	DispatchScheduled(ctx context.Context, sa *models.ScheduledAction) ([]byte, error)
}

// Worker drains the scheduled-action queue.
type Worker struct {
	queue      Queue
	dispatcher Dispatcher
	clock      func() time.Time
	logger     *zap.Logger

	tick       time.Duration
	batch      int
	reaperTick time.Duration
	staleAfter time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithTickInterval sets how often due rows are polled.
func WithTickInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithBatchSize bounds how many rows one tick claims.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// WithReaper sets the reaper interval and the age after which a
// processing row is considered abandoned.
func WithReaper(interval, staleAfter time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.reaperTick = interval
		}
		if staleAfter > 0 {
			w.staleAfter = staleAfter
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Worker.
func New(queue Queue, dispatcher Dispatcher, opts ...Option) *Worker {
	w := &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		clock:      time.Now,
		logger:     zap.NewNop(),
		tick:       DefaultTickInterval,
		batch:      DefaultBatchSize,
		reaperTick: DefaultReaperInterval,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks, draining the queue until the context is cancelled. The
// dispatch loop and the reaper run concurrently.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.dispatchLoop(ctx) })
	g.Go(func() error { return w.reaperLoop(ctx) })
	return g.Wait()
}

func (w *Worker) dispatchLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		if _, err := w.Tick(ctx); err != nil {
			w.logger.Error("dispatch tick failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) reaperLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.reaperTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.queue.RequeueStaleProcessing(w.clock().Add(-w.staleAfter))
			if err != nil {
				w.logger.Error("reaper failed", zap.Error(err))
				continue
			}
			if n > 0 {
				w.logger.Warn("requeued abandoned scheduled actions", zap.Int64("rows", n))
			}
		}
	}
}

// Tick claims one batch of due rows and dispatches them, returning how
// many rows were processed. A failing row is marked failed and never
// stops the batch.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	claimed, err := w.queue.ClaimDueScheduledActions(w.clock(), w.batch)
	if err != nil {
		return 0, err
	}
	for i := range claimed {
		w.dispatchOne(ctx, &claimed[i])
		if ctx.Err() != nil {
			return i + 1, ctx.Err()
		}
	}
	return len(claimed), nil
}

func (w *Worker) dispatchOne(ctx context.Context, sa *models.ScheduledAction) {
	payload, err := w.dispatcher.DispatchScheduled(ctx, sa)

	status := models.ScheduledCompleted
	if err != nil {
		status = models.ScheduledFailed
		w.logger.Error("scheduled action failed",
			zap.String("scheduled", sa.ID),
			zap.String("type", string(sa.Type)),
			zap.Error(err))
	}
	if markErr := w.queue.MarkScheduledActionDone(sa.ID, status, w.clock(), payload); markErr != nil {
		// The reaper will requeue the row; dispatch may repeat.
		w.logger.Error("mark scheduled action failed",
			zap.String("scheduled", sa.ID),
			zap.Error(markErr))
	}
}
