// Package engine implements the task orchestration core: task CRUD,
// status transitions with readiness propagation, dependency edges with
// action rules, and the evaluator that fires those rules when a source
// task completes.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskgrid/internal/notify"
	"taskgrid/internal/store"
)

// retryAttempts bounds retries of contended store writes.
const retryAttempts = 3

// Clock supplies the current time; injected so tests control it.
type Clock func() time.Time

// Engine orchestrates all task and dependency mutations. Construct with
// New; the zero value is not usable.
type Engine struct {
	store    store.Store
	notifier notify.Notifier
	clock    Clock
	logger   *zap.Logger

	// mu guards projects; each project gets its own mutex so mutations
	// within a project serialize without blocking other projects.
	mu       sync.Mutex
	projects map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the notification transport. The default discards
// notifications into a nop logger.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine backed by the given store.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		notifier: notify.NewLogNotifier(nil),
		clock:    time.Now,
		logger:   zap.NewNop(),
		projects: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.notifier = notify.WithTimeout(e.notifier, 0)
	return e
}

// projectLock returns the mutex serializing mutations of one project.
func (e *Engine) projectLock(projectID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.projects[projectID]; ok {
		return m
	}
	m := &sync.Mutex{}
	e.projects[projectID] = m
	return m
}

// withRetry runs fn up to retryAttempts times, backing off between
// attempts while the store reports lock contention. Other errors return
// immediately.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 50 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return transient("cancelled while retrying", ctx.Err())
			}
		}
		err = fn()
		if err == nil || !store.IsBusy(err) {
			return err
		}
		e.logger.Warn("store contention, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return transient("store contention persisted", err)
}
