package engine

import (
	"errors"
	"fmt"
)

// Kind categorizes engine errors so boundary layers can translate them
// to exit codes or transport status without string matching.
type Kind int

const (
	// KindUnknown is the zero value; errors from outside the engine.
	KindUnknown Kind = iota
	// KindValidation covers malformed input. No state was changed.
	KindValidation
	// KindNotFound covers missing entities by id or slug.
	KindNotFound
	// KindForbidden covers failed authorization checks.
	KindForbidden
	// KindConflict covers uniqueness and invariant violations, such as
	// duplicate edges and would-create-cycle.
	KindConflict
	// KindTransient covers store contention and notifier timeouts; the
	// operation may succeed if retried.
	KindTransient
	// KindInternal covers broken runtime invariants. Never swallowed.
	KindInternal
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a categorized engine error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the category from an error chain, KindUnknown when the
// error did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func transient(msg string, err error) error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// internal wraps an uncategorized failure as KindInternal. A cause the
// engine already categorized keeps its kind, so exhausted store
// contention stays transient through the wrap.
func internal(msg string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Msg: msg, Err: err}
	}
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}
