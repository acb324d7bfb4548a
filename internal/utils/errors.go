package utils

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError so transport layers can map it to a status code
// without inspecting message text.
type Kind int

const (
	// KindUnknown is the zero value for unclassified failures.
	KindUnknown Kind = iota
	// KindSchema marks feature-contract violations: missing required keys,
	// unknown keys, non-numeric or out-of-range values.
	KindSchema
	// KindNotFound marks missing model artifacts or registry entries.
	KindNotFound
	// KindTypeMismatch marks deserialized artifacts of an unexpected shape.
	KindTypeMismatch
	// KindPermission marks requests for models that exist but are not approved.
	KindPermission
	// KindLengthMismatch marks parallel arrays of differing length in
	// fairness computations.
	KindLengthMismatch
	// KindUnsupported marks operations the loaded model cannot perform,
	// such as linear explanations on a coefficient-less model.
	KindUnsupported
)

// AppError wraps an operation, a human-facing message, an error kind, and the
// underlying cause.
type AppError struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// E constructs an AppError with the given kind.
func E(kind Kind, op, msg string, err error) error {
	return &AppError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Errf constructs an AppError with a formatted message and no cause.
func Errf(kind Kind, op, format string, args ...any) error {
	return &AppError{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var app *AppError
	if errors.As(err, &app) {
		return app.Kind
	}
	return KindUnknown
}
