package pgreset

import (
	"errors"
	"strings"
)

var (
	// ErrConfiguration is a missing or invalid setting found before any connection.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnection is an authentication, network or timeout failure.
	ErrConnection = errors.New("connection error")
	// ErrDrop is a failure dropping the target database.
	ErrDrop = errors.New("drop database failed")
	// ErrCreate is a failure creating the target database.
	ErrCreate = errors.New("create database failed")
	// ErrScriptNotFound is a script path which does not exist.
	ErrScriptNotFound = errors.New("script not found")
	// ErrScriptDecode is a script no configured encoding could read.
	ErrScriptDecode = errors.New("script could not be decoded")
	// ErrScriptExecution is a script the server rejected.
	ErrScriptExecution = errors.New("script execution failed")
	// ErrSequenceReconcile is a per-table sequence reset failure.
	ErrSequenceReconcile = errors.New("sequence reconcile failed")
	// ErrDatabaseNotFound is returned by read paths when the database does not exist.
	ErrDatabaseNotFound = errors.New("database not found")
	// ErrCancelled is returned when the operator declines to continue.
	ErrCancelled = errors.New("cancelled by user")
	// ErrInterrupted is returned when the process was signalled mid-run.
	ErrInterrupted = errors.New("interrupted")
	// ErrBatchFailed is returned when at least one script failed.
	ErrBatchFailed = errors.New("one or more scripts failed")
)

// Error carries the kind of failure along with what was being done.
type Error struct {
	// Kind is one of the Err* sentinels in this package.
	Kind error
	// Op is the operation, e.g. "drop" or "exec".
	Op string
	// Subject is the database, script or table the operation acted on.
	Subject string
	// Err is the underlying cause, may be nil.
	Err error
}

// NewError creates an *Error.
func NewError(kind error, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Op != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Op)
	}
	if e.Subject != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Subject)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// IsFatal reports whether err must abort the whole run. Per-script and per-table
// kinds are recorded in results instead.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConnection):
		return true
	case errors.Is(err, ErrScriptNotFound),
		errors.Is(err, ErrScriptDecode),
		errors.Is(err, ErrScriptExecution),
		errors.Is(err, ErrSequenceReconcile):
		return false
	}
	return true
}
