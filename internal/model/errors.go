package model

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrorKind classifies failures for retry and reporting decisions.
type ErrorKind int

const (
	ErrKindNone ErrorKind = iota
	// ErrKindAccess is an unreadable, unwritable or locked path.
	ErrKindAccess
	// ErrKindTransient is retryable contention or a timeout.
	ErrKindTransient
	// ErrKindCapacity is a full disk or exceeded quota.
	ErrKindCapacity
	// ErrKindSecureDelete is a failed overwrite pass.
	ErrKindSecureDelete
	// ErrKindArgument is an invalid policy or pattern.
	ErrKindArgument
	// ErrKindNotFound is a path that vanished.
	ErrKindNotFound
	// ErrKindCancelled is a cancelled context.
	ErrKindCancelled
	// ErrKindPermanent is anything else.
	ErrKindPermanent
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindNone:
		return "none"
	case ErrKindAccess:
		return "access"
	case ErrKindTransient:
		return "transient"
	case ErrKindCapacity:
		return "capacity"
	case ErrKindSecureDelete:
		return "secure-delete"
	case ErrKindArgument:
		return "argument"
	case ErrKindNotFound:
		return "not-found"
	case ErrKindCancelled:
		return "cancelled"
	default:
		return "permanent"
	}
}

// Retryable reports whether an action failing with this kind is retried.
func (k ErrorKind) Retryable() bool {
	return k == ErrKindAccess || k == ErrKindTransient
}

// AccessError is an unreadable, unwritable or locked path.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied: %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// TransientError is contention or a timeout worth retrying.
type TransientError struct {
	Path string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %s: %v", e.Path, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// CapacityError is a full disk or exceeded quota. It fails only the action
// that hit it.
type CapacityError struct {
	Path string
	Err  error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("out of space: %s: %v", e.Path, e.Err)
}

func (e *CapacityError) Unwrap() error { return e.Err }

// SecureDeleteError reports a failed erase. The target is left in place.
type SecureDeleteError struct {
	Path string
	// Pass is the 1-based overwrite pass that failed; 0 means the failure
	// happened before or after the passes.
	Pass int
	Err  error
}

func (e *SecureDeleteError) Error() string {
	if e.Pass > 0 {
		return fmt.Sprintf("secure delete of %s failed in pass %d: %v", e.Path, e.Pass, e.Err)
	}
	return fmt.Sprintf("secure delete of %s failed: %v", e.Path, e.Err)
}

func (e *SecureDeleteError) Unwrap() error { return e.Err }

// ArgumentError is an invalid policy, pattern or path. It aborts a run
// before anything is changed.
type ArgumentError struct {
	Field   string
	Message string
	Err     error
}

func (e *ArgumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ArgumentErrors collects several argument errors.
type ArgumentErrors []error

// Error returns a formatted message for all errors.
func (ae ArgumentErrors) Error() string {
	if len(ae) == 0 {
		return "no argument errors"
	}
	if len(ae) == 1 {
		return ae[0].Error()
	}
	return fmt.Sprintf("%d argument errors:\n- %s", len(ae), errors.Join(ae...))
}

// Unwrap exposes the collected errors to errors.Is/As.
func (ae ArgumentErrors) Unwrap() []error {
	return ae
}

// Classify maps an error to its kind. Typed errors keep their kind;
// OS errors are mapped by errno.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrKindNone
	}

	var (
		argErr      *ArgumentError
		argErrs     ArgumentErrors
		capErr      *CapacityError
		secureErr   *SecureDeleteError
		transient   *TransientError
		accessError *AccessError
	)
	switch {
	case errors.As(err, &argErr), errors.As(err, &argErrs):
		return ErrKindArgument
	case errors.As(err, &secureErr):
		return ErrKindSecureDelete
	case errors.As(err, &capErr):
		return ErrKindCapacity
	case errors.As(err, &transient):
		return ErrKindTransient
	case errors.As(err, &accessError):
		return ErrKindAccess
	case errors.Is(err, context.Canceled):
		return ErrKindCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ErrKindTransient
	}

	if kind := classifyOS(err); kind != ErrKindNone {
		return kind
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrKindNotFound
	case errors.Is(err, os.ErrPermission):
		return ErrKindAccess
	default:
		return ErrKindPermanent
	}
}
