package cli

import (
	"errors"
	"fmt"

	"github.com/klauern/treesync/internal/sync"
)

// Exit codes reported for each run status.
const (
	ExitSuccess  = 0
	ExitCanceled = 2
	ExitFailures = 8
	ExitInvalid  = 16
)

// StatusError reports a run that did not end in success.
//
// It must not implement cli.ExitCoder: urfave/cli calls os.Exit for those.
type StatusError struct {
	Status sync.Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Status, e.Err)
	}
	return e.Status.String()
}

func (e *StatusError) Unwrap() error { return e.Err }

// Code returns the process exit code for the status.
func (e *StatusError) Code() int {
	return StatusCode(e.Status)
}

// StatusCode maps a run status to its exit code.
func StatusCode(s sync.Status) int {
	switch s {
	case sync.StatusSuccess:
		return ExitSuccess
	case sync.StatusCompletedWithFailures:
		return ExitFailures
	case sync.StatusCancelled:
		return ExitCanceled
	default:
		return ExitInvalid
	}
}

// ExitCode returns the exit code for an error returned by Run. Errors that
// carry no run status are argument errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code()
	}
	return ExitInvalid
}
