package executor

import (
	"context"
	"fmt"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
)

// State is a step of the per-action retry state machine.
type State int

const (
	StatePending State = iota
	StateAttempting
	StateWaitingToRetry
	StateSucceeded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateWaitingToRetry:
		return "waiting-to-retry"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of applying one action.
type Outcome struct {
	// State is StateSucceeded or StateFailed.
	State State

	// Attempts is the number of attempts made.
	Attempts int

	// Err is the last error; nil on success.
	Err error

	// Kind classifies Err.
	Kind model.ErrorKind
}

// OK reports whether the action succeeded.
func (o Outcome) OK() bool {
	return o.State == StateSucceeded
}

// Cancelled reports whether the action was abandoned because the run was
// cancelled.
func (o Outcome) Cancelled() bool {
	return o.State == StateFailed && o.Kind == model.ErrKindCancelled
}

// Apply runs the action to a terminal state. Access and transient failures
// are retried up to Retry.MaxRetries times with Retry.Wait between attempts;
// every other failure ends the action at once. List-only runs make a single
// attempt.
func (e *Executor) Apply(ctx context.Context, a model.Action) Outcome {
	var out Outcome
	state := StatePending
	log := logging.WithContext(ctx)

	for {
		switch state {
		case StatePending:
			state = StateAttempting

		case StateAttempting:
			if err := ctx.Err(); err != nil {
				out.Err, out.Kind = err, model.ErrKindCancelled
				state = StateFailed
				continue
			}

			out.Attempts++
			err := e.attempt(a)
			if err == nil {
				state = StateSucceeded
				continue
			}

			out.Err, out.Kind = err, model.Classify(err)
			if e.retryable(out) {
				state = StateWaitingToRetry
			} else {
				state = StateFailed
			}

		case StateWaitingToRetry:
			log.Debug("retrying action",
				logging.Action(string(a.Kind)),
				logging.Path(a.Path),
				logging.Attempt(out.Attempts),
				logging.Err(out.Err),
			)
			if err := e.opts.Sleep(ctx, e.opts.Retry.Wait); err != nil {
				out.Err = fmt.Errorf("retry wait interrupted after %d attempts: %w", out.Attempts, err)
				out.Kind = model.ErrKindCancelled
				state = StateFailed
				continue
			}
			state = StateAttempting

		case StateSucceeded:
			out.State, out.Err, out.Kind = StateSucceeded, nil, model.ErrKindNone
			return out

		case StateFailed:
			out.State = StateFailed
			return out
		}
	}
}

func (e *Executor) retryable(out Outcome) bool {
	if e.opts.ListOnly || !out.Kind.Retryable() {
		return false
	}
	return out.Attempts <= e.opts.Retry.MaxRetries
}
