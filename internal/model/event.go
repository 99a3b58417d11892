package model

// Outcome is the result of one action as reported to observers.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCancelled Outcome = "cancelled"
)

// ProgressEvent is emitted once per finished action. The core does not keep
// events after handing them out.
type ProgressEvent struct {
	Path    string
	Action  ActionKind
	Entry   Kind
	Side    Side
	Outcome Outcome
	Size    int64
	Reason  SkipReason
	Err     error
}
