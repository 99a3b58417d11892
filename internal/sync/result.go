package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/pattern"
	"github.com/klauern/treesync/internal/pool"
)

// Status is the overall outcome of a run.
type Status int

const (
	// StatusSuccess means every planned action succeeded.
	StatusSuccess Status = iota

	// StatusCompletedWithFailures means the run finished but some actions
	// failed.
	StatusCompletedWithFailures

	// StatusCancelled means the run was interrupted.
	StatusCancelled

	// StatusInvalidPolicy means the run never started.
	StatusInvalidPolicy
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCompletedWithFailures:
		return "completed with failures"
	case StatusCancelled:
		return "cancelled"
	case StatusInvalidPolicy:
		return "invalid policy"
	default:
		return "unknown"
	}
}

// PassResult is the outcome of one source/destination pass.
type PassResult struct {
	// Name is the child directory name in child-only mode, empty otherwise.
	Name string

	Source      string
	Destination string

	Stats        model.Snapshot
	BytesPlanned int64
	Failures     []pool.Failure
	Cancelled    bool
	Elapsed      time.Duration
}

// Success reports whether the pass finished without failures.
func (p PassResult) Success() bool {
	return !p.Cancelled && len(p.Failures) == 0
}

// Result is the outcome of a run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	Source      string
	Destination string
	Policy      model.Policy
	Retry       model.RetryPolicy
	Workers     int

	Started  time.Time
	Finished time.Time

	// Passes holds one entry per pass, in execution order.
	Passes []PassResult

	// Stats is the sum over all passes.
	Stats model.Snapshot

	Status Status

	// Err is set when the run could not start.
	Err error
}

// Failures returns the failures of every pass.
func (r *Result) Failures() []pool.Failure {
	var out []pool.Failure
	for _, p := range r.Passes {
		out = append(out, p.Failures...)
	}
	return out
}

// BytesPlanned returns the bytes all passes set out to copy.
func (r *Result) BytesPlanned() int64 {
	var n int64
	for _, p := range r.Passes {
		n += p.BytesPlanned
	}
	return n
}

// Elapsed returns the wall-clock duration of the run.
func (r *Result) Elapsed() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

const rule = "-------------------------------------------------------------------------------"

// Header renders the banner written when a run starts.
func (r *Result) Header() string {
	var sb strings.Builder
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "TreeSync - Started: %s\n", clock(r.Started))
	fmt.Fprintf(&sb, "Source: %s\n", r.Source)
	fmt.Fprintf(&sb, "Destination: %s\n", r.Destination)
	fmt.Fprintf(&sb, "Pattern: %s\n", patternList(r.Policy.Include))
	fmt.Fprintf(&sb, "Options: %s\n", strings.Join(r.switches(), " "))
	sb.WriteString(rule + "\n")
	return sb.String()
}

// Summary renders the fixed-layout summary written when a run ends.
func (r *Result) Summary() string {
	var sb strings.Builder
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "TreeSync - Finished: %s\n", clock(r.Finished))
	fmt.Fprintf(&sb, "Source: %s\n", r.Source)
	fmt.Fprintf(&sb, "Destination: %s\n", r.Destination)
	sb.WriteString("\n")
	sb.WriteString("Statistics:\n")
	fmt.Fprintf(&sb, "Directories: %d\n", r.Stats.Dirs)
	fmt.Fprintf(&sb, "Files: %d\n", r.Stats.Files)
	fmt.Fprintf(&sb, "Bytes: %d\n", r.Stats.Bytes)
	fmt.Fprintf(&sb, "Directories skipped: %d\n", r.Stats.DirsSkipped)
	fmt.Fprintf(&sb, "Files skipped: %d\n", r.Stats.FilesSkipped)
	fmt.Fprintf(&sb, "Files failed: %d\n", r.Stats.FilesFailed)
	fmt.Fprintf(&sb, "Directories removed: %d\n", r.Stats.DirsRemoved)
	fmt.Fprintf(&sb, "Files removed: %d\n", r.Stats.FilesRemoved)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Elapsed time: %d seconds\n", int64(r.Elapsed()/time.Second))
	sb.WriteString(rule + "\n")
	return sb.String()
}

// switches extends the policy switches with the retry and worker settings
// that differ from their defaults.
func (r *Result) switches() []string {
	out := r.Policy.Switches()
	if r.Retry.Restartable {
		out = append(out, "/Z")
	}
	if r.Workers != 0 && r.Workers != model.DefaultWorkers {
		out = append(out, fmt.Sprintf("/MT:%d", r.Workers))
	}
	if r.Retry.MaxRetries != model.DefaultMaxRetries {
		out = append(out, fmt.Sprintf("/R:%d", r.Retry.MaxRetries))
	}
	if r.Retry.Wait != model.DefaultRetryWait {
		out = append(out, fmt.Sprintf("/W:%d", int64(r.Retry.Wait/time.Second)))
	}
	return out
}

func patternList(patterns []string) string {
	if len(patterns) == 0 {
		return pattern.MatchAll
	}
	return strings.Join(patterns, " ")
}

func clock(t time.Time) string {
	return t.UTC().Format(time.TimeOnly)
}
