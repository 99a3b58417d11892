package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/ui"
)

// ReporterOptions configures a Reporter.
type ReporterOptions struct {
	// Writer receives the file list and the bar. Defaults to os.Stderr.
	Writer io.Writer

	// Progress enables percent-complete reporting.
	Progress bool

	// FileList prints one line per changed or failed entry.
	FileList bool
}

// Reporter turns pool events into terminal output. It is safe for
// concurrent use.
type Reporter struct {
	opts ReporterOptions
	bar  *Bar

	mu      sync.Mutex
	planned int64
	done    int64
	decile  int
}

// NewReporter returns a reporter. With Progress set the bar is drawn when
// Writer is a terminal; otherwise every tenth of the planned bytes is logged.
func NewReporter(opts ReporterOptions) *Reporter {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	r := &Reporter{opts: opts}
	if opts.Progress {
		r.bar = NewBar(Options{Description: "Copying", Writer: opts.Writer})
	}
	return r
}

// ActionPlanned implements pool.Observer.
func (r *Reporter) ActionPlanned(a model.Action) {
	if a.Kind != model.ActionCopyFile && a.Kind != model.ActionMoveFile {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planned += a.Size
	if r.bar != nil {
		r.bar.Grow(r.planned)
	}
}

// ActionDone implements pool.Observer.
func (r *Reporter) ActionDone(ev model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.FileList {
		if line := fileLine(ev); line != "" {
			if r.bar != nil {
				_ = r.bar.Clear()
			}
			fmt.Fprintln(r.opts.Writer, line)
		}
	}

	if ev.Outcome != model.OutcomeSucceeded {
		return
	}
	if ev.Action != model.ActionCopyFile && ev.Action != model.ActionMoveFile {
		return
	}
	r.done += ev.Size
	if r.bar == nil {
		return
	}
	_ = r.bar.Add64(ev.Size)
	if !r.bar.Enabled() {
		r.logDecile()
	}
}

// logDecile logs each crossed tenth of the planned bytes.
func (r *Reporter) logDecile() {
	pct := percent(r.done, r.planned)
	if d := int(pct / 10); d > r.decile {
		r.decile = d
		logging.Info("progress",
			"percent", int(pct),
			logging.Bytes(r.done),
		)
	}
}

// Percent returns the completed share of planned bytes, 0 to 100.
func (r *Reporter) Percent() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return percent(r.done, r.planned)
}

// Finish completes the bar.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func percent(done, planned int64) float64 {
	if planned <= 0 {
		return 100
	}
	p := float64(done) * 100 / float64(planned)
	if p > 100 {
		return 100
	}
	return p
}

// fileLine renders one file list entry. Skips are not listed.
func fileLine(ev model.ProgressEvent) string {
	var label string
	switch ev.Action {
	case model.ActionCopyFile:
		label = "Copied"
	case model.ActionMoveFile:
		label = "Moved"
	case model.ActionCreateEmptyFile:
		label = "Empty"
	case model.ActionCreateDir:
		label = "New Dir"
	case model.ActionDeleteFile:
		if ev.Side == model.SideSource {
			return ""
		}
		label = "Extra File"
	case model.ActionDeleteDir:
		if ev.Side == model.SideSource {
			return ""
		}
		label = "Extra Dir"
	default:
		return ""
	}

	size := ""
	if ev.Entry == model.KindFile && ev.Action != model.ActionDeleteFile {
		size = humanize.Bytes(uint64(max(ev.Size, 0)))
	}
	line := fmt.Sprintf("%-10s %9s  %s", label, size, ev.Path)

	switch ev.Outcome {
	case model.OutcomeSucceeded:
		return ui.StatusSuccess(line)
	case model.OutcomeFailed:
		return ui.StatusError(fmt.Sprintf("%s: %v", line, ev.Err))
	case model.OutcomeCancelled:
		return ui.StatusWarning(line + " (cancelled)")
	default:
		return ""
	}
}
