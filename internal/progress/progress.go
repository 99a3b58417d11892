// Package progress reports the advance of a run on the terminal: a
// percent-complete bar over planned bytes and a list of changed files.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/ui"
)

// Bar wraps progressbar with treesync's terminal and logging rules.
type Bar struct {
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
}

// Options configures the progress bar behavior.
type Options struct {
	// Max is the total number of bytes expected. It may grow while the
	// plan is still being produced.
	Max int64
	// Description is the prefix text shown before the progress bar.
	Description string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
}

// DefaultOptions returns sensible defaults for CLI progress bars.
func DefaultOptions() Options {
	return Options{
		Description: "Copying",
		Writer:      os.Stderr,
	}
}

// NewBar creates a progress bar. The bar is only shown if:
//   - Colors are enabled (respects NO_COLOR and --no-color)
//   - Output is a terminal
//   - Not in debug mode (to avoid interfering with logs)
func NewBar(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	b := &Bar{
		enabled: shouldShowProgress(opts.Writer),
		desc:    opts.Description,
	}
	if !b.enabled {
		return b
	}

	b.bar = progressbar.NewOptions64(
		opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(opts.Writer, "\n")
		}),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
	return b
}

// Enabled reports whether the bar is drawn.
func (b *Bar) Enabled() bool {
	return b.enabled
}

// Grow raises the bar's maximum to max.
func (b *Bar) Grow(max int64) {
	if !b.enabled {
		return
	}
	b.bar.ChangeMax64(max)
}

// Add64 advances the bar by n bytes.
func (b *Bar) Add64(n int64) error {
	if !b.enabled {
		return nil
	}
	return b.bar.Add64(n)
}

// Clear removes the bar so a line can be printed above it.
func (b *Bar) Clear() error {
	if !b.enabled {
		return nil
	}
	return b.bar.Clear()
}

// Finish completes the progress bar.
func (b *Bar) Finish() error {
	if !b.enabled {
		return nil
	}
	return b.bar.Finish()
}

// shouldShowProgress determines if progress bars should be displayed.
func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	return !logging.Default().Enabled(context.Background(), logging.LevelDebug)
}
