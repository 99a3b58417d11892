// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It includes a harness that runs the treesync command line in-process,
// fixture helpers for source and destination trees, and assertions on
// their outcome.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauern/treesync/internal/cli"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Stderr contains the captured standard error (log records).
	Stderr string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the code the process would exit with.
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness provides a test harness for running E2E CLI tests.
// It manages environment isolation, temp directories, and output capture.
type Harness struct {
	t       *testing.T
	homeDir string
	baseDir string
}

// NewHarness creates a new E2E test harness with an isolated HOME and
// config directory, and empty source and destination roots.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		t:       t,
		homeDir: t.TempDir(),
		baseDir: t.TempDir(),
	}

	h.SetEnv("HOME", h.homeDir)
	h.SetEnv("XDG_CONFIG_HOME", filepath.Join(h.homeDir, ".config"))

	if err := os.MkdirAll(h.SourceDir(), 0o750); err != nil {
		t.Fatalf("failed to create source directory: %v", err)
	}

	return h
}

// SetEnv sets an environment variable for CLI commands run through this harness.
// The environment will be restored after the test completes.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.t.Setenv(key, value)
}

// HomeDir returns the isolated home directory for this test harness.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// SourceDir returns the source root. It exists from the start.
func (h *Harness) SourceDir() string {
	return filepath.Join(h.baseDir, "src")
}

// DestinationDir returns the destination root. It is not created.
func (h *Harness) DestinationDir() string {
	return filepath.Join(h.baseDir, "dst")
}

// Source returns a fixture rooted at the source directory.
func (h *Harness) Source() *Fixture {
	return NewFixture(h.t, h.SourceDir())
}

// Destination returns a fixture rooted at the destination directory.
func (h *Harness) Destination() *Fixture {
	return NewFixture(h.t, h.DestinationDir())
}

// Sync runs treesync over the harness source and destination. Colors are
// off and failing actions are not retried. Arguments starting with "-" are
// passed ahead of the two roots, everything else (switches and patterns)
// after them.
func (h *Harness) Sync(args ...string) *Result {
	h.t.Helper()
	full := []string{"--no-color", "/R:0", "/W:0"}
	var rest []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			full = append(full, a)
		} else {
			rest = append(rest, a)
		}
	}
	full = append(full, h.SourceDir(), h.DestinationDir())
	return h.Run(append(full, rest...)...)
}

// Run executes a CLI command with the given arguments and captures the output.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()

	// Prepend "treesync" as the program name if not provided
	if len(args) == 0 || args[0] != "treesync" {
		args = append([]string{"treesync"}, args...)
	}

	stdout := h.capture(&os.Stdout)
	stderr := h.capture(&os.Stderr)

	cmdErr := cli.Run(context.Background(), args)

	return &Result{
		Stdout:   stdout(),
		Stderr:   stderr(),
		Err:      cmdErr,
		ExitCode: cli.ExitCode(cmdErr),
	}
}

// capture redirects *f into a pipe. The returned function restores *f and
// returns everything written in between.
func (h *Harness) capture(f **os.File) func() string {
	h.t.Helper()

	old := *f
	r, w, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create pipe: %v", err)
	}
	*f = w

	// Read concurrently: output beyond the pipe buffer would otherwise
	// block the command.
	var buf bytes.Buffer
	var copyErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, copyErr = io.Copy(&buf, r)
	}()

	return func() string {
		if err := w.Close(); err != nil {
			h.t.Fatalf("failed to close pipe writer: %v", err)
		}
		*f = old
		<-done
		if copyErr != nil {
			h.t.Fatalf("failed to read captured output: %v", copyErr)
		}
		return buf.String()
	}
}
