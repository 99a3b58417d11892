// Package executor applies single actions to the file system, retrying
// access and transient failures according to a RetryPolicy.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauern/treesync/internal/erase"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
)

// Eraser destroys file contents before removing them.
type Eraser interface {
	Erase(path string) error
}

// Options configures an Executor.
type Options struct {
	// Retry bounds retries of access and transient failures.
	Retry model.RetryPolicy

	// ListOnly validates actions without changing anything.
	ListOnly bool

	// SecureDelete routes file deletes on either side through Eraser, so
	// a moved source is destroyed the same way as a purged target.
	SecureDelete bool

	// Eraser is used when SecureDelete is set. Defaults to erase.New with
	// the default passes.
	Eraser Eraser

	// Sleep waits between attempts. It must return early with ctx's error
	// when ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// BufferSize is the copy buffer size. Defaults to 64 KiB.
	BufferSize int
}

// DefaultOptions returns options with the default retry policy.
func DefaultOptions() Options {
	return Options{
		Retry:      model.DefaultRetryPolicy(),
		BufferSize: defaultBufferSize,
	}
}

const defaultBufferSize = 64 * 1024

// Executor applies actions. It holds no per-action state and is safe for
// concurrent use by the pool's workers.
type Executor struct {
	opts Options
}

// New returns an executor.
func New(opts Options) *Executor {
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.SecureDelete && opts.Eraser == nil {
		opts.Eraser = erase.New(erase.DefaultOptions())
	}
	return &Executor{opts: opts}
}

// ListOnly reports whether the executor only validates.
func (e *Executor) ListOnly() bool {
	return e.opts.ListOnly
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attempt performs one try of the action.
func (e *Executor) attempt(a model.Action) error {
	if e.opts.ListOnly {
		return validate(a)
	}

	switch a.Kind {
	case model.ActionCopyFile, model.ActionMoveFile:
		return e.copyFile(a)
	case model.ActionCreateEmptyFile:
		return createEmptyFile(a)
	case model.ActionCreateDir:
		return createDir(a)
	case model.ActionDeleteFile:
		return e.deleteFile(a)
	case model.ActionDeleteDir:
		return e.deleteDir(a)
	case model.ActionSkip:
		return nil
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

func createDir(a model.Action) error {
	if err := os.MkdirAll(a.Dst, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", a.Dst, err)
	}
	if !a.Attrs.IsZero() {
		if err := applyAttributes(a.Dst, a.Attrs); err != nil {
			return err
		}
	}
	logging.Debug("created directory", logging.Path(a.Dst))
	return nil
}

func (e *Executor) deleteFile(a model.Action) error {
	target := a.Target()
	if e.opts.SecureDelete {
		return e.opts.Eraser.Erase(target)
	}

	if err := clearReadOnly(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Debug("could not clear read-only attribute", logging.Path(target), logging.Err(err))
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to remove %q: %w", target, err)
	}
	logging.Debug("removed file", logging.Path(target), "side", a.Side.String())
	return nil
}

func (e *Executor) deleteDir(a model.Action) error {
	target := a.Target()

	// Source directories are only removed once a move has emptied them.
	if a.Side == model.SideSource {
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove directory %q: %w", target, err)
		}
		return nil
	}

	if e.opts.SecureDelete {
		return e.opts.Eraser.Erase(target)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove directory %q: %w", target, err)
	}
	logging.Debug("removed directory", logging.Path(target))
	return nil
}

// validate checks what a list-only run can check without writing.
func validate(a model.Action) error {
	switch a.Kind {
	case model.ActionCopyFile, model.ActionMoveFile:
		info, err := os.Stat(a.Src)
		if err != nil {
			return fmt.Errorf("failed to stat source %q: %w", a.Src, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("source %q is not a regular file", a.Src)
		}
		if filepath.Dir(a.Dst) == a.Dst {
			return fmt.Errorf("destination %q has no parent directory", a.Dst)
		}
	case model.ActionDeleteFile, model.ActionDeleteDir:
		if _, err := os.Lstat(a.Target()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat %q: %w", a.Target(), err)
		}
	}
	return nil
}
