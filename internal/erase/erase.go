// Package erase overwrites files before removing them so their contents
// cannot be recovered by reading the freed blocks.
package erase

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
)

// Pass describes the bytes written by one overwrite pass.
type Pass struct {
	// Name identifies the pass in logs and configuration.
	Name string

	// Random fills the pass from crypto/rand instead of Fill.
	Random bool

	// Fill is the byte repeated across the file.
	Fill byte
}

var (
	PassZero   = Pass{Name: "zero", Fill: 0x00}
	PassOne    = Pass{Name: "one", Fill: 0xFF}
	PassRandom = Pass{Name: "random", Random: true}
)

// DefaultPasses returns the three passes used unless configured otherwise.
func DefaultPasses() []Pass {
	return []Pass{PassZero, PassOne, PassRandom}
}

// MinPasses is the fewest passes an Eraser accepts.
const MinPasses = 3

// ParsePass parses a pass name: "zero", "one", "random" or a byte such as
// "0xAA".
func ParsePass(s string) (Pass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zero", "0x00":
		return PassZero, nil
	case "one", "ones", "0xff":
		return PassOne, nil
	case "random":
		return PassRandom, nil
	}

	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return Pass{}, &model.ArgumentError{
			Field:   "erase.passes",
			Message: fmt.Sprintf("unknown pass %q (want zero, one, random or a byte like 0xAA)", s),
		}
	}
	return Pass{Name: fmt.Sprintf("0x%02X", v), Fill: byte(v)}, nil
}

// ParsePasses parses a list of pass names.
func ParsePasses(names []string) ([]Pass, error) {
	passes := make([]Pass, 0, len(names))
	for _, n := range names {
		p, err := ParsePass(n)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if len(passes) < MinPasses {
		return nil, &model.ArgumentError{
			Field:   "erase.passes",
			Message: fmt.Sprintf("at least %d passes are required, got %d", MinPasses, len(passes)),
		}
	}
	return passes, nil
}

// File is what the eraser needs from an open file.
type File interface {
	io.Writer
	io.Seeker
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Options configures an Eraser.
type Options struct {
	// Passes are applied in order. Fewer than MinPasses falls back to
	// DefaultPasses.
	Passes []Pass

	// Open opens a file for overwriting. Defaults to os.OpenFile with
	// O_WRONLY.
	Open func(path string) (File, error)

	// BufferSize is the write chunk size. Defaults to 64 KiB.
	BufferSize int

	// Random supplies bytes for random passes. Defaults to crypto/rand.
	Random io.Reader
}

// DefaultOptions returns the default eraser settings.
func DefaultOptions() Options {
	return Options{Passes: DefaultPasses()}
}

// Eraser overwrites and removes files and directory trees.
type Eraser struct {
	opts Options
}

// New returns an Eraser.
func New(opts Options) *Eraser {
	if len(opts.Passes) < MinPasses {
		opts.Passes = DefaultPasses()
	}
	if opts.Open == nil {
		opts.Open = openFile
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64 * 1024
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}
	return &Eraser{opts: opts}
}

func openFile(path string) (File, error) {
	// #nosec G304 - path is a destination entry scheduled for deletion
	return os.OpenFile(path, os.O_WRONLY, 0)
}

// Erase destroys path. Files are overwritten and unlinked; directories are
// erased recursively and then removed bottom-up; symbolic links are removed
// without touching their targets. A missing path is not an error.
//
// Any failure is returned as *model.SecureDeleteError and the failing file
// is left in place.
func (e *Eraser) Erase(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &model.SecureDeleteError{Path: path, Err: err}
	}

	switch {
	case info.IsDir():
		return e.eraseDir(path)
	case info.Mode().IsRegular():
		return e.eraseFile(path, info)
	default:
		if err := os.Remove(path); err != nil {
			return &model.SecureDeleteError{Path: path, Err: err}
		}
		return nil
	}
}

func (e *Eraser) eraseDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &model.SecureDeleteError{Path: dir, Err: err}
	}
	for _, entry := range entries {
		if err := e.Erase(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &model.SecureDeleteError{Path: dir, Err: err}
	}
	logging.Debug("erased directory", logging.Path(dir))
	return nil
}

func (e *Eraser) eraseFile(path string, info fs.FileInfo) error {
	if info.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(path, info.Mode().Perm()|0o200); err != nil {
			return &model.SecureDeleteError{Path: path, Err: fmt.Errorf("failed to make writable: %w", err)}
		}
	}

	f, err := e.opts.Open(path)
	if err != nil {
		return &model.SecureDeleteError{Path: path, Err: err}
	}

	size := info.Size()
	buf := make([]byte, e.opts.BufferSize)
	for i, pass := range e.opts.Passes {
		if err := e.overwrite(f, size, pass, buf); err != nil {
			_ = f.Close()
			return &model.SecureDeleteError{Path: path, Pass: i + 1, Err: err}
		}
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return &model.SecureDeleteError{Path: path, Err: fmt.Errorf("failed to truncate: %w", err)}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &model.SecureDeleteError{Path: path, Err: fmt.Errorf("failed to sync: %w", err)}
	}
	if err := f.Close(); err != nil {
		return &model.SecureDeleteError{Path: path, Err: fmt.Errorf("failed to close: %w", err)}
	}
	if err := os.Remove(path); err != nil {
		return &model.SecureDeleteError{Path: path, Err: err}
	}

	logging.Debug("erased file",
		logging.Path(path),
		logging.Bytes(size),
		logging.Count(len(e.opts.Passes)),
	)
	return nil
}

// overwrite writes one pass over bytes [0, size) and flushes it.
func (e *Eraser) overwrite(f File, size int64, pass Pass, buf []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	if !pass.Random {
		for i := range buf {
			buf[i] = pass.Fill
		}
	}

	for remaining := size; remaining > 0; {
		chunk := buf
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		if pass.Random {
			if _, err := io.ReadFull(e.opts.Random, chunk); err != nil {
				return fmt.Errorf("failed to read random bytes: %w", err)
			}
		}
		n, err := f.Write(chunk)
		if err != nil {
			return fmt.Errorf("failed to write %s pass: %w", pass.Name, err)
		}
		remaining -= int64(n)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s pass: %w", pass.Name, err)
	}
	return nil
}
