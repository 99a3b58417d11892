// Package scanner walks a directory tree lazily and yields its entries in
// the order the planner merges them: depth-first, each directory before its
// children, siblings sorted by name.
package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
)

type frame struct {
	dir     string
	entries []os.DirEntry
	next    int
}

// Scanner yields the entries below a root. Only one directory listing per
// stack level is held in memory, so memory grows with depth and directory
// width, never with tree size.
//
// A Scanner is not safe for concurrent use.
type Scanner struct {
	root string

	stack []*frame

	// pending is the directory most recently returned; its listing is read
	// on the next call to Next unless SkipDir is called first.
	pending    string
	hasPending bool

	started bool
	done    bool
}

// New returns a scanner rooted at root. Every entry is reported, hidden
// names included. Nothing is read until Next.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Next returns the next entry. At the end of the tree it returns io.EOF.
//
// When a directory that was already returned cannot be listed, Next returns
// that directory's entry together with the error (an *model.AccessError for
// permission problems); the subtree is skipped and the following call
// continues with the directory's next sibling. A missing root is an empty
// tree.
func (s *Scanner) Next() (model.Entry, error) {
	if s.done {
		return model.Entry{}, io.EOF
	}

	if !s.started {
		s.started = true
		info, err := os.Lstat(s.root)
		if errors.Is(err, fs.ErrNotExist) {
			s.done = true
			return model.Entry{}, io.EOF
		}
		if err != nil {
			s.done = true
			return model.Entry{Kind: model.KindDir}, listError(s.root, err)
		}
		if !info.IsDir() {
			s.done = true
			return model.Entry{Kind: entryKind(info.Mode())}, fmt.Errorf("scan root %q is not a directory", s.root)
		}
		s.pending, s.hasPending = "", true
	}

	if s.hasPending {
		dir := s.pending
		s.hasPending = false
		if err := s.push(dir); err != nil {
			if dir == "" {
				s.done = true
			}
			return model.Entry{Path: dir, Kind: model.KindDir}, err
		}
	}

	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		if top.next >= len(top.entries) {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}

		de := top.entries[top.next]
		top.next++

		info, err := de.Info()
		if err != nil {
			// Removed between listing and stat.
			logging.Debug("entry vanished during scan",
				logging.Path(model.JoinRel(top.dir, de.Name())),
				logging.Err(err),
			)
			continue
		}

		e := model.Entry{
			Path:    model.JoinRel(top.dir, de.Name()),
			Kind:    entryKind(info.Mode()),
			ModTime: info.ModTime(),
			Attrs:   attributes(de.Name(), info),
		}
		if e.Kind == model.KindFile {
			e.Size = info.Size()
		}
		if e.Kind == model.KindDir {
			s.pending, s.hasPending = e.Path, true
		}
		return e, nil
	}

	s.done = true
	return model.Entry{}, io.EOF
}

// SkipDir prunes the directory returned by the last call to Next. It has no
// effect when that entry was not a directory.
func (s *Scanner) SkipDir() {
	s.hasPending = false
}

func (s *Scanner) push(dir string) error {
	abs := filepath.Join(s.root, filepath.FromSlash(dir))

	// os.ReadDir returns entries sorted by name.
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug("directory vanished during scan", logging.Path(abs))
			return nil
		}
		return listError(abs, err)
	}

	s.stack = append(s.stack, &frame{dir: dir, entries: entries})
	return nil
}

func listError(path string, err error) error {
	switch model.Classify(err) {
	case model.ErrKindAccess:
		return &model.AccessError{Path: path, Err: err}
	case model.ErrKindTransient:
		return &model.TransientError{Path: path, Err: err}
	default:
		return fmt.Errorf("failed to list %q: %w", path, err)
	}
}

func entryKind(mode fs.FileMode) model.Kind {
	switch {
	case mode.IsRegular():
		return model.KindFile
	case mode.IsDir():
		return model.KindDir
	case mode&fs.ModeSymlink != 0:
		return model.KindSymlink
	default:
		return model.KindOther
	}
}

// Scan walks root and yields every entry. Listing errors are yielded with
// the entry of the directory that failed; the walk continues after them.
func Scan(root string) iter.Seq2[model.Entry, error] {
	return func(yield func(model.Entry, error) bool) {
		s := New(root)
		for {
			e, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(e, err) {
				return
			}
		}
	}
}
