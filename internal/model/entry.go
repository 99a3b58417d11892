package model

import (
	"path"
	"strings"
	"time"
)

// Kind identifies what a scanned entry is.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindDir is a directory.
	KindDir
	// KindSymlink is a symbolic link. Links are never followed.
	KindSymlink
	// KindOther covers devices, sockets, pipes and other irregular files.
	KindOther
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Entry is one node of a scanned tree. Path is relative to the scan root,
// slash separated, and is the entry's identity when two trees are compared.
type Entry struct {
	Path    string
	Kind    Kind
	Size    int64
	ModTime time.Time
	Attrs   Attributes
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Name returns the final path element.
func (e Entry) Name() string {
	return path.Base(e.Path)
}

// ComparePaths orders relative paths component by component, so that a
// directory sorts directly before everything beneath it. This is the order a
// depth-first scan with lexically sorted siblings produces.
func ComparePaths(a, b string) int {
	for {
		ai := strings.IndexByte(a, '/')
		bi := strings.IndexByte(b, '/')

		as, bs := a, b
		if ai >= 0 {
			as = a[:ai]
		}
		if bi >= 0 {
			bs = b[:bi]
		}

		if c := strings.Compare(as, bs); c != 0 {
			return c
		}

		switch {
		case ai < 0 && bi < 0:
			return 0
		case ai < 0:
			return -1
		case bi < 0:
			return 1
		}

		a, b = a[ai+1:], b[bi+1:]
	}
}

// IsUnder reports whether p lies strictly beneath dir. The empty dir is the
// tree root, which contains every non-empty path.
func IsUnder(p, dir string) bool {
	if dir == "" {
		return p != ""
	}
	return len(p) > len(dir) && p[len(dir)] == '/' && strings.HasPrefix(p, dir)
}

// Parent returns the parent of a relative path; top-level entries have the
// root ("") as parent.
func Parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Ancestors returns every directory containing p, outermost first, starting
// with the root ("").
func Ancestors(p string) []string {
	if p == "" {
		return nil
	}
	dirs := []string{""}
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			dirs = append(dirs, p[:i])
		}
	}
	return dirs
}

// Depth returns the number of components in a relative path.
func Depth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// JoinRel joins a relative directory and a name.
func JoinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

const partialSuffix = ".tspart"

// PartialName returns the hidden name used while a file is being written.
func PartialName(name string) string {
	return "." + name + partialSuffix
}

// IsPartialName reports whether name has the form PartialName produces.
// A source tree may hold ordinary files that happen to look like this.
func IsPartialName(name string) bool {
	return len(name) > len(partialSuffix)+1 &&
		strings.HasPrefix(name, ".") && strings.HasSuffix(name, partialSuffix)
}

// PartialTarget returns the file name a partial name stands in for, or ""
// when name is not a partial name.
func PartialTarget(name string) string {
	if !IsPartialName(name) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "."), partialSuffix)
}
