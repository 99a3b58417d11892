package model

import (
	"fmt"
	"time"
)

// ActionKind identifies the filesystem change an Action performs.
type ActionKind string

const (
	// ActionCopyFile writes the source file's bytes to the destination.
	ActionCopyFile ActionKind = "copy-file"

	// ActionCreateDir creates a destination directory.
	ActionCreateDir ActionKind = "create-dir"

	// ActionCreateEmptyFile creates a zero-byte destination file without
	// reading the source.
	ActionCreateEmptyFile ActionKind = "create-empty-file"

	// ActionDeleteFile removes one file.
	ActionDeleteFile ActionKind = "delete-file"

	// ActionDeleteDir removes a directory tree.
	ActionDeleteDir ActionKind = "delete-dir"

	// ActionMoveFile copies a file and, once the copy is durable, removes
	// the source.
	ActionMoveFile ActionKind = "move-file"

	// ActionSkip records a path that needs no change.
	ActionSkip ActionKind = "skip"
)

// Side says which tree a delete targets.
type Side int

const (
	// SideDestination is the purge/mirror side.
	SideDestination Side = iota
	// SideSource is only used by move follow-ups.
	SideSource
)

// String returns the side name.
func (s Side) String() string {
	if s == SideSource {
		return "source"
	}
	return "destination"
}

// SkipReason explains a Skip action.
type SkipReason string

const (
	ReasonUpToDate     SkipReason = "up to date"
	ReasonFiltered     SkipReason = "filtered"
	ReasonExtra        SkipReason = "extra"
	ReasonNotRecursed  SkipReason = "not recursed"
	ReasonEmptyDir     SkipReason = "empty directory"
	ReasonExists       SkipReason = "exists"
	ReasonKindMismatch SkipReason = "kind mismatch"
	ReasonAccessDenied SkipReason = "access denied"
	ReasonIrregular    SkipReason = "not a regular file"
	ReasonExcludedRoot SkipReason = "outside child passes"
	ReasonPartial      SkipReason = "partial copy"
)

// Action is one planned change. Actions are values: the planner builds them,
// the pool hands each to exactly one worker, and nobody mutates them after.
type Action struct {
	Kind ActionKind

	// Path is the relative path the action concerns.
	Path string

	// Src and Dst are absolute paths; either may be empty when unused.
	Src string
	Dst string

	// Size is the number of bytes a copy will write.
	Size int64

	// ModTime is stamped onto written files.
	ModTime time.Time

	// Entry is the kind of filesystem node involved.
	Entry Kind

	// Side is set for deletes.
	Side Side

	// Reason is set for skips.
	Reason SkipReason

	// Attrs is applied after a successful write.
	Attrs AttrPatch
}

// CopyFile plans a whole-file copy of e.
func CopyFile(e Entry, src, dst string, attrs AttrPatch) Action {
	return Action{Kind: ActionCopyFile, Path: e.Path, Src: src, Dst: dst, Size: e.Size, ModTime: e.ModTime, Entry: KindFile, Attrs: attrs}
}

// MoveFile plans a copy of e followed by removal of its source.
func MoveFile(e Entry, src, dst string, attrs AttrPatch) Action {
	return Action{Kind: ActionMoveFile, Path: e.Path, Src: src, Dst: dst, Size: e.Size, ModTime: e.ModTime, Entry: KindFile, Attrs: attrs}
}

// CreateEmptyFile plans a zero-byte stand-in for e. The source path is not
// recorded, so executing the action cannot read it.
func CreateEmptyFile(e Entry, dst string, attrs AttrPatch) Action {
	return Action{Kind: ActionCreateEmptyFile, Path: e.Path, Dst: dst, ModTime: e.ModTime, Entry: KindFile, Attrs: attrs}
}

// CreateDir plans creation of a destination directory.
func CreateDir(rel, dst string, attrs AttrPatch) Action {
	return Action{Kind: ActionCreateDir, Path: rel, Dst: dst, Entry: KindDir, Attrs: attrs}
}

// DeleteFile plans removal of a file (or link) on the given side.
func DeleteFile(rel, target string, kind Kind, side Side) Action {
	a := Action{Kind: ActionDeleteFile, Path: rel, Entry: kind, Side: side}
	a.setTarget(target)
	return a
}

// DeleteDir plans removal of a directory on the given side.
func DeleteDir(rel, target string, side Side) Action {
	a := Action{Kind: ActionDeleteDir, Path: rel, Entry: KindDir, Side: side}
	a.setTarget(target)
	return a
}

// Skip records that rel needs no change.
func Skip(rel string, kind Kind, reason SkipReason) Action {
	return Action{Kind: ActionSkip, Path: rel, Entry: kind, Reason: reason}
}

func (a *Action) setTarget(target string) {
	if a.Side == SideSource {
		a.Src = target
	} else {
		a.Dst = target
	}
}

// Target returns the absolute path the action mutates.
func (a Action) Target() string {
	if a.Side == SideSource && a.IsDelete() {
		return a.Src
	}
	return a.Dst
}

// IsDelete reports whether the action removes something.
func (a Action) IsDelete() bool {
	return a.Kind == ActionDeleteFile || a.Kind == ActionDeleteDir
}

// WritesFile reports whether the action produces a destination file.
func (a Action) WritesFile() bool {
	switch a.Kind {
	case ActionCopyFile, ActionMoveFile, ActionCreateEmptyFile:
		return true
	default:
		return false
	}
}

// String renders the action for logs.
func (a Action) String() string {
	switch a.Kind {
	case ActionSkip:
		return fmt.Sprintf("skip(%s: %s)", a.Path, a.Reason)
	case ActionDeleteFile, ActionDeleteDir:
		return fmt.Sprintf("%s(%s, %s)", a.Kind, a.Path, a.Side)
	default:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Path)
	}
}
