package model

import (
	"fmt"
	"strings"
	"time"
)

// MoveMode defines what happens to the source after a file is copied.
type MoveMode string

const (
	// MoveNone leaves the source untouched.
	MoveNone MoveMode = ""

	// MoveFiles deletes each source file once its copy is durable.
	MoveFiles MoveMode = "files"

	// MoveAll is MoveFiles plus removal of source directories that the
	// moves left empty. The pass root is never removed.
	MoveAll MoveMode = "all"
)

// IsValid returns true if the mode is recognized.
func (m MoveMode) IsValid() bool {
	switch m {
	case MoveNone, MoveFiles, MoveAll:
		return true
	default:
		return false
	}
}

// AllMoveModes returns all supported move modes.
func AllMoveModes() []MoveMode {
	return []MoveMode{MoveNone, MoveFiles, MoveAll}
}

// String returns the string representation of the mode.
func (m MoveMode) String() string {
	if m == MoveNone {
		return "none"
	}
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m MoveMode) Description() string {
	switch m {
	case MoveNone:
		return "Copy files and leave the source untouched"
	case MoveFiles:
		return "Delete source files after they are copied"
	case MoveAll:
		return "Delete source files and the directories they leave empty"
	default:
		return "Unknown move mode"
	}
}

// ParseMoveMode parses a move mode name.
func ParseMoveMode(s string) (MoveMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MoveNone, nil
	case "files", "mov":
		return MoveFiles, nil
	case "all", "move":
		return MoveAll, nil
	default:
		return MoveNone, &ArgumentError{Field: "move", Message: fmt.Sprintf("unknown move mode %q", s)}
	}
}

// Policy declares what a run should make the destination look like.
type Policy struct {
	// RecurseNonEmpty descends into subdirectories but does not create
	// directories that would end up empty (/S).
	RecurseNonEmpty bool

	// RecurseEmpty descends and recreates every directory (/E).
	RecurseEmpty bool

	// Purge deletes destination entries missing from the source.
	Purge bool

	// Mirror is Purge plus RecurseEmpty.
	Mirror bool

	// Move removes sources after copying.
	Move MoveMode

	// EmptyFiles creates zero-byte stand-ins instead of copying content.
	EmptyFiles bool

	// ChildOnly runs one independent pass per immediate source subdirectory.
	ChildOnly bool

	// SecureDelete overwrites files before unlinking them.
	SecureDelete bool

	// ListOnly validates and reports without changing anything.
	ListOnly bool

	// AttrAdd and AttrRemove are applied to every written file and directory.
	AttrAdd    Attributes
	AttrRemove Attributes

	// Include holds wildcard patterns for file names; empty means all.
	Include []string

	// IgnoreCase makes pattern matching case-insensitive.
	IgnoreCase bool

	// ModTimeWindow is the largest mtime difference still treated as equal.
	ModTimeWindow time.Duration
}

// Normalize expands implied flags.
func (p Policy) Normalize() Policy {
	if p.Mirror {
		p.Purge = true
		p.RecurseEmpty = true
	}
	return p
}

// Recursive reports whether the planner descends into subdirectories.
func (p Policy) Recursive() bool {
	return p.RecurseEmpty || p.RecurseNonEmpty || p.Mirror
}

// Purging reports whether destination-only entries are deleted.
func (p Policy) Purging() bool {
	return p.Purge || p.Mirror
}

// AttrPatch returns the attribute patch applied after writes.
func (p Policy) AttrPatch() AttrPatch {
	return AttrPatch{Add: p.AttrAdd, Remove: p.AttrRemove}
}

// Validate checks the policy for combinations that cannot be executed.
func (p Policy) Validate() error {
	var errs ArgumentErrors
	if !p.Move.IsValid() {
		errs = append(errs, &ArgumentError{Field: "move", Message: fmt.Sprintf("unknown move mode %q", p.Move)})
	}
	if p.EmptyFiles && p.Move != MoveNone {
		errs = append(errs, &ArgumentError{Field: "move", Message: "empty-file mode cannot be combined with move: the source content would be lost"})
	}
	if p.ModTimeWindow < 0 {
		errs = append(errs, &ArgumentError{Field: "mtime-window", Message: "must not be negative"})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Switches renders the policy in Robocopy switch notation for banners.
func (p Policy) Switches() []string {
	var out []string
	switch {
	case p.RecurseEmpty && !p.Mirror:
		out = append(out, "/E")
	case p.RecurseNonEmpty && !p.Mirror:
		out = append(out, "/S")
	}
	switch {
	case p.Mirror:
		out = append(out, "/MIR")
	case p.Purge:
		out = append(out, "/PURGE")
	}
	switch p.Move {
	case MoveAll:
		out = append(out, "/MOVE")
	case MoveFiles:
		out = append(out, "/MOV")
	}
	if p.AttrAdd != 0 {
		out = append(out, "/A+:"+p.AttrAdd.String())
	}
	if p.AttrRemove != 0 {
		out = append(out, "/A-:"+p.AttrRemove.String())
	}
	if p.ListOnly {
		out = append(out, "/L")
	}
	if p.EmptyFiles {
		out = append(out, "/EMPTY")
	}
	if p.ChildOnly {
		out = append(out, "/CHILDONLY")
	}
	if p.SecureDelete {
		out = append(out, "/SHRED")
	}
	return out
}

// Default retry values.
const (
	DefaultMaxRetries = 1_000_000
	DefaultRetryWait  = 30 * time.Second
	DefaultWorkers    = 8
	MaxWorkers        = 128
)

// RetryPolicy bounds how hard a failing action is retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Wait is the pause between attempts.
	Wait time.Duration

	// Restartable resumes interrupted copies from the bytes already written.
	Restartable bool
}

// DefaultRetryPolicy returns the default retry settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Wait:       DefaultRetryWait,
	}
}

// Validate checks the retry settings.
func (r RetryPolicy) Validate() error {
	var errs ArgumentErrors
	if r.MaxRetries < 0 {
		errs = append(errs, &ArgumentError{Field: "retries", Message: "must not be negative"})
	}
	if r.Wait < 0 {
		errs = append(errs, &ArgumentError{Field: "wait", Message: "must not be negative"})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
