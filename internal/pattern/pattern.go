// Package pattern matches file names against Robocopy-style wildcard
// patterns. The only wildcard is '*', which matches any run of characters,
// including none.
package pattern

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauern/treesync/internal/model"
)

// MatchAll is the Robocopy default pattern. It selects every file, including
// names without a dot.
const MatchAll = "*.*"

// compiled is one pattern split at its wildcards.
type compiled struct {
	source string

	// anchoredStart and anchoredEnd are false when the pattern begins or
	// ends with '*'.
	anchoredStart bool
	anchoredEnd   bool

	// fragments are the literal runs between wildcards, never empty.
	fragments []string

	// all is set for patterns made of wildcards only, or "*.*".
	all bool
}

// Matcher tests names against an ordered list of patterns. The zero value
// and a Matcher built from no patterns match every name. A Matcher is
// immutable and safe for concurrent use.
type Matcher struct {
	patterns   []compiled
	ignoreCase bool
}

// Compile validates and compiles patterns. An empty list matches everything.
func Compile(patterns []string, ignoreCase bool) (*Matcher, error) {
	m := &Matcher{ignoreCase: ignoreCase}

	var errs model.ArgumentErrors
	for _, p := range patterns {
		c, err := compile(p, ignoreCase)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.patterns = append(m.patterns, c)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return m, nil
}

func compile(p string, ignoreCase bool) (compiled, error) {
	if p == "" {
		return compiled{}, &model.ArgumentError{Field: "pattern", Message: "pattern must not be empty"}
	}
	if strings.ContainsAny(p, `/\`) {
		return compiled{}, &model.ArgumentError{
			Field:   "pattern",
			Message: fmt.Sprintf("%q must be a file name pattern without path separators", p),
		}
	}

	c := compiled{source: p}
	if p == MatchAll || strings.Trim(p, "*") == "" {
		c.all = true
		return c, nil
	}

	if ignoreCase {
		p = strings.ToLower(p)
	}
	c.anchoredStart = p[0] != '*'
	c.anchoredEnd = p[len(p)-1] != '*'
	for _, f := range strings.Split(p, "*") {
		if f != "" {
			c.fragments = append(c.fragments, f)
		}
	}
	return c, nil
}

// match places the fragments greedily left to right. The first fragment is
// pinned to the start and the last to the end when anchored; the middle
// fragments take their leftmost occurrence, which is optimal for '*'-only
// patterns.
func (c compiled) match(name string) bool {
	if c.all {
		return true
	}

	frags := c.fragments
	if c.anchoredStart {
		if !strings.HasPrefix(name, frags[0]) {
			return false
		}
		name = name[len(frags[0]):]
		frags = frags[1:]
		if len(frags) == 0 {
			return !c.anchoredEnd || name == ""
		}
	}

	var last string
	if c.anchoredEnd {
		last = frags[len(frags)-1]
		frags = frags[:len(frags)-1]
	}

	for _, f := range frags {
		i := strings.Index(name, f)
		if i < 0 {
			return false
		}
		name = name[i+len(f):]
	}

	if c.anchoredEnd {
		return strings.HasSuffix(name, last)
	}
	return true
}

// Match reports whether name matches any pattern.
func (m *Matcher) Match(name string) bool {
	if m == nil || len(m.patterns) == 0 {
		return true
	}
	if m.ignoreCase {
		name = strings.ToLower(name)
	}
	for _, c := range m.patterns {
		if c.match(name) {
			return true
		}
	}
	return false
}

// MatchesAll reports whether the matcher accepts every name.
func (m *Matcher) MatchesAll() bool {
	if m == nil || len(m.patterns) == 0 {
		return true
	}
	for _, c := range m.patterns {
		if c.all {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, c := range m.patterns {
		out[i] = c.source
	}
	return out
}

// String renders the pattern list for banners.
func (m *Matcher) String() string {
	if m == nil || len(m.patterns) == 0 {
		return MatchAll
	}
	return strings.Join(m.Patterns(), " ")
}

// Match compiles patterns with the platform's case rule and tests name.
// Invalid patterns never match.
func Match(name string, patterns []string) bool {
	m, err := Compile(patterns, PlatformIgnoresCase())
	if err != nil {
		return false
	}
	return m.Match(name)
}

// PlatformIgnoresCase reports whether file names on this platform are
// conventionally case-insensitive.
func PlatformIgnoresCase() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
