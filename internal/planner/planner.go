// Package planner compares a source and a destination tree and yields the
// actions that make the destination match the source under a policy.
//
// Both trees are scanned lazily and merged by relative path, so planning
// starts producing actions before either tree has been fully read and
// memory stays bounded by tree depth.
package planner

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/pattern"
	"github.com/klauern/treesync/internal/scanner"
)

// Planner turns two trees into an action stream.
type Planner struct {
	policy  model.Policy
	matcher *pattern.Matcher
	attrs   model.AttrPatch
}

// New returns a planner for the policy. A nil matcher matches every file.
func New(policy model.Policy, matcher *pattern.Matcher) *Planner {
	policy = policy.Normalize()
	if matcher.MatchesAll() {
		matcher = nil
	}
	return &Planner{
		policy:  policy,
		matcher: matcher,
		attrs:   policy.AttrPatch(),
	}
}

// cursor is a scanner with one entry of lookahead.
type cursor struct {
	sc   *scanner.Scanner
	head model.Entry
	ok   bool
}

func newCursor(root string) *cursor {
	return &cursor{sc: scanner.New(root)}
}

// advance moves to the next entry. It returns the listing error of the
// directory that was the head, if reading it failed.
func (c *cursor) advance() error {
	var listErr error
	for {
		e, err := c.sc.Next()
		switch {
		case errors.Is(err, io.EOF):
			c.ok = false
			return listErr
		case err != nil:
			listErr = err
			if e.Path == "" {
				c.ok = false
				return listErr
			}
			continue
		}
		c.head, c.ok = e, true
		return listErr
	}
}

// consume moves past the head, pruning its subtree when prune is set.
func (c *cursor) consume(prune bool) error {
	if prune && c.head.IsDir() {
		c.sc.SkipDir()
	}
	return c.advance()
}

// skipUnder discards every entry below dir.
func (c *cursor) skipUnder(dir string) {
	for c.ok && model.IsUnder(c.head.Path, dir) {
		_ = c.consume(true)
	}
}

// pendingDir is a source-only directory whose creation waits for content.
type pendingDir struct {
	rel     string
	dst     string
	created bool
}

type run struct {
	p       *Planner
	ctx     context.Context
	yield   func(model.Action) bool
	srcRoot string
	dstRoot string
	src     *cursor
	dst     *cursor
	pending []pendingDir
	stopped bool
}

// Plan yields the actions for one source/destination pair. The sequence is
// lazy; it stops early when ctx is cancelled or the consumer stops.
func (p *Planner) Plan(ctx context.Context, srcRoot, dstRoot string) iter.Seq[model.Action] {
	return func(yield func(model.Action) bool) {
		r := &run{
			p:       p,
			ctx:     ctx,
			yield:   yield,
			srcRoot: srcRoot,
			dstRoot: dstRoot,
			src:     newCursor(srcRoot),
			dst:     newCursor(dstRoot),
		}
		r.plan()
	}
}

func (r *run) emit(a model.Action) bool {
	if r.stopped {
		return false
	}
	if !r.yield(a) {
		r.stopped = true
		return false
	}
	return true
}

func (r *run) plan() {
	if _, err := os.Lstat(r.dstRoot); errors.Is(err, fs.ErrNotExist) {
		if !r.emit(model.CreateDir("", r.dstRoot, r.p.attrs)) {
			return
		}
	}

	if err := r.src.advance(); err != nil {
		logging.Warn("cannot list source root", logging.Path(r.srcRoot), logging.Err(err))
		r.emit(model.Skip("", model.KindDir, model.ReasonAccessDenied))
		return
	}
	if err := r.dst.advance(); err != nil {
		logging.Warn("cannot list destination root", logging.Path(r.dstRoot), logging.Err(err))
		r.emit(model.Skip("", model.KindDir, model.ReasonAccessDenied))
		return
	}

	for !r.stopped && (r.src.ok || r.dst.ok) {
		if r.ctx.Err() != nil {
			return
		}

		var c int
		switch {
		case !r.dst.ok:
			c = -1
		case !r.src.ok:
			c = 1
		default:
			c = model.ComparePaths(r.src.head.Path, r.dst.head.Path)
		}

		switch {
		case c < 0:
			r.closePending(r.src.head.Path)
			r.sourceOnly(r.src.head)
		case c > 0:
			r.closePending(r.dst.head.Path)
			r.destOnly(r.dst.head)
		default:
			r.closePending(r.src.head.Path)
			r.both(r.src.head, r.dst.head)
		}
	}

	if !r.stopped && r.ctx.Err() == nil {
		r.closeAllPending()
	}
}

func (r *run) srcPath(rel string) string {
	return filepath.Join(r.srcRoot, filepath.FromSlash(rel))
}

func (r *run) dstPath(rel string) string {
	return filepath.Join(r.dstRoot, filepath.FromSlash(rel))
}

// closePending emits Skip(empty) for deferred directories that the stream
// has left without creating them.
func (r *run) closePending(next string) {
	for len(r.pending) > 0 {
		top := r.pending[len(r.pending)-1]
		if model.IsUnder(next, top.rel) {
			return
		}
		r.pending = r.pending[:len(r.pending)-1]
		if !top.created && !r.emit(model.Skip(top.rel, model.KindDir, model.ReasonEmptyDir)) {
			return
		}
	}
}

func (r *run) closeAllPending() {
	for i := len(r.pending) - 1; i >= 0; i-- {
		if !r.pending[i].created && !r.emit(model.Skip(r.pending[i].rel, model.KindDir, model.ReasonEmptyDir)) {
			return
		}
	}
	r.pending = nil
}

// materialize creates every deferred ancestor before content is written
// beneath it.
func (r *run) materialize() bool {
	for i := range r.pending {
		if r.pending[i].created {
			continue
		}
		r.pending[i].created = true
		if !r.emit(model.CreateDir(r.pending[i].rel, r.pending[i].dst, r.p.attrs)) {
			return false
		}
	}
	return true
}

func (r *run) write(e model.Entry) {
	if !r.materialize() {
		return
	}
	src, dst := r.srcPath(e.Path), r.dstPath(e.Path)
	switch {
	case r.p.policy.EmptyFiles:
		r.emit(model.CreateEmptyFile(e, dst, r.p.attrs))
	case r.p.policy.Move != model.MoveNone:
		r.emit(model.MoveFile(e, src, dst, r.p.attrs))
	default:
		r.emit(model.CopyFile(e, src, dst, r.p.attrs))
	}
}

func (r *run) sourceOnly(e model.Entry) {
	switch e.Kind {
	case model.KindDir:
		if !r.p.policy.Recursive() {
			r.emit(model.Skip(e.Path, model.KindDir, model.ReasonNotRecursed))
			_ = r.src.consume(true)
			return
		}
		if r.p.policy.RecurseEmpty {
			r.emit(model.CreateDir(e.Path, r.dstPath(e.Path), r.p.attrs))
		} else {
			r.pending = append(r.pending, pendingDir{rel: e.Path, dst: r.dstPath(e.Path)})
		}
		if err := r.src.consume(false); err != nil {
			r.accessDenied(e.Path, r.srcPath(e.Path), err)
			if n := len(r.pending); n > 0 && r.pending[n-1].rel == e.Path && !r.pending[n-1].created {
				r.pending = r.pending[:n-1]
			}
		}

	case model.KindFile:
		if r.p.matcher.Match(e.Name()) {
			r.write(e)
		} else {
			r.emit(model.Skip(e.Path, model.KindFile, model.ReasonFiltered))
		}
		_ = r.src.consume(false)

	default:
		r.emit(model.Skip(e.Path, e.Kind, model.ReasonIrregular))
		_ = r.src.consume(false)
	}
}

func (r *run) destOnly(e model.Entry) {
	purging := r.p.policy.Purging()
	name := e.Name()
	if e.Kind == model.KindFile && model.IsPartialName(name) {
		target := model.PartialTarget(name)
		if r.resumable(e.Path, target) {
			r.emit(model.Skip(e.Path, e.Kind, model.ReasonPartial))
			_ = r.dst.consume(true)
			return
		}
		// A leftover with no source file to finish is purged under the
		// name it would have been committed as.
		name = target
	}

	switch {
	case e.Kind == model.KindDir && purging:
		r.emit(model.DeleteDir(e.Path, r.dstPath(e.Path), model.SideDestination))
	case e.Kind == model.KindDir:
		r.emit(model.Skip(e.Path, model.KindDir, model.ReasonExtra))
	case !purging:
		r.emit(model.Skip(e.Path, e.Kind, model.ReasonExtra))
	case r.p.matcher.Match(name):
		r.emit(model.DeleteFile(e.Path, r.dstPath(e.Path), e.Kind, model.SideDestination))
	default:
		r.emit(model.Skip(e.Path, e.Kind, model.ReasonFiltered))
	}
	_ = r.dst.consume(true)
}

// resumable reports whether the destination partial at rel still has a
// source file to finish. Partials are never written while the listing that
// holds them is read, so one seen here is left over from an earlier run.
func (r *run) resumable(rel, target string) bool {
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	info, err := os.Lstat(r.srcPath(model.JoinRel(dir, target)))
	return err == nil && info.Mode().IsRegular()
}

func (r *run) both(s, d model.Entry) {
	switch {
	case s.Kind == model.KindSymlink || s.Kind == model.KindOther:
		r.emit(model.Skip(s.Path, s.Kind, model.ReasonIrregular))
		_ = r.src.consume(true)
		_ = r.dst.consume(true)

	case s.Kind != d.Kind:
		logging.Warn("source and destination kinds differ",
			logging.Path(r.dstPath(s.Path)),
			"source", s.Kind.String(),
			"destination", d.Kind.String(),
		)
		r.emit(model.Skip(s.Path, s.Kind, model.ReasonKindMismatch))
		_ = r.src.consume(true)
		_ = r.dst.consume(true)

	case s.Kind == model.KindDir:
		if !r.p.policy.Recursive() {
			r.emit(model.Skip(s.Path, model.KindDir, model.ReasonNotRecursed))
			_ = r.src.consume(true)
			_ = r.dst.consume(true)
			return
		}
		r.emit(model.Skip(s.Path, model.KindDir, model.ReasonExists))
		if err := r.src.consume(false); err != nil {
			r.accessDenied(s.Path, r.srcPath(s.Path), err)
			_ = r.dst.consume(true)
			return
		}
		if err := r.dst.consume(false); err != nil {
			r.accessDenied(s.Path, r.dstPath(s.Path), err)
			r.src.skipUnder(s.Path)
		}

	default:
		switch {
		case !r.p.matcher.Match(s.Name()):
			r.emit(model.Skip(s.Path, model.KindFile, model.ReasonFiltered))
		case r.upToDate(s, d):
			r.emit(model.Skip(s.Path, model.KindFile, model.ReasonUpToDate))
		default:
			r.write(s)
		}
		_ = r.src.consume(false)
		_ = r.dst.consume(false)
	}
}

func (r *run) accessDenied(rel, abs string, err error) {
	logging.Warn("skipping unreadable directory", logging.Path(abs), logging.Err(err))
	r.emit(model.Skip(rel, model.KindDir, model.ReasonAccessDenied))
}

// upToDate reports whether the destination file already matches. In
// empty-file mode the stand-in is current when it is empty and carries the
// source mtime.
func (r *run) upToDate(s, d model.Entry) bool {
	if !sameTime(s.ModTime, d.ModTime, r.p.policy.ModTimeWindow) {
		return false
	}
	if r.p.policy.EmptyFiles {
		return d.Size == 0
	}
	return s.Size == d.Size
}

func sameTime(a, b time.Time, window time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}
