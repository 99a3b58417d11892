// Package pool executes a planned action stream on a fixed set of workers.
//
// A single dispatcher pulls actions from the stream in order and hands them
// to the workers over an unbuffered channel, so at most Workers actions are
// in flight and the rest of the plan is produced on demand. Every CreateDir
// is registered before it is handed out; an action beneath a registered
// directory waits until that directory exists and fails without touching
// the file system when it could not be created.
package pool

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/klauern/treesync/internal/executor"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
)

// Applier runs one action to completion.
type Applier interface {
	Apply(ctx context.Context, a model.Action) executor.Outcome
}

// Observer receives planning and completion notifications. Both methods
// are called concurrently and must not block for long.
type Observer interface {
	ActionPlanned(a model.Action)
	ActionDone(ev model.ProgressEvent)
}

// Options configures a Pool.
type Options struct {
	// Workers is the number of concurrent workers.
	Workers int

	// Move controls source cleanup after copies.
	Move model.MoveMode

	// SourceRoot is the pass root; MoveAll never removes it.
	SourceRoot string

	// Observer is optional.
	Observer Observer
}

// DefaultOptions returns the default worker count.
func DefaultOptions() Options {
	return Options{Workers: model.DefaultWorkers}
}

// Failure records an action that did not succeed.
type Failure struct {
	Path   string
	Action model.ActionKind
	Err    error
}

// Report summarizes a pool run.
type Report struct {
	Stats        model.Snapshot
	BytesPlanned int64
	Failures     []Failure
	Cancelled    bool
	Elapsed      time.Duration
}

// Pool drives actions through an Applier.
type Pool struct {
	applier Applier
	opts    Options
}

// New returns a pool.
func New(applier Applier, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = model.DefaultWorkers
	}
	return &Pool{applier: applier, opts: opts}
}

// gate is closed when a CreateDir finishes.
type gate struct {
	done chan struct{}
	ok   bool
}

// run holds the state shared by the dispatcher and workers of one Run.
type run struct {
	p     *Pool
	stats *model.Statistics

	mu        sync.Mutex
	gates     map[string]*gate
	failures  []Failure
	cancelled bool
	planned   int64

	// moved collects source directories that held moved files.
	moved mapset.Set[string]
}

// Run applies every action in the stream and returns once all dispatched
// work has finished. When ctx is cancelled the dispatcher stops pulling,
// actions already handed to workers finish, and the report is marked
// cancelled.
func (p *Pool) Run(ctx context.Context, actions iter.Seq[model.Action]) *Report {
	start := time.Now()
	r := &run{
		p:     p,
		stats: model.NewStatistics(),
		gates: make(map[string]*gate),
		moved: mapset.NewSet[string](),
	}

	work := make(chan model.Action)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(work)
		for a := range actions {
			if ctx.Err() != nil {
				r.markCancelled()
				return nil
			}
			if a.Kind == model.ActionSkip {
				r.skip(a)
				continue
			}
			r.plan(a)
			select {
			case work <- a:
			case <-gctx.Done():
				r.drop(a)
				r.markCancelled()
				return nil
			}
		}
		if ctx.Err() != nil {
			r.markCancelled()
		}
		return nil
	})

	for range p.opts.Workers {
		g.Go(func() error {
			for a := range work {
				r.execute(ctx, a)
			}
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	if p.opts.Move == model.MoveAll && !r.cancelled {
		r.removeEmptySources(ctx)
	}

	return &Report{
		Stats:        r.stats.Snapshot(),
		BytesPlanned: r.planned,
		Failures:     r.failures,
		Cancelled:    r.cancelled,
		Elapsed:      time.Since(start),
	}
}

func (r *run) markCancelled() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

// plan registers CreateDir gates and counts planned bytes before the action
// is handed out.
func (r *run) plan(a model.Action) {
	r.mu.Lock()
	if a.Kind == model.ActionCreateDir {
		r.gates[a.Path] = &gate{done: make(chan struct{})}
	}
	if a.Kind == model.ActionCopyFile || a.Kind == model.ActionMoveFile {
		r.planned += a.Size
	}
	r.mu.Unlock()

	if r.p.opts.Observer != nil {
		r.p.opts.Observer.ActionPlanned(a)
	}
}

// drop resolves the gate of an undispatched CreateDir so nothing waits on
// it forever.
func (r *run) drop(a model.Action) {
	if a.Kind == model.ActionCreateDir {
		r.resolve(a.Path, false)
	}
}

func (r *run) resolve(dir string, ok bool) {
	r.mu.Lock()
	g := r.gates[dir]
	r.mu.Unlock()
	if g == nil {
		return
	}
	g.ok = ok
	close(g.done)
}

// await blocks until every registered ancestor directory of a has been
// created. It reports whether one of them failed, and which.
func (r *run) await(ctx context.Context, a model.Action) (failed bool, dir string, err error) {
	for _, dir := range model.Ancestors(a.Path) {
		r.mu.Lock()
		g := r.gates[dir]
		r.mu.Unlock()
		if g == nil {
			continue
		}
		select {
		case <-g.done:
			if !g.ok {
				return true, dir, nil
			}
		case <-ctx.Done():
			return false, "", ctx.Err()
		}
	}
	return false, "", nil
}

func (r *run) execute(ctx context.Context, a model.Action) {
	failed, dir, err := r.await(ctx, a)
	if err != nil {
		r.drop(a)
		r.markCancelled()
		r.notify(a, model.OutcomeCancelled, err)
		return
	}
	if failed {
		if a.Kind == model.ActionCreateDir {
			r.resolve(a.Path, false)
		}
		r.fail(a, &parentError{dir: dir})
		return
	}

	out := r.p.applier.Apply(ctx, a)

	if a.Kind == model.ActionCreateDir {
		r.resolve(a.Path, out.OK())
	}

	switch {
	case out.OK():
		r.succeed(ctx, a)
	case out.Cancelled():
		r.markCancelled()
		r.notify(a, model.OutcomeCancelled, out.Err)
	default:
		logging.WithContext(ctx).Debug("action gave up",
			logging.Action(string(a.Kind)),
			logging.Path(a.Path),
			logging.Attempt(out.Attempts),
			logging.Err(out.Err),
		)
		r.fail(a, out.Err)
	}
}

func (r *run) succeed(ctx context.Context, a model.Action) {
	switch a.Kind {
	case model.ActionCreateDir:
		r.stats.AddDir()
	case model.ActionCopyFile, model.ActionMoveFile:
		r.stats.AddFile(a.Size)
	case model.ActionCreateEmptyFile:
		r.stats.AddFile(0)
	case model.ActionDeleteFile:
		if a.Side == model.SideDestination {
			r.stats.AddFileRemoved()
		}
	case model.ActionDeleteDir:
		if a.Side == model.SideDestination {
			r.stats.AddDirRemoved()
		}
	}
	r.notify(a, model.OutcomeSucceeded, nil)

	if a.Kind == model.ActionMoveFile {
		r.removeMovedSource(ctx, a)
	}
}

// removeMovedSource deletes the source of a move whose copy is durable.
func (r *run) removeMovedSource(ctx context.Context, a model.Action) {
	del := model.DeleteFile(a.Path, a.Src, model.KindFile, model.SideSource)
	out := r.p.applier.Apply(ctx, del)
	if !out.OK() {
		logging.WithContext(ctx).Warn("failed to remove moved source",
			logging.Path(a.Src),
			logging.Err(out.Err),
		)
		r.recordFailure(del, out.Err)
		r.notify(del, model.OutcomeFailed, out.Err)
		return
	}
	r.notify(del, model.OutcomeSucceeded, nil)

	if r.p.opts.Move == model.MoveAll {
		for _, dir := range model.Ancestors(a.Path) {
			if dir != "" {
				r.moved.Add(dir)
			}
		}
	}
}

func (r *run) fail(a model.Action, err error) {
	switch a.Kind {
	case model.ActionCreateDir:
		r.stats.AddDirSkipped()
	case model.ActionCopyFile, model.ActionMoveFile, model.ActionCreateEmptyFile, model.ActionDeleteFile:
		r.stats.AddFileFailed()
	}
	r.recordFailure(a, err)
	r.notify(a, model.OutcomeFailed, err)
}

func (r *run) recordFailure(a model.Action, err error) {
	r.mu.Lock()
	r.failures = append(r.failures, Failure{Path: a.Path, Action: a.Kind, Err: err})
	r.mu.Unlock()
	logging.Warn("action failed",
		logging.Action(string(a.Kind)),
		logging.Path(a.Target()),
		logging.Err(err),
	)
}

func (r *run) skip(a model.Action) {
	if a.Entry == model.KindDir {
		r.stats.AddDirSkipped()
	} else {
		r.stats.AddFileSkipped()
	}
	if r.p.opts.Observer != nil {
		r.p.opts.Observer.ActionPlanned(a)
	}
	r.notify(a, model.OutcomeSkipped, nil)
}

func (r *run) notify(a model.Action, outcome model.Outcome, err error) {
	if r.p.opts.Observer == nil {
		return
	}
	size := a.Size
	if a.Kind == model.ActionCreateEmptyFile {
		size = 0
	}
	r.p.opts.Observer.ActionDone(model.ProgressEvent{
		Path:    a.Path,
		Action:  a.Kind,
		Entry:   a.Entry,
		Side:    a.Side,
		Outcome: outcome,
		Size:    size,
		Reason:  a.Reason,
		Err:     err,
	})
}

// removeEmptySources removes source directories emptied by moves, deepest
// first. Directories that still hold anything are left alone.
func (r *run) removeEmptySources(ctx context.Context) {
	dirs := r.moved.ToSlice()
	slices.SortFunc(dirs, func(a, b string) int {
		if d := model.Depth(b) - model.Depth(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	for _, dir := range dirs {
		target := filepath.Join(r.p.opts.SourceRoot, filepath.FromSlash(dir))
		out := r.p.applier.Apply(ctx, model.DeleteDir(dir, target, model.SideSource))
		if !out.OK() {
			logging.Debug("source directory kept", logging.Path(target), logging.Err(out.Err))
			continue
		}
		r.notify(model.DeleteDir(dir, target, model.SideSource), model.OutcomeSucceeded, nil)
	}
}

// parentError fails an action whose directory could not be created.
type parentError struct {
	dir string
}

func (e *parentError) Error() string {
	if e.dir == "" {
		return "destination root could not be created"
	}
	return "parent directory " + e.dir + " could not be created"
}

// IsParentFailure reports whether err is a dependency failure.
func IsParentFailure(err error) bool {
	var pe *parentError
	return errors.As(err, &pe)
}
