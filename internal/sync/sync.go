package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/klauern/treesync/internal/erase"
	"github.com/klauern/treesync/internal/executor"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/pattern"
	"github.com/klauern/treesync/internal/planner"
	"github.com/klauern/treesync/internal/pool"
	"github.com/klauern/treesync/internal/runlock"
	"github.com/klauern/treesync/internal/util"
)

// Options configures one synchronization run.
type Options struct {
	// Source is the tree copied from.
	Source string

	// Destination is the tree made to match Source.
	Destination string

	// Policy declares the changes the run may make.
	Policy model.Policy

	// Retry bounds retries of failing actions.
	Retry model.RetryPolicy

	// Workers is the number of concurrent workers (1 to model.MaxWorkers).
	// Zero selects model.DefaultWorkers.
	Workers int

	// ErasePasses overrides the secure-delete overwrite passes.
	ErasePasses []erase.Pass

	// Observer receives planning and completion events. Optional.
	Observer pool.Observer

	// OnStart is called once validation passed and the lock is held, before
	// any action is planned. Optional.
	OnStart func(r *Result)

	// OnPass is called before each child pass with the child's name.
	// Optional.
	OnPass func(name string)

	// LockDir holds destination run locks. Defaults to util.LockDir.
	LockDir string

	// Sleep replaces the wait between retries. Used by tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns options with the default retry policy and worker
// count. Source and Destination must still be set.
func DefaultOptions() Options {
	return Options{
		Retry:   model.DefaultRetryPolicy(),
		Workers: model.DefaultWorkers,
	}
}

// Synchronizer runs one synchronization: a single pass over the pair, or one
// pass per immediate child directory of the source in child-only mode.
type Synchronizer struct {
	opts    Options
	matcher *pattern.Matcher
}

// New returns a synchronizer for opts. Options are validated by Run.
func New(opts Options) *Synchronizer {
	if opts.Workers == 0 {
		opts.Workers = model.DefaultWorkers
	}
	opts.Policy = opts.Policy.Normalize()
	return &Synchronizer{opts: opts}
}

// Run validates the options, takes the destination lock and applies the
// policy. A Result is always returned; the error is non-nil only when the
// run could not start, in which case Result.Status is StatusInvalidPolicy
// for argument errors.
func (s *Synchronizer) Run(ctx context.Context) (*Result, error) {
	id := uuid.NewString()
	log := logging.WithContext(ctx).With(logging.Run(id))
	ctx = logging.NewContext(ctx, log)

	result := &Result{
		RunID:       id,
		Source:      s.opts.Source,
		Destination: s.opts.Destination,
		Policy:      s.opts.Policy,
		Retry:       s.opts.Retry,
		Workers:     s.opts.Workers,
		Started:     time.Now(),
	}
	defer func() {
		result.Finished = time.Now()
	}()

	if err := s.validate(); err != nil {
		log.Error("invalid arguments", logging.Err(err))
		result.Status = StatusInvalidPolicy
		result.Err = err
		return result, err
	}
	result.Source, result.Destination = s.opts.Source, s.opts.Destination

	if !s.opts.Policy.ListOnly {
		lock, err := runlock.Acquire(s.opts.LockDir, s.opts.Destination)
		if err != nil {
			log.Error("destination unavailable", logging.Path(s.opts.Destination), logging.Err(err))
			result.Status = StatusInvalidPolicy
			result.Err = err
			return result, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Warn("failed to release run lock", logging.Err(err))
			}
		}()
	}

	if s.opts.OnStart != nil {
		s.opts.OnStart(result)
	}
	log.Info("run started",
		slog.String("source", s.opts.Source),
		slog.String("destination", s.opts.Destination),
		slog.String("pattern", s.matcher.String()),
		slog.Any("options", s.opts.Policy.Switches()),
	)

	exec := s.executor()
	if s.opts.Policy.ChildOnly {
		s.runChildren(ctx, exec, result)
	} else {
		result.Passes = append(result.Passes, s.pass(ctx, exec, "", s.opts.Source, s.opts.Destination))
	}

	for _, p := range result.Passes {
		result.Stats = result.Stats.Add(p.Stats)
	}
	result.Status = status(ctx, result.Passes)

	log.Info("run finished",
		slog.String("status", result.Status.String()),
		logging.Count(len(result.Passes)),
		logging.Bytes(result.Stats.Bytes),
		slog.Int64("planned", result.BytesPlanned()),
	)
	return result, nil
}

// runChildren runs one independent pass per immediate source subdirectory
// in lexical order. Files at the top of the source are logged and left
// alone, and nothing at the top of the destination is ever removed.
func (s *Synchronizer) runChildren(ctx context.Context, exec *executor.Executor, result *Result) {
	log := logging.WithContext(ctx)
	defer logging.Timer("child passes")()

	// os.ReadDir returns entries sorted by name.
	entries, err := os.ReadDir(s.opts.Source)
	if err != nil {
		log.Error("failed to list source", logging.Path(s.opts.Source), logging.Err(err))
		result.Passes = append(result.Passes, PassResult{
			Source:      s.opts.Source,
			Destination: s.opts.Destination,
			Failures:    []pool.Failure{{Path: "", Action: model.ActionSkip, Err: err}},
		})
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if !e.IsDir() {
			log.Info("skipped top-level entry",
				logging.Path(filepath.Join(s.opts.Source, e.Name())),
				logging.Reason(string(model.ReasonExcludedRoot)),
			)
			continue
		}

		name := e.Name()
		if s.opts.OnPass != nil {
			s.opts.OnPass(name)
		}
		result.Passes = append(result.Passes, s.pass(
			logging.NewContext(ctx, log.With(logging.Child(name))),
			exec,
			name,
			filepath.Join(s.opts.Source, name),
			filepath.Join(s.opts.Destination, name),
		))
	}
}

// pass plans and executes one source/destination pair.
func (s *Synchronizer) pass(ctx context.Context, exec *executor.Executor, name, src, dst string) PassResult {
	log := logging.WithContext(ctx)
	log.Debug("pass started", slog.String("source", src), slog.String("destination", dst))

	actions := planner.New(s.opts.Policy, s.matcher).Plan(ctx, src, dst)
	report := pool.New(exec, pool.Options{
		Workers:    s.opts.Workers,
		Move:       s.opts.Policy.Move,
		SourceRoot: src,
		Observer:   s.opts.Observer,
	}).Run(ctx, actions)

	log.Debug("pass finished",
		logging.Count(len(report.Failures)),
		logging.Bytes(report.Stats.Bytes),
		slog.Duration(logging.KeyDuration, report.Elapsed),
	)

	return PassResult{
		Name:         name,
		Source:       src,
		Destination:  dst,
		Stats:        report.Stats,
		BytesPlanned: report.BytesPlanned,
		Failures:     report.Failures,
		Cancelled:    report.Cancelled,
		Elapsed:      report.Elapsed,
	}
}

func (s *Synchronizer) executor() *executor.Executor {
	opts := executor.DefaultOptions()
	opts.Retry = s.opts.Retry
	opts.ListOnly = s.opts.Policy.ListOnly
	opts.SecureDelete = s.opts.Policy.SecureDelete
	opts.Sleep = s.opts.Sleep
	if s.opts.Policy.SecureDelete {
		eopts := erase.DefaultOptions()
		if len(s.opts.ErasePasses) > 0 {
			eopts.Passes = s.opts.ErasePasses
		}
		opts.Eraser = erase.New(eopts)
	}
	return executor.New(opts)
}

// validate checks every argument before anything is touched. Source and
// Destination are replaced by their absolute forms.
func (s *Synchronizer) validate() error {
	var errs model.ArgumentErrors
	add := func(field, msg string, err error) {
		errs = append(errs, &model.ArgumentError{Field: field, Message: msg, Err: err})
	}

	if err := s.opts.Policy.Validate(); err != nil {
		errs = append(errs, flatten(err)...)
	}
	if err := s.opts.Retry.Validate(); err != nil {
		errs = append(errs, flatten(err)...)
	}
	if s.opts.Workers < 1 || s.opts.Workers > model.MaxWorkers {
		add("threads", fmt.Sprintf("must be between 1 and %d, got %d", model.MaxWorkers, s.opts.Workers), nil)
	}
	if s.opts.Policy.SecureDelete && len(s.opts.ErasePasses) > 0 && len(s.opts.ErasePasses) < erase.MinPasses {
		add("erase.passes", fmt.Sprintf("at least %d passes are required, got %d", erase.MinPasses, len(s.opts.ErasePasses)), nil)
	}

	m, err := pattern.Compile(s.opts.Policy.Include, s.opts.Policy.IgnoreCase)
	if err != nil {
		errs = append(errs, flatten(err)...)
	}
	s.matcher = m

	src, dst, pathErrs := s.resolvePaths()
	errs = append(errs, pathErrs...)
	s.opts.Source, s.opts.Destination = src, dst

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Synchronizer) resolvePaths() (string, string, model.ArgumentErrors) {
	var errs model.ArgumentErrors
	add := func(field, msg string, err error) {
		errs = append(errs, &model.ArgumentError{Field: field, Message: msg, Err: err})
	}

	if s.opts.Source == "" {
		add("source", "is required", nil)
	}
	if s.opts.Destination == "" {
		add("destination", "is required", nil)
	}
	if len(errs) > 0 {
		return s.opts.Source, s.opts.Destination, errs
	}

	src, err := util.AbsPath(s.opts.Source)
	if err != nil {
		add("source", "cannot be resolved", err)
		return s.opts.Source, s.opts.Destination, errs
	}
	dst, err := util.AbsPath(s.opts.Destination)
	if err != nil {
		add("destination", "cannot be resolved", err)
		return src, s.opts.Destination, errs
	}

	info, err := os.Stat(src)
	switch {
	case err != nil:
		add("source", fmt.Sprintf("%s is not accessible", src), err)
	case !info.IsDir():
		add("source", fmt.Sprintf("%s is not a directory", src), nil)
	}

	p := s.opts.Policy
	switch {
	case src == dst:
		add("destination", "must differ from the source", nil)
	case (p.Recursive() || p.ChildOnly) && util.IsWithin(dst, src):
		add("destination", "must not lie inside the source when recursing", nil)
	case p.Purging() && util.IsWithin(src, dst):
		add("destination", "must not contain the source when purging", nil)
	}
	return src, dst, errs
}

// flatten unpacks ArgumentErrors so nested validation results read as one
// list.
func flatten(err error) model.ArgumentErrors {
	var list model.ArgumentErrors
	if errors.As(err, &list) {
		return list
	}
	return model.ArgumentErrors{err}
}

func status(ctx context.Context, passes []PassResult) Status {
	if ctx.Err() != nil {
		return StatusCancelled
	}
	failed := false
	for _, p := range passes {
		if p.Cancelled {
			return StatusCancelled
		}
		if len(p.Failures) > 0 || p.Stats.FilesFailed > 0 {
			failed = true
		}
	}
	if failed {
		return StatusCompletedWithFailures
	}
	return StatusSuccess
}
