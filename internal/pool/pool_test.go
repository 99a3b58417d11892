package pool

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/treesync/internal/erase"
	"github.com/klauern/treesync/internal/executor"
	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/util"
)

// fakeApplier records the order in which actions start and finish.
type fakeApplier struct {
	mu      sync.Mutex
	events  []string
	applied []model.Action

	fail   map[string]bool
	delay  map[string]time.Duration
	onDone func(a model.Action)
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{fail: map[string]bool{}, delay: map[string]time.Duration{}}
}

func (f *fakeApplier) Apply(ctx context.Context, a model.Action) executor.Outcome {
	if err := ctx.Err(); err != nil {
		return executor.Outcome{State: executor.StateFailed, Err: err, Kind: model.ErrKindCancelled}
	}

	f.record("start:"+a.Path, a)
	if d := f.delay[a.Path]; d > 0 {
		time.Sleep(d)
	}
	f.record("done:"+a.Path, model.Action{})

	if f.onDone != nil {
		f.onDone(a)
	}
	if f.fail[a.Path] {
		return executor.Outcome{State: executor.StateFailed, Attempts: 1, Err: errors.New("boom"), Kind: model.ErrKindPermanent}
	}
	return executor.Outcome{State: executor.StateSucceeded, Attempts: 1}
}

func (f *fakeApplier) record(ev string, a model.Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	if a.Kind != "" {
		f.applied = append(f.applied, a)
	}
}

func (f *fakeApplier) index(ev string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Index(f.events, ev)
}

func (f *fakeApplier) kinds() map[string]model.ActionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.ActionKind, len(f.applied))
	for _, a := range f.applied {
		out[a.Path+"@"+a.Side.String()] = a.Kind
	}
	return out
}

// recorder is an Observer that keeps everything it sees.
type recorder struct {
	mu      sync.Mutex
	planned []model.Action
	done    []model.ProgressEvent
}

func (r *recorder) ActionPlanned(a model.Action) {
	r.mu.Lock()
	r.planned = append(r.planned, a)
	r.mu.Unlock()
}

func (r *recorder) ActionDone(ev model.ProgressEvent) {
	r.mu.Lock()
	r.done = append(r.done, ev)
	r.mu.Unlock()
}

func file(rel string, size int64) model.Entry {
	return model.Entry{Path: rel, Kind: model.KindFile, Size: size}
}

func copyOf(rel string, size int64) model.Action {
	return model.CopyFile(file(rel, size), "/src/"+rel, "/dst/"+rel, model.AttrPatch{})
}

func mkdir(rel string) model.Action {
	return model.CreateDir(rel, "/dst/"+rel, model.AttrPatch{})
}

func TestRunCreateDirCompletesBeforeChildren(t *testing.T) {
	f := newFakeApplier()
	f.delay["a"] = 50 * time.Millisecond

	p := New(f, Options{Workers: 4})
	report := p.Run(context.Background(), slices.Values([]model.Action{
		mkdir("a"),
		copyOf("a/x.txt", 1),
		copyOf("a/y.txt", 2),
		mkdir("a/b"),
		copyOf("a/b/z.txt", 3),
	}))

	require.False(t, report.Cancelled)
	assert.Empty(t, report.Failures)

	for _, child := range []string{"a/x.txt", "a/y.txt", "a/b", "a/b/z.txt"} {
		assert.Less(t, f.index("done:a"), f.index("start:"+child), "%s started before a was created", child)
	}
	assert.Less(t, f.index("done:a/b"), f.index("start:a/b/z.txt"))

	assert.Equal(t, model.Snapshot{Dirs: 2, Files: 3, Bytes: 6}, report.Stats)
	assert.EqualValues(t, 6, report.BytesPlanned)
}

func TestRunFailedDirectoryFailsDescendants(t *testing.T) {
	f := newFakeApplier()
	f.fail["a"] = true

	report := New(f, Options{Workers: 3}).Run(context.Background(), slices.Values([]model.Action{
		mkdir("a"),
		copyOf("a/x.txt", 1),
		mkdir("a/b"),
		copyOf("a/b/y.txt", 1),
		copyOf("c.txt", 4),
	}))

	kinds := f.kinds()
	assert.NotContains(t, kinds, "a/x.txt@destination")
	assert.NotContains(t, kinds, "a/b@destination")
	assert.NotContains(t, kinds, "a/b/y.txt@destination")
	assert.Contains(t, kinds, "c.txt@destination")

	assert.Equal(t, model.Snapshot{Files: 1, Bytes: 4, DirsSkipped: 2, FilesFailed: 2}, report.Stats)
	require.Len(t, report.Failures, 4)

	parents := 0
	for _, failure := range report.Failures {
		if IsParentFailure(failure.Err) {
			parents++
		}
	}
	assert.Equal(t, 3, parents)
}

func TestRunFailedRootFailsEverything(t *testing.T) {
	f := newFakeApplier()
	f.fail[""] = true

	report := New(f, Options{Workers: 2}).Run(context.Background(), slices.Values([]model.Action{
		mkdir(""),
		copyOf("x.txt", 1),
	}))

	require.Len(t, report.Failures, 2)
	i := slices.IndexFunc(report.Failures, func(f Failure) bool { return f.Path == "x.txt" })
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, IsParentFailure(report.Failures[i].Err))
	assert.Contains(t, report.Failures[i].Err.Error(), "destination root")
	assert.Equal(t, model.Snapshot{DirsSkipped: 1, FilesFailed: 1}, report.Stats)
}

func TestRunCounting(t *testing.T) {
	tests := map[string]struct {
		action model.Action
		fail   bool
		want   model.Snapshot
	}{
		"copy": {
			action: copyOf("x", 10),
			want:   model.Snapshot{Files: 1, Bytes: 10},
		},
		"empty file counts no bytes": {
			action: model.CreateEmptyFile(file("x", 10), "/dst/x", model.AttrPatch{}),
			want:   model.Snapshot{Files: 1},
		},
		"create dir": {
			action: mkdir("d"),
			want:   model.Snapshot{Dirs: 1},
		},
		"delete file": {
			action: model.DeleteFile("x", "/dst/x", model.KindFile, model.SideDestination),
			want:   model.Snapshot{FilesRemoved: 1},
		},
		"delete dir": {
			action: model.DeleteDir("d", "/dst/d", model.SideDestination),
			want:   model.Snapshot{DirsRemoved: 1},
		},
		"skipped file": {
			action: model.Skip("x", model.KindFile, model.ReasonUpToDate),
			want:   model.Snapshot{FilesSkipped: 1},
		},
		"skipped dir": {
			action: model.Skip("d", model.KindDir, model.ReasonExists),
			want:   model.Snapshot{DirsSkipped: 1},
		},
		"failed copy": {
			action: copyOf("x", 10),
			fail:   true,
			want:   model.Snapshot{FilesFailed: 1},
		},
		"failed delete": {
			action: model.DeleteFile("x", "/dst/x", model.KindFile, model.SideDestination),
			fail:   true,
			want:   model.Snapshot{FilesFailed: 1},
		},
		"failed dir": {
			action: mkdir("d"),
			fail:   true,
			want:   model.Snapshot{DirsSkipped: 1},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFakeApplier()
			f.fail[tt.action.Path] = tt.fail

			report := New(f, DefaultOptions()).Run(context.Background(), slices.Values([]model.Action{tt.action}))
			assert.Equal(t, tt.want, report.Stats)
			assert.Equal(t, tt.fail, len(report.Failures) == 1)
		})
	}
}

func TestRunSkipsNeverReachApplier(t *testing.T) {
	f := newFakeApplier()
	report := New(f, DefaultOptions()).Run(context.Background(), slices.Values([]model.Action{
		model.Skip("x", model.KindFile, model.ReasonFiltered),
		model.Skip("d", model.KindDir, model.ReasonNotRecursed),
	}))

	assert.Empty(t, f.kinds())
	assert.Equal(t, model.Snapshot{FilesSkipped: 1, DirsSkipped: 1}, report.Stats)
}

func TestRunMoveRemovesSourceAfterCopy(t *testing.T) {
	f := newFakeApplier()
	move := model.MoveFile(file("x.txt", 3), "/src/x.txt", "/dst/x.txt", model.AttrPatch{})

	report := New(f, Options{Workers: 1, Move: model.MoveFiles}).Run(context.Background(), slices.Values([]model.Action{move}))

	assert.Equal(t, model.Snapshot{Files: 1, Bytes: 3}, report.Stats)
	kinds := f.kinds()
	assert.Equal(t, model.ActionMoveFile, kinds["x.txt@destination"])
	assert.Equal(t, model.ActionDeleteFile, kinds["x.txt@source"])
	assert.Equal(t, []string{"start:x.txt", "done:x.txt", "start:x.txt", "done:x.txt"}, f.events)
}

func TestRunMoveKeepsSourceWhenCopyFails(t *testing.T) {
	f := newFakeApplier()
	f.fail["x.txt"] = true
	move := model.MoveFile(file("x.txt", 3), "/src/x.txt", "/dst/x.txt", model.AttrPatch{})

	report := New(f, Options{Workers: 1, Move: model.MoveFiles}).Run(context.Background(), slices.Values([]model.Action{move}))

	assert.NotContains(t, f.kinds(), "x.txt@source")
	assert.EqualValues(t, 1, report.Stats.FilesFailed)
}

func TestRunMoveAllRemovesEmptiedSourceDirectories(t *testing.T) {
	base := t.TempDir()
	src, dst := filepath.Join(base, "src"), filepath.Join(base, "dst")
	util.WriteFile(t, filepath.Join(src, "a", "b", "x.txt"), "x")
	util.WriteFile(t, filepath.Join(src, "a", "y.txt"), "y")
	util.WriteFile(t, filepath.Join(src, "keep", "z.txt"), "z")
	util.MkdirAll(t, dst)

	move := func(rel string) model.Action {
		return model.MoveFile(file(rel, 1),
			filepath.Join(src, filepath.FromSlash(rel)),
			filepath.Join(dst, filepath.FromSlash(rel)),
			model.AttrPatch{})
	}
	dir := func(rel string) model.Action {
		return model.CreateDir(rel, filepath.Join(dst, filepath.FromSlash(rel)), model.AttrPatch{})
	}

	exec := executor.New(executor.DefaultOptions())
	report := New(exec, Options{Workers: 2, Move: model.MoveAll, SourceRoot: src}).Run(context.Background(),
		slices.Values([]model.Action{
			dir("a"),
			dir("a/b"),
			move("a/b/x.txt"),
			move("a/y.txt"),
		}))

	require.Empty(t, report.Failures)
	assert.Equal(t, "x", util.ReadFile(t, filepath.Join(dst, "a", "b", "x.txt")))
	assert.Equal(t, "y", util.ReadFile(t, filepath.Join(dst, "a", "y.txt")))
	util.AssertNotExists(t, filepath.Join(src, "a"))
	util.AssertExists(t, filepath.Join(src, "keep", "z.txt"))
	util.AssertExists(t, src)
}

func TestRunMoveFilesKeepsSourceDirectories(t *testing.T) {
	base := t.TempDir()
	src, dst := filepath.Join(base, "src"), filepath.Join(base, "dst")
	util.WriteFile(t, filepath.Join(src, "a", "x.txt"), "x")
	util.MkdirAll(t, filepath.Join(dst, "a"))

	move := model.MoveFile(file("a/x.txt", 1),
		filepath.Join(src, "a", "x.txt"),
		filepath.Join(dst, "a", "x.txt"),
		model.AttrPatch{})

	exec := executor.New(executor.DefaultOptions())
	report := New(exec, Options{Workers: 1, Move: model.MoveFiles, SourceRoot: src}).Run(context.Background(),
		slices.Values([]model.Action{move}))

	require.Empty(t, report.Failures)
	util.AssertNotExists(t, filepath.Join(src, "a", "x.txt"))
	util.AssertExists(t, filepath.Join(src, "a"))
}

// recordingEraser notes each path before passing it to the real eraser.
type recordingEraser struct {
	mu    sync.Mutex
	paths []string
	next  *erase.Eraser
}

func (r *recordingEraser) Erase(path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	return r.next.Erase(path)
}

func TestRunMoveWithSecureDeleteErasesSource(t *testing.T) {
	base := t.TempDir()
	src, dst := filepath.Join(base, "src"), filepath.Join(base, "dst")
	util.WriteFile(t, filepath.Join(src, "secret.txt"), "classified")
	util.MkdirAll(t, dst)

	move := model.MoveFile(file("secret.txt", 10),
		filepath.Join(src, "secret.txt"),
		filepath.Join(dst, "secret.txt"),
		model.AttrPatch{})

	eraser := &recordingEraser{next: erase.New(erase.DefaultOptions())}
	opts := executor.DefaultOptions()
	opts.SecureDelete = true
	opts.Eraser = eraser
	report := New(executor.New(opts), Options{Workers: 1, Move: model.MoveFiles, SourceRoot: src}).Run(context.Background(),
		slices.Values([]model.Action{move}))

	require.Empty(t, report.Failures)
	assert.Equal(t, []string{filepath.Join(src, "secret.txt")}, eraser.paths)
	util.AssertNotExists(t, filepath.Join(src, "secret.txt"))
	assert.Equal(t, "classified", util.ReadFile(t, filepath.Join(dst, "secret.txt")))
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFakeApplier()
	report := New(f, DefaultOptions()).Run(ctx, slices.Values([]model.Action{copyOf("x", 1)}))

	assert.True(t, report.Cancelled)
	assert.Empty(t, f.kinds())
	assert.Equal(t, model.Snapshot{}, report.Stats)
}

func TestRunStopsPullingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeApplier()
	f.onDone = func(a model.Action) {
		if a.Path == "1" {
			cancel()
		}
	}

	pulled := 0
	var actions iter.Seq[model.Action] = func(yield func(model.Action) bool) {
		for i := range 100 {
			pulled++
			if !yield(copyOf(strconv.Itoa(i), 1)) {
				return
			}
		}
	}

	report := New(f, Options{Workers: 1}).Run(ctx, actions)

	assert.True(t, report.Cancelled)
	assert.Less(t, pulled, 100)
	assert.LessOrEqual(t, report.Stats.Files, int64(2))
}

func TestRunObserver(t *testing.T) {
	f := newFakeApplier()
	f.fail["bad"] = true
	obs := &recorder{}

	New(f, Options{Workers: 2, Observer: obs}).Run(context.Background(), slices.Values([]model.Action{
		copyOf("good", 5),
		copyOf("bad", 7),
		model.CreateEmptyFile(file("empty", 9), "/dst/empty", model.AttrPatch{}),
		model.Skip("same", model.KindFile, model.ReasonUpToDate),
	}))

	assert.Len(t, obs.planned, 4)
	require.Len(t, obs.done, 4)

	byPath := map[string]model.ProgressEvent{}
	for _, ev := range obs.done {
		byPath[ev.Path] = ev
	}
	assert.Equal(t, model.OutcomeSucceeded, byPath["good"].Outcome)
	assert.EqualValues(t, 5, byPath["good"].Size)
	assert.Equal(t, model.OutcomeFailed, byPath["bad"].Outcome)
	assert.Error(t, byPath["bad"].Err)
	assert.Equal(t, model.OutcomeSucceeded, byPath["empty"].Outcome)
	assert.Zero(t, byPath["empty"].Size)
	assert.Equal(t, model.OutcomeSkipped, byPath["same"].Outcome)
	assert.Equal(t, model.ReasonUpToDate, byPath["same"].Reason)
}

func TestNewDefaultsWorkers(t *testing.T) {
	p := New(newFakeApplier(), Options{})
	assert.Equal(t, model.DefaultWorkers, p.opts.Workers)
}
