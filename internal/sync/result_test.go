package sync

import (
	"errors"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/pool"
	"github.com/klauern/treesync/internal/util"
)

var update = flag.Bool("update", false, "update golden files")

func TestMain(m *testing.M) {
	flag.Parse()
	util.SetUpdateGolden(*update)
	os.Exit(m.Run())
}

func sampleResult() *Result {
	started := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	return &Result{
		Source:      "/data/photos",
		Destination: "/backup/photos",
		Policy:      model.Policy{RecurseEmpty: true, Mirror: true, Include: []string{"*.jpg", "*.png"}}.Normalize(),
		Retry:       model.RetryPolicy{MaxRetries: 3, Wait: 5 * time.Second, Restartable: true},
		Workers:     16,
		Started:     started,
		Finished:    started.Add(83*time.Second + 400*time.Millisecond),
		Stats: model.Snapshot{
			Dirs:         4,
			Files:        120,
			Bytes:        52428800,
			DirsSkipped:  2,
			FilesSkipped: 17,
			FilesFailed:  1,
			DirsRemoved:  1,
			FilesRemoved: 9,
		},
	}
}

func TestResultSummary(t *testing.T) {
	util.GoldenFile(t, "testdata", "summary", sampleResult().Summary())
}

func TestResultHeader(t *testing.T) {
	util.GoldenFile(t, "testdata", "header", sampleResult().Header())
}

func TestResultHeaderDefaults(t *testing.T) {
	r := &Result{
		Source:      "/a",
		Destination: "/b",
		Retry:       model.DefaultRetryPolicy(),
		Workers:     model.DefaultWorkers,
		Started:     time.Date(2024, 1, 1, 23, 59, 58, 0, time.FixedZone("CET", 3600)),
	}
	got := r.Header()

	for _, want := range []string{
		"TreeSync - Started: 22:59:58\n",
		"Pattern: *.*\n",
		"Options: \n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Header() missing %q:\n%s", want, got)
		}
	}
}

func TestResultElapsed(t *testing.T) {
	start := time.Now()
	tests := map[string]struct {
		finished time.Time
		want     time.Duration
	}{
		"normal":           {finished: start.Add(2 * time.Second), want: 2 * time.Second},
		"clock went back":  {finished: start.Add(-time.Second), want: 0},
		"not yet finished": {finished: start, want: 0},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := &Result{Started: start, Finished: tt.finished}
			if got := r.Elapsed(); got != tt.want {
				t.Errorf("Elapsed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultAggregates(t *testing.T) {
	boom := errors.New("boom")
	r := &Result{Passes: []PassResult{
		{Name: "a", BytesPlanned: 10},
		{Name: "b", BytesPlanned: 5, Failures: []pool.Failure{{Path: "x", Action: model.ActionCopyFile, Err: boom}}},
	}}

	if got := r.BytesPlanned(); got != 15 {
		t.Errorf("BytesPlanned() = %d, want 15", got)
	}
	if got := r.Failures(); len(got) != 1 || got[0].Err != boom {
		t.Errorf("Failures() = %v", got)
	}
	if !r.Passes[0].Success() || r.Passes[1].Success() {
		t.Error("PassResult.Success() mismatch")
	}
	if (PassResult{Cancelled: true}).Success() {
		t.Error("a cancelled pass is not a success")
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusSuccess:               "success",
		StatusCompletedWithFailures: "completed with failures",
		StatusCancelled:             "cancelled",
		StatusInvalidPolicy:         "invalid policy",
		Status(42):                  "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
