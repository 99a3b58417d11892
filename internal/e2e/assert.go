package e2e

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"testing"
)

// AssertSuccess stops the test unless the run exited cleanly.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("run failed with exit code %d: %v\nstdout: %s\nstderr: %s", r.ExitCode, r.Err, r.Stdout, r.Stderr)
	}
}

// AssertExitCode checks the process exit status of a run.
func AssertExitCode(t *testing.T, r *Result, want int) {
	t.Helper()
	if r.ExitCode != want {
		t.Errorf("exit code = %d, want %d\nerror: %v\nstdout: %s", r.ExitCode, want, r.Err, r.Stdout)
	}
}

// AssertErrorContains checks that the run failed with a message mentioning
// substr.
func AssertErrorContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if r.Err == nil {
		t.Fatalf("run succeeded, want an error mentioning %q", substr)
	}
	if msg := r.Err.Error(); !strings.Contains(msg, substr) {
		t.Errorf("error %q does not mention %q", msg, substr)
	}
}

// AssertOutputContains checks that the run printed substr.
func AssertOutputContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if !strings.Contains(r.Stdout, substr) {
		t.Errorf("output lacks %q\ngot: %s", substr, r.Stdout)
	}
}

// AssertOutputNotContains checks that the run never printed substr.
func AssertOutputNotContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if strings.Contains(r.Stdout, substr) {
		t.Errorf("output unexpectedly has %q\ngot: %s", substr, r.Stdout)
	}
}

// AssertStat checks one line of the run summary, e.g.
// AssertStat(t, r, "Files removed", 1).
func AssertStat(t *testing.T, r *Result, label string, n int64) {
	t.Helper()
	line := fmt.Sprintf("\n%s: %d\n", label, n)
	if !strings.Contains(r.Stdout, line) {
		t.Errorf("summary lacks %q\ngot: %s", strings.TrimSpace(line), r.Stdout)
	}
}

// AssertFile checks the content of a file inside a fixture.
func AssertFile(t *testing.T, f *Fixture, rel, want string) {
	t.Helper()
	if got := f.ReadFile(rel); got != want {
		t.Errorf("%s holds %q, want %q", f.Path(rel), got, want)
	}
}

// AssertAbsent checks that none of the paths exist in the fixture. An empty
// path names the fixture root.
func AssertAbsent(t *testing.T, f *Fixture, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		if f.Exists(rel) {
			t.Errorf("%s exists, want it absent", f.Path(rel))
		}
	}
}

// AssertLogContains checks that a log file holds every fragment.
func AssertLogContains(t *testing.T, path string, fragments ...string) {
	t.Helper()
	// #nosec G304 - path is provided by test code
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read log %s: %v", path, err)
	}
	for _, frag := range fragments {
		if !strings.Contains(string(data), frag) {
			t.Errorf("log %s lacks %q\ngot: %s", path, frag, data)
		}
	}
}

// AssertTree fails the test if the fixture does not hold exactly the given
// entries. Directories carry a trailing slash.
func AssertTree(t *testing.T, f *Fixture, want ...string) {
	t.Helper()
	slices.Sort(want)
	if got := f.Tree(); !slices.Equal(got, want) {
		t.Errorf("tree mismatch under %s\nexpected: %q\ngot: %q", f.baseDir, want, got)
	}
}
