//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFileAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "x.txt")
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	WriteFileAt(t, path, "payload", mtime)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	AssertEqual(t, ReadFile(t, path), "payload")
}

func TestExistenceAssertions(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	MkdirAll(t, sub)

	AssertExists(t, sub)
	AssertNotExists(t, filepath.Join(dir, "missing"))
}

func TestGoldenFile(t *testing.T) {
	dir := t.TempDir()
	testdataDir := filepath.Join(dir, "testdata")

	SetUpdateGolden(true)
	GoldenFile(t, testdataDir, "summary", "expected output\n")
	SetUpdateGolden(false)

	got := ReadFile(t, filepath.Join(testdataDir, "summary.golden"))
	AssertEqual(t, got, "expected output\n")

	// Comparison mode against the file just written.
	GoldenFile(t, testdataDir, "summary", "expected output\n")
}
