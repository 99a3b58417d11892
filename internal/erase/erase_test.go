package erase

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/util"
)

// recordingFile snapshots the file content each time a pass is synced.
type recordingFile struct {
	*os.File
	path      string
	snapshots *[][]byte
	failWrite int
	writes    int
}

func (f *recordingFile) Write(p []byte) (int, error) {
	f.writes++
	if f.failWrite > 0 && f.writes >= f.failWrite {
		return 0, errors.New("injected write failure")
	}
	return f.File.Write(p)
}

func (f *recordingFile) Sync() error {
	if err := f.File.Sync(); err != nil {
		return err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	*f.snapshots = append(*f.snapshots, data)
	return nil
}

func recordingOpener(snapshots *[][]byte, failWrite int) func(string) (File, error) {
	return func(path string) (File, error) {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return nil, err
		}
		return &recordingFile{File: f, path: path, snapshots: snapshots, failWrite: failWrite}, nil
	}
}

func uniform(b []byte, v byte) bool {
	for _, c := range b {
		if c != v {
			return false
		}
	}
	return len(b) > 0
}

func TestEraseFileOverwritesBeforeRemoving(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	content := bytes.Repeat([]byte("top secret "), 10_000)
	util.WriteFile(t, path, string(content))

	var snapshots [][]byte
	e := New(Options{Open: recordingOpener(&snapshots, 0), BufferSize: 4096})

	require.NoError(t, e.Erase(path))
	util.AssertNotExists(t, path)

	// Three passes plus the sync after truncation.
	require.Len(t, snapshots, 4)
	for i, s := range snapshots[:3] {
		assert.Len(t, s, len(content), "pass %d must cover the full range", i+1)
	}
	assert.True(t, uniform(snapshots[0], 0x00), "first pass is all zero")
	assert.True(t, uniform(snapshots[1], 0xFF), "second pass is all one")
	assert.False(t, uniform(snapshots[2], 0x00) || uniform(snapshots[2], 0xFF), "third pass is random")
	assert.NotEqual(t, content, snapshots[2])
	assert.Empty(t, snapshots[3], "file is truncated before unlink")
}

func TestEraseFailureLeavesFileInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	util.WriteFile(t, path, "sensitive data that must not vanish silently")

	var snapshots [][]byte
	// The first pass writes once; the second write fails.
	e := New(Options{Open: recordingOpener(&snapshots, 2)})

	err := e.Erase(path)
	require.Error(t, err)

	var secErr *model.SecureDeleteError
	require.ErrorAs(t, err, &secErr)
	assert.Equal(t, 2, secErr.Pass)
	assert.Equal(t, model.ErrKindSecureDelete, model.Classify(err))

	info, statErr := os.Stat(path)
	require.NoError(t, statErr, "file must still exist")
	assert.NotZero(t, info.Size(), "file must not be truncated")
}

func TestEraseDirectory(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "tree")
	util.WriteFile(t, filepath.Join(root, "a.txt"), "a")
	util.WriteFile(t, filepath.Join(root, "sub", "b.txt"), "bb")
	util.MkdirAll(t, filepath.Join(root, "sub", "empty"))

	require.NoError(t, New(DefaultOptions()).Erase(root))
	util.AssertNotExists(t, root)
}

func TestEraseMissingPath(t *testing.T) {
	assert.NoError(t, New(DefaultOptions()).Erase(filepath.Join(t.TempDir(), "missing")))
}

func TestEraseReadOnlyFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permission bits")
	}
	path := filepath.Join(t.TempDir(), "ro.txt")
	util.WriteFile(t, path, "read only")
	require.NoError(t, os.Chmod(path, 0o444))

	require.NoError(t, New(DefaultOptions()).Erase(path))
	util.AssertNotExists(t, path)
}

func TestEraseSymlinkKeepsTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	link := filepath.Join(dir, "link")
	util.WriteFile(t, target, "keep me")
	require.NoError(t, os.Symlink(target, link))

	require.NoError(t, New(DefaultOptions()).Erase(link))
	util.AssertNotExists(t, link)
	assert.Equal(t, "keep me", util.ReadFile(t, target))
}

func TestParsePasses(t *testing.T) {
	tests := map[string]struct {
		names   []string
		want    []Pass
		wantErr bool
	}{
		"defaults by name": {
			names: []string{"zero", "one", "random"},
			want:  DefaultPasses(),
		},
		"hex bytes": {
			names: []string{"0xAA", "0x55", "random"},
			want:  []Pass{{Name: "0xAA", Fill: 0xAA}, {Name: "0x55", Fill: 0x55}, PassRandom},
		},
		"too few":      {names: []string{"zero", "one"}, wantErr: true},
		"unknown name": {names: []string{"zero", "one", "sparkles"}, wantErr: true},
		"out of range": {names: []string{"zero", "one", "0x100"}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePasses(tt.names)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, model.ErrKindArgument, model.Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
