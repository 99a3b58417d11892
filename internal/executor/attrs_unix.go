//go:build !windows

package executor

import (
	"fmt"
	"os"

	"github.com/klauern/treesync/internal/model"
)

// applyAttributes maps the read-only attribute onto permission bits. The
// other attributes have no POSIX equivalent and are ignored.
func applyAttributes(path string, patch model.AttrPatch) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", path, err)
	}
	// Without write permission a directory refuses new entries, unlike a
	// read-only directory on Windows.
	if info.IsDir() {
		return nil
	}

	perm := info.Mode().Perm()
	current := model.Attributes(0)
	if perm&0o222 == 0 {
		current |= model.AttrReadOnly
	}

	next := patch.Apply(current)
	switch {
	case next.Has(model.AttrReadOnly) && !current.Has(model.AttrReadOnly):
		perm &^= 0o222
	case !next.Has(model.AttrReadOnly) && current.Has(model.AttrReadOnly):
		perm |= 0o200
	default:
		return nil
	}

	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to set attributes on %q: %w", path, err)
	}
	return nil
}

// clearReadOnly gives the owner write permission so the path can be
// replaced.
func clearReadOnly(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 || info.Mode().Perm()&0o200 != 0 {
		return nil
	}
	return os.Chmod(path, info.Mode().Perm()|0o200)
}
