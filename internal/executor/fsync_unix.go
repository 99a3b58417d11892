//go:build !windows

package executor

import (
	"errors"
	"os"
	"syscall"
)

// syncDir flushes a directory so a rename inside it survives a crash.
// File systems that cannot sync directories are tolerated.
func syncDir(dir string) error {
	// #nosec G304 - dir is the parent of a destination target
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if err := d.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
		return err
	}
	return nil
}
