// Package runlock keeps two treesync runs from writing into the same
// destination at once.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/klauern/treesync/internal/util"
)

// ErrLocked is returned when another run holds the destination.
var ErrLocked = errors.New("destination is locked by another treesync run")

// Lock is a held destination lock.
type Lock struct {
	flock       *flock.Flock
	destination string
}

// Acquire takes the lock for destination without waiting. Lock files live
// in dir, which defaults to util.LockDir when empty, and are named after a
// hash of the absolute destination path.
func Acquire(dir, destination string) (*Lock, error) {
	if dir == "" {
		dir = util.LockDir()
	}
	abs, err := util.AbsPath(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", destination, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	fl := flock.New(filepath.Join(dir, Name(abs)))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", abs, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, abs)
	}
	return &Lock{flock: fl, destination: abs}, nil
}

// Name returns the lock file name used for an absolute destination path.
func Name(destination string) string {
	sum := sha256.Sum256([]byte(destination))
	return hex.EncodeToString(sum[:16]) + ".lock"
}

// Destination returns the locked path.
func (l *Lock) Destination() string {
	return l.destination
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release unlocks and removes the lock file. Releasing a lock that is not
// held is a no-op.
func (l *Lock) Release() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.destination, err)
	}
	if err := os.Remove(l.flock.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
