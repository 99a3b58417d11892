package executor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
)

// partialPath returns the hidden file a copy is written to before it is
// renamed into place.
func partialPath(dst string) string {
	return filepath.Join(filepath.Dir(dst), model.PartialName(filepath.Base(dst)))
}

// copyFile writes the source into a partial file beside the target, makes
// it durable and renames it over the target. In restartable mode an
// existing partial file is resumed instead of rewritten; otherwise a failed
// copy removes it.
func (e *Executor) copyFile(a model.Action) (err error) {
	// #nosec G304 - src comes from the scanned source tree
	src, err := os.Open(a.Src)
	if err != nil {
		return fmt.Errorf("failed to open source %q: %w", a.Src, err)
	}
	defer func() { _ = src.Close() }()

	srcInfo, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source %q: %w", a.Src, err)
	}

	partial := partialPath(a.Dst)
	flags := os.O_WRONLY | os.O_CREATE
	if !e.opts.Retry.Restartable {
		flags |= os.O_TRUNC
	}
	// #nosec G302 G304 - partial lives beside the destination target
	dst, err := os.OpenFile(partial, flags, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", partial, err)
	}
	if !e.opts.Retry.Restartable {
		defer func() {
			if err != nil {
				discardPartial(partial)
			}
		}()
	}
	closed := false
	defer func() {
		if !closed {
			_ = dst.Close()
		}
	}()

	offset, err := resumeOffset(dst, srcInfo.Size(), e.opts.Retry.Restartable)
	if err != nil {
		return fmt.Errorf("failed to prepare %q: %w", partial, err)
	}
	if offset > 0 {
		if _, err := src.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek source %q: %w", a.Src, err)
		}
		logging.Debug("resuming partial copy", logging.Path(a.Dst), logging.Bytes(offset))
	}

	buf := make([]byte, e.opts.BufferSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		return fmt.Errorf("failed to copy content to %q: %w", partial, err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("failed to sync %q: %w", partial, err)
	}
	closed = true
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", partial, err)
	}

	if err := os.Chtimes(partial, a.ModTime, a.ModTime); err != nil {
		return fmt.Errorf("failed to set times on %q: %w", partial, err)
	}

	if err := commit(partial, a.Dst, srcInfo.Mode().Perm(), a.Attrs); err != nil {
		return err
	}

	logging.Debug("copied file",
		logging.Path(a.Src),
		logging.Bytes(srcInfo.Size()),
	)
	return nil
}

// resumeOffset positions dst for writing and returns the number of bytes
// already present. A partial file longer than the source is stale and is
// started over.
func resumeOffset(dst *os.File, srcSize int64, restartable bool) (int64, error) {
	if !restartable {
		return 0, nil
	}
	info, err := dst.Stat()
	if err != nil {
		return 0, err
	}
	offset := info.Size()
	if offset > srcSize {
		if err := dst.Truncate(0); err != nil {
			return 0, err
		}
		offset = 0
	}
	if _, err := dst.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	return offset, nil
}

// createEmptyFile writes a zero-byte stand-in carrying the source mtime.
// The source is never opened.
func createEmptyFile(a model.Action) (err error) {
	partial := partialPath(a.Dst)
	// #nosec G302 G304 - partial lives beside the destination target
	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", partial, err)
	}
	defer func() {
		if err != nil {
			discardPartial(partial)
		}
	}()
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %q: %w", partial, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", partial, err)
	}
	if err := os.Chtimes(partial, a.ModTime, a.ModTime); err != nil {
		return fmt.Errorf("failed to set times on %q: %w", partial, err)
	}

	if err := commit(partial, a.Dst, 0, a.Attrs); err != nil {
		return err
	}
	logging.Debug("created empty file", logging.Path(a.Dst))
	return nil
}

// discardPartial removes the partial file of a failed write. Once commit
// has renamed it there is nothing left to remove.
func discardPartial(partial string) {
	if err := os.Remove(partial); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("failed to remove partial file", logging.Path(partial), logging.Err(err))
	}
}

// commit renames a finished partial file over the target, applies the
// permissions (unless zero) and the attribute patch, and makes the rename
// durable. The partial file stays writable until it has been renamed so an
// interrupted commit can be resumed.
func commit(partial, target string, perm fs.FileMode, attrs model.AttrPatch) error {
	if err := clearReadOnly(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to make %q writable: %w", target, err)
	}
	if err := os.Rename(partial, target); err != nil {
		return fmt.Errorf("failed to move %q into place: %w", target, err)
	}
	if perm != 0 {
		if err := os.Chmod(target, perm); err != nil {
			return fmt.Errorf("failed to set permissions on %q: %w", target, err)
		}
	}
	if !attrs.IsZero() {
		if err := applyAttributes(target, attrs); err != nil {
			return err
		}
	}
	if err := syncDir(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to sync directory of %q: %w", target, err)
	}
	return nil
}
