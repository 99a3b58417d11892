package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures log file rotation.
type FileOptions struct {
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// MaxAgeDays removes rotated files older than this.
	MaxAgeDays int
	// Compress gzips rotated files.
	Compress bool
}

// DefaultFileOptions returns rotation settings for run logs.
func DefaultFileOptions() FileOptions {
	return FileOptions{
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// OpenFile returns a rotating writer for path. The parent directory is
// created; the file itself is opened lazily on first write. Callers close
// the returned logger when the run ends.
func OpenFile(path string, opts FileOptions) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
		LocalTime:  true,
	}, nil
}
