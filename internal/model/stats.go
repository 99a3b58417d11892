package model

import "sync/atomic"

// Statistics accumulates the counters of one run. It is safe for concurrent
// use; each run constructs its own and hands it to the pool.
type Statistics struct {
	dirs         atomic.Int64
	files        atomic.Int64
	bytes        atomic.Int64
	dirsSkipped  atomic.Int64
	filesSkipped atomic.Int64
	filesFailed  atomic.Int64
	dirsRemoved  atomic.Int64
	filesRemoved atomic.Int64
}

// NewStatistics returns zeroed counters.
func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) AddDir()         { s.dirs.Add(1) }
func (s *Statistics) AddDirSkipped()  { s.dirsSkipped.Add(1) }
func (s *Statistics) AddFileSkipped() { s.filesSkipped.Add(1) }
func (s *Statistics) AddFileFailed()  { s.filesFailed.Add(1) }
func (s *Statistics) AddDirRemoved()  { s.dirsRemoved.Add(1) }
func (s *Statistics) AddFileRemoved() { s.filesRemoved.Add(1) }

// AddFile counts one written file of n bytes.
func (s *Statistics) AddFile(n int64) {
	s.files.Add(1)
	s.bytes.Add(n)
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Dirs:         s.dirs.Load(),
		Files:        s.files.Load(),
		Bytes:        s.bytes.Load(),
		DirsSkipped:  s.dirsSkipped.Load(),
		FilesSkipped: s.filesSkipped.Load(),
		FilesFailed:  s.filesFailed.Load(),
		DirsRemoved:  s.dirsRemoved.Load(),
		FilesRemoved: s.filesRemoved.Load(),
	}
}

// Snapshot is a read-only view of Statistics.
type Snapshot struct {
	Dirs         int64 `json:"dirs"`
	Files        int64 `json:"files"`
	Bytes        int64 `json:"bytes"`
	DirsSkipped  int64 `json:"dirs_skipped"`
	FilesSkipped int64 `json:"files_skipped"`
	FilesFailed  int64 `json:"files_failed"`
	DirsRemoved  int64 `json:"dirs_removed"`
	FilesRemoved int64 `json:"files_removed"`
}

// Add returns the field-wise sum of two snapshots.
func (s Snapshot) Add(o Snapshot) Snapshot {
	return Snapshot{
		Dirs:         s.Dirs + o.Dirs,
		Files:        s.Files + o.Files,
		Bytes:        s.Bytes + o.Bytes,
		DirsSkipped:  s.DirsSkipped + o.DirsSkipped,
		FilesSkipped: s.FilesSkipped + o.FilesSkipped,
		FilesFailed:  s.FilesFailed + o.FilesFailed,
		DirsRemoved:  s.DirsRemoved + o.DirsRemoved,
		FilesRemoved: s.FilesRemoved + o.FilesRemoved,
	}
}
