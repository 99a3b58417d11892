//go:build unix

package model

import (
	"io/fs"
	"testing"

	"golang.org/x/sys/unix"
)

func TestClassifyErrno(t *testing.T) {
	tests := map[string]struct {
		errno unix.Errno
		want  ErrorKind
	}{
		"disk full":  {errno: unix.ENOSPC, want: ErrKindCapacity},
		"quota":      {errno: unix.EDQUOT, want: ErrKindCapacity},
		"busy":       {errno: unix.EBUSY, want: ErrKindTransient},
		"again":      {errno: unix.EAGAIN, want: ErrKindTransient},
		"denied":     {errno: unix.EACCES, want: ErrKindAccess},
		"read only":  {errno: unix.EROFS, want: ErrKindAccess},
		"not found":  {errno: unix.ENOENT, want: ErrKindNotFound},
		"bad handle": {errno: unix.EBADF, want: ErrKindPermanent},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := &fs.PathError{Op: "write", Path: "/d/x", Err: tt.errno}
			if got := Classify(err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", err, got, tt.want)
			}
		})
	}
}
