//go:build unix

package model

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

func classifyOS(err error) ErrorKind {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ErrKindNone
	}
	switch errno {
	case unix.ENOSPC, unix.EDQUOT, unix.EFBIG:
		return ErrKindCapacity
	case unix.EBUSY, unix.EAGAIN, unix.ETXTBSY, unix.EINTR, unix.ETIMEDOUT, unix.ENOLCK:
		return ErrKindTransient
	case unix.EACCES, unix.EPERM, unix.EROFS:
		return ErrKindAccess
	default:
		return ErrKindNone
	}
}
