//go:build windows

package model

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

func classifyOS(err error) ErrorKind {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ErrKindNone
	}
	switch errno {
	case windows.ERROR_DISK_FULL, windows.ERROR_HANDLE_DISK_FULL:
		return ErrKindCapacity
	case windows.ERROR_SHARING_VIOLATION, windows.ERROR_LOCK_VIOLATION, windows.ERROR_BUSY:
		return ErrKindTransient
	case windows.ERROR_ACCESS_DENIED:
		return ErrKindAccess
	default:
		return ErrKindNone
	}
}
