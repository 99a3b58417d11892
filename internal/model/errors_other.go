//go:build !unix && !windows

package model

func classifyOS(error) ErrorKind {
	return ErrKindNone
}
