package probe

import (
	"errors"
	"syscall"
)

// errnoCode digs the OS error number out of a wrapped socket error. It
// returns 0 when no errno is present, in which case callers substitute a
// status code of their own.
func errnoCode(err error) uint32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return 0
}
