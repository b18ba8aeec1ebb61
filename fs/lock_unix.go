//go:build unix

package fs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// LockFile is the handle type advisory locks operate on. Only the file
// descriptor is used; the lock follows the open file description.
type LockFile interface {
	Fd() uintptr
}

func lockFile(f LockFile, exclusive, blocking bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if !blocking {
		how |= unix.LOCK_NB
	}
	return unix.Flock(int(f.Fd()), how)
}

func unlockFile(f LockFile) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// errWouldBlock reports whether err is the ordinary "someone else holds
// the lock" case rather than a real I/O failure.
func errWouldBlock(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}
