//go:build windows

package fs

import (
	"errors"

	"golang.org/x/sys/windows"
)

// LockFile is the handle type advisory locks operate on. Only the file
// handle is used; the lock follows the open file.
type LockFile interface {
	Fd() uintptr
}

// lockRange covers one byte; LockFileEx locks ranges, not whole files,
// and every caller must use the same range for the lock to conflict.
const lockRange = 1

func lockFile(f LockFile, exclusive, blocking bool) error {
	var flags uint32
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	if !blocking {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, lockRange, 0, new(windows.Overlapped))
}

func unlockFile(f LockFile) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockRange, 0, new(windows.Overlapped))
}

// errWouldBlock reports whether err is the ordinary "someone else holds
// the lock" case rather than a real I/O failure.
func errWouldBlock(err error) bool {
	return errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
