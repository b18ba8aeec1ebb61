// Package fs provides file-based storage for option documentation:
// advisory file locks, atomic file writes, and a TTL disk cache that
// may be shared by multiple OS processes.
package fs

import (
	"math/rand/v2"
	"time"
)

// Lock retry tuning. The poll interval grows by backoffFactor up to
// maxRetryInterval, with ±10% jitter so that contending processes do
// not retry in lockstep.
const (
	DefaultRetryInterval = 10 * time.Millisecond
	maxRetryInterval     = 500 * time.Millisecond
	backoffFactor        = 1.5
)

// AcquireOptions configures a lock acquisition.
type AcquireOptions struct {
	// Exclusive requests a write lock; otherwise a shared read lock.
	Exclusive bool

	// Blocking waits for the lock instead of failing immediately on
	// contention.
	Blocking bool

	// Timeout bounds a blocking acquisition. Zero or negative blocks
	// indefinitely using the platform's blocking primitive.
	Timeout time.Duration

	// RetryInterval is the initial poll interval for a blocking
	// acquisition with a timeout. Defaults to DefaultRetryInterval.
	RetryInterval time.Duration
}

// Acquire takes an advisory lock on an open file. It returns false
// without error when the lock is held elsewhere and the acquisition was
// non-blocking or timed out; any error other than lock contention is
// returned as-is.
func Acquire(f LockFile, opts AcquireOptions) (bool, error) {
	if !opts.Blocking {
		err := lockFile(f, opts.Exclusive, false)
		if err == nil {
			return true, nil
		}
		if errWouldBlock(err) {
			return false, nil
		}
		return false, err
	}

	if opts.Timeout <= 0 {
		if err := lockFile(f, opts.Exclusive, true); err != nil {
			return false, err
		}
		return true, nil
	}

	interval := opts.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	deadline := time.Now().Add(opts.Timeout)
	for {
		err := lockFile(f, opts.Exclusive, false)
		if err == nil {
			return true, nil
		}
		if !errWouldBlock(err) {
			return false, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		time.Sleep(min(jitter(interval), remaining))

		interval = time.Duration(float64(interval) * backoffFactor)
		if interval > maxRetryInterval {
			interval = maxRetryInterval
		}
	}
}

// Release drops an advisory lock. It never returns an error; failures
// are reported as false so callers can log them.
func Release(f LockFile) bool {
	return unlockFile(f) == nil
}

// jitter spreads d by ±10%.
func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.1
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
