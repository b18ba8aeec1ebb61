package fs

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// AtomicWriter writes files by staging to a locked temporary sibling
// and renaming over the destination, so readers observe either the old
// or the new content, never a partial write. Failed attempts are
// retried with linearly increasing, jittered backoff.
type AtomicWriter struct {
	instanceID string
	maxRetries int
	lockWait   time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// WriterOption configures an AtomicWriter.
type WriterOption func(*AtomicWriter)

// WithMaxRetries sets the number of retries after a failed attempt.
// Defaults to 3.
func WithMaxRetries(n int) WriterOption {
	return func(w *AtomicWriter) {
		w.maxRetries = n
	}
}

// WithLockWait bounds the wait for the temp-file lock before the final
// blocking attempt. Defaults to 2s.
func WithLockWait(d time.Duration) WriterOption {
	return func(w *AtomicWriter) {
		w.lockWait = d
	}
}

// WithRetryDelay sets the base delay between write attempts. Defaults
// to 100ms; attempt n waits n times the base, jittered.
func WithRetryDelay(d time.Duration) WriterOption {
	return func(w *AtomicWriter) {
		w.retryDelay = d
	}
}

// WithWriterLogger sets the logger for lock-release and cleanup
// warnings.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *AtomicWriter) {
		w.logger = logger
	}
}

// NewAtomicWriter creates an AtomicWriter with a fresh instance
// identifier. The identifier keeps temp filenames from colliding
// between concurrent writers in different processes.
func NewAtomicWriter(opts ...WriterOption) *AtomicWriter {
	w := &AtomicWriter{
		instanceID: uuid.NewString(),
		maxRetries: 3,
		lockWait:   2 * time.Second,
		retryDelay: 100 * time.Millisecond,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// InstanceID returns the writer's unique identifier.
func (w *AtomicWriter) InstanceID() string {
	return w.instanceID
}

// Write populates path atomically using the given function, which
// receives an open, exclusively locked temporary file. It returns
// false after exhausting retries, leaving no partial destination file.
func (w *AtomicWriter) Write(path string, populate func(f *os.File) error) bool {
	for attempt := 0; ; attempt++ {
		if err := w.writeOnce(path, populate); err == nil {
			return true
		} else if attempt >= w.maxRetries {
			w.logger.Warn("atomic write failed", "path", path, "attempts", attempt+1, "error", err)
			return false
		} else {
			w.logger.Debug("atomic write retry", "path", path, "attempt", attempt+1, "error", err)
		}
		time.Sleep(jitter(time.Duration(attempt+1) * w.retryDelay))
	}
}

func (w *AtomicWriter) writeOnce(path string, populate func(f *os.File) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}

	tmp := w.tempPath(path)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
				w.logger.Warn("failed to remove temp file", "path", tmp, "error", rmErr)
			}
		}
	}()

	got, err := Acquire(f, AcquireOptions{Exclusive: true, Blocking: true, Timeout: w.lockWait})
	if err != nil {
		return fmt.Errorf("lock temp file: %w", err)
	}
	if !got {
		// Bounded wait elapsed; fall back to one last blocking attempt.
		if _, err := Acquire(f, AcquireOptions{Exclusive: true, Blocking: true}); err != nil {
			return fmt.Errorf("lock temp file: %w", err)
		}
	}

	if err := populate(f); err != nil {
		Release(f)
		return fmt.Errorf("populate: %w", err)
	}
	if err := f.Sync(); err != nil {
		Release(f)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if !Release(f) {
		w.logger.Warn("failed to release temp file lock", "path", tmp)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename over destination: %w", err)
	}
	return nil
}

// tempPath builds a unique sibling name for the destination. The
// instance ID and random suffix keep concurrent writers, in this
// process or another, on separate temp files.
func (w *AtomicWriter) tempPath(path string) string {
	suffix := rand.Uint32()
	return filepath.Join(
		filepath.Dir(path),
		fmt.Sprintf(".%s.%s.%08x.tmp", filepath.Base(path), w.instanceID[:8], suffix),
	)
}
