// Package http provides an HTTP implementation of optsearch.Fetcher
// for retrieving option manuals from static documentation sites.
package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fwojciec/optsearch"
	"golang.org/x/time/rate"
)

// DefaultFetchTimeout is the default timeout for HTTP requests. Option
// manuals run to tens of megabytes, so this is generous.
const DefaultFetchTimeout = 30 * time.Second

// DefaultRequestsPerSecond is the default per-host rate limit.
const DefaultRequestsPerSecond = 2.0

// DefaultRetryDelays returns the backoff delays for fetch retries:
// 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

var _ optsearch.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves documents over HTTP with per-host rate limiting
// and exponential backoff retries. It does not execute JavaScript and
// is suitable for static manuals only.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	delays    []time.Duration
	userAgent string
	logger    *slog.Logger
	rps       float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for a single HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithRetryDelays sets the backoff delays between attempts. An empty
// slice disables retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(f *Fetcher) {
		f.delays = delays
	}
}

// WithRateLimit sets the per-host requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		f.rps = rps
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates an HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		delays:   DefaultRetryDelays(),
		rps:      DefaultRequestsPerSecond,
		logger:   slog.New(slog.DiscardHandler),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}
	return f
}

// Fetch retrieves the document at the given URL, waiting for the
// host's rate limiter and retrying transient failures with backoff.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	attempts := len(f.delays) + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := f.wait(ctx, u.Host); err != nil {
			return "", err
		}

		body, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt >= attempts-1 {
			break
		}
		f.logger.Debug("retrying fetch",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt+2),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delays[attempt]):
		}
	}
	return "", lastErr
}

// Close releases resources. The underlying http.Client requires no
// explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// wait blocks on the host's token bucket. Each host gets its own
// limiter with a burst of 1, so different manuals fetch concurrently
// while a single host is never hammered.
func (f *Fetcher) wait(ctx context.Context, host string) error {
	f.mu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}
