package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobimport/internal/model"
)

var _ model.PageFetcher = (*RetryFetcher)(nil)

// RetryFetcher is a decorator that retries transient page fetch failures with
// exponential backoff and jitter before giving up.
type RetryFetcher struct {
	inner      model.PageFetcher
	maxRetries int
	baseDelay  time.Duration
	maxWait    time.Duration
	logger     *slog.Logger
}

// NewRetryFetcher wraps a PageFetcher with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryFetcher(inner model.PageFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// WithMaxWait caps how long one retry may wait. A server asking for a longer
// Retry-After makes the fetch fail at once instead of holding up the batch.
// Zero means no cap.
func (f *RetryFetcher) WithMaxWait(d time.Duration) *RetryFetcher {
	f.maxWait = d
	return f
}

// Fetch attempts to fetch url, retrying on transient errors. It gives up
// early when the wait would exceed the cap or outlast ctx's deadline.
func (f *RetryFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.inner.Fetch(ctx, url)
	if err == nil {
		return body, nil
	}
	if !isRetryable(err) {
		return "", err
	}

	lastErr := err
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		delay := f.backoffDelay(attempt, lastErr)
		if f.maxWait > 0 && delay > f.maxWait {
			f.logger.Warn("not retrying page fetch, server asked to wait too long",
				"url", url, "delay", delay, "max_wait", f.maxWait, "error", lastErr)
			return "", lastErr
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			f.logger.Debug("not retrying page fetch, deadline too close", "url", url, "delay", delay)
			return "", lastErr
		}

		f.logger.Warn("retrying page fetch",
			"url", url,
			"attempt", attempt,
			"max_retries", f.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		body, err = f.inner.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After from the server takes precedence.
func (f *RetryFetcher) backoffDelay(attempt int, err error) time.Duration {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) && fetchErr.RetryAfter > 0 {
		return fetchErr.RetryAfter
	}

	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return fetchErr.StatusCode == 429 || fetchErr.StatusCode >= 500
	}

	// Transport errors (DNS, refused connections, resets).
	return true
}
