package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/jobimport/internal/model"
)

// HostRateLimiter enforces a minimum delay between requests to the same host.
type HostRateLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // key: lowercased host, value: earliest next slot
	minDelay time.Duration
}

// NewHostRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same host.
func NewHostRateLimiter(minDelay time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the host's next slot is reached. Slots are reserved
// under the lock so concurrent callers for one host queue up instead of
// firing together. Returns an error if ctx is cancelled while waiting.
func (r *HostRateLimiter) Wait(ctx context.Context, host string) error {
	host = strings.ToLower(host)

	r.mu.Lock()
	now := time.Now()
	slot, ok := r.next[host]
	if !ok || !slot.After(now) {
		r.next[host] = now.Add(r.minDelay)
		r.mu.Unlock()
		return nil
	}
	r.next[host] = slot.Add(r.minDelay)
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-time.After(slot.Sub(now)):
	}
	return nil
}

var _ model.PageFetcher = (*RateLimitedFetcher)(nil)

// RateLimitedFetcher is a decorator that enforces per-host rate limiting
// before delegating to the wrapped PageFetcher.
type RateLimitedFetcher struct {
	inner   model.PageFetcher
	limiter *HostRateLimiter
}

// NewRateLimitedFetcher wraps a PageFetcher with per-host rate limiting.
func NewRateLimitedFetcher(inner model.PageFetcher, limiter *HostRateLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{inner: inner, limiter: limiter}
}

// Fetch waits for the target host's slot, then delegates to the wrapped fetcher.
// Unparseable URLs are passed through so the inner fetcher reports the error.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		if err := f.limiter.Wait(ctx, u.Host); err != nil {
			return "", err
		}
	}
	return f.inner.Fetch(ctx, rawURL)
}
