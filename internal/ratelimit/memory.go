package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxMemoryKeys bounds the in-process bucket table. Reaching it drops every
// bucket, which only ever errs toward admitting requests.
const maxMemoryKeys = 10000

// MemoryBucket is a per-process fallback used when no redis is configured.
// Limits are enforced per replica.
type MemoryBucket struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*rate.Limiter
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{now: time.Now, buckets: make(map[string]*rate.Limiter)}
}

func (m *MemoryBucket) Allow(ctx context.Context, key string, r float64, burst int) (*Result, error) {
	if key == "" {
		return &Result{Allowed: false}, errors.New("rate limiter key is empty")
	}
	if r <= 0 || burst <= 0 {
		return &Result{Allowed: false}, errors.New("rate limiter rate and burst must be positive")
	}

	m.mu.Lock()
	lim, ok := m.buckets[key]
	if !ok {
		if len(m.buckets) >= maxMemoryKeys {
			m.buckets = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(r), burst)
		m.buckets[key] = lim
	}
	m.mu.Unlock()

	now := m.now()
	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	retryAfter := time.Duration(0)
	if !allowed && tokens < 1 {
		retryAfter = time.Duration((1 - tokens) / r * float64(time.Second))
	}
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  remaining,
		ResetTime:  now.Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}
