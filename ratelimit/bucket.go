// Package ratelimit provides token-bucket rate limiting for calls into
// external-facing collaborators, keyed by operation name.
package ratelimit

import (
	"sync"
	"time"
)

// Rule configures one token bucket.
type Rule struct {
	// Capacity is the bucket size (maximum burst).
	Capacity float64 `json:"capacity"`
	// RefillRate is the refill speed in tokens per second.
	RefillRate float64 `json:"refill_rate"`
}

// DefaultRule returns the default bucket configuration.
func DefaultRule() Rule {
	return Rule{Capacity: 10, RefillRate: 1}
}

// Bucket is a token bucket. It starts full and refills continuously at
// RefillRate up to Capacity.
type Bucket struct {
	capacity   float64
	refillRate float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewBucket creates a full bucket for the given rule.
func NewBucket(rule Rule) *Bucket {
	b := &Bucket{
		capacity:   rule.Capacity,
		refillRate: rule.RefillRate,
		tokens:     rule.Capacity,
		now:        time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// Consume refills the bucket for elapsed time, then atomically deducts n
// tokens if available. It reports whether the deduction happened; a refusal
// does not change the token count.
func (b *Bucket) Consume(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// Remaining returns the token count after refilling for elapsed time.
func (b *Bucket) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

// refill must be called with the lock held.
func (b *Bucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
