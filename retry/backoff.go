// Package retry provides the exponential backoff policy used between
// execution attempts of a workflow node.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy configures retry behavior for one node. MaxRetries counts retries,
// not attempts: a node is tried at most MaxRetries+1 times.
type Policy struct {
	MaxRetries  int           `json:"max_retries"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	BackoffBase float64       `json:"backoff_base"`
	Jitter      bool          `json:"jitter"`
}

// DefaultPolicy returns the default retry policy: 3 retries, 1s initial
// delay doubling up to 30s, with jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		BackoffBase: 2.0,
		Jitter:      true,
	}
}

// Normalize clamps out-of-range fields to usable values.
func (p Policy) Normalize() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.BackoffBase < 1.0 {
		p.BackoffBase = 2.0
	}
	return p
}

// Delay computes the backoff delay before retry attempt (1-based):
// base_delay * backoff_base^(attempt-1), capped at MaxDelay, optionally
// scaled by a uniform jitter factor in [0.5, 1.5).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.BaseDelay) * math.Pow(p.BackoffBase, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		delay *= 0.5 + rand.Float64()
	}

	return time.Duration(delay)
}

// Sleep waits for d or until ctx is canceled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
