package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBucket returns a bucket with a controllable clock.
func newTestBucket(t *testing.T, rule Rule) (*Bucket, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	b := NewBucket(rule)
	b.now = func() time.Time { return now }
	b.lastRefill = now
	return b, &now
}

func TestBucket_BurstThenRefuse(t *testing.T) {
	b, _ := newTestBucket(t, Rule{Capacity: 5, RefillRate: 1})

	for i := 0; i < 5; i++ {
		require.True(t, b.Consume(1), "consume %d within capacity", i+1)
	}
	assert.False(t, b.Consume(1), "sixth immediate consume must refuse")
}

func TestBucket_RefillsAfterOneSecond(t *testing.T) {
	b, now := newTestBucket(t, Rule{Capacity: 5, RefillRate: 1})

	for i := 0; i < 5; i++ {
		require.True(t, b.Consume(1))
	}
	require.False(t, b.Consume(1))

	*now = now.Add(1 * time.Second)
	assert.True(t, b.Consume(1), "one token refilled after 1s at 1/s")
	assert.False(t, b.Consume(1))
}

func TestBucket_RefillCapsAtCapacity(t *testing.T) {
	b, now := newTestBucket(t, Rule{Capacity: 3, RefillRate: 100})

	require.True(t, b.Consume(3))
	*now = now.Add(1 * time.Hour)

	assert.InDelta(t, 3, b.Remaining(), 1e-9)
}

func TestBucket_RefusalDoesNotDeduct(t *testing.T) {
	b, _ := newTestBucket(t, Rule{Capacity: 2, RefillRate: 0})

	require.True(t, b.Consume(2))
	require.False(t, b.Consume(1))
	assert.InDelta(t, 0, b.Remaining(), 1e-9)
}

func TestRegistry_PerOperationBuckets(t *testing.T) {
	r := NewRegistry(Rule{Capacity: 1, RefillRate: 0}, zap.NewNop())
	r.SetRule("model_select", Rule{Capacity: 2, RefillRate: 0})

	assert.True(t, r.Consume("model_select", 1))
	assert.True(t, r.Consume("model_select", 1))
	assert.False(t, r.Consume("model_select", 1))

	// Unconfigured operations fall back to the default rule.
	assert.True(t, r.Consume("lookup", 1))
	assert.False(t, r.Consume("lookup", 1))
}
