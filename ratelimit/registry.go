package ratelimit

import (
	"sync"

	"go.uber.org/zap"
)

// Registry holds one bucket per operation name. Buckets are created lazily
// on first use and shared across concurrent workflow runs.
type Registry struct {
	defaultRule Rule
	rules       map[string]Rule
	buckets     map[string]*Bucket
	onReject    func(operation string)
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewRegistry creates a bucket registry with the given default rule.
func NewRegistry(defaultRule Rule, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		defaultRule: defaultRule,
		rules:       make(map[string]Rule),
		buckets:     make(map[string]*Bucket),
		logger:      logger.With(zap.String("component", "ratelimit")),
	}
}

// OnRejection registers an observer for refused consumptions. It must be
// set during wiring, before the registry sees traffic.
func (r *Registry) OnRejection(fn func(operation string)) {
	r.onReject = fn
}

// SetRule installs a rule for an operation. It takes effect on the next
// bucket creation; an existing bucket for the operation is replaced.
func (r *Registry) SetRule(operation string, rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[operation] = rule
	delete(r.buckets, operation)
}

// Consume deducts n tokens from the operation's bucket, creating it on
// first use.
func (r *Registry) Consume(operation string, n float64) bool {
	r.mu.Lock()
	bucket, ok := r.buckets[operation]
	if !ok {
		rule, ok := r.rules[operation]
		if !ok {
			rule = r.defaultRule
		}
		bucket = NewBucket(rule)
		r.buckets[operation] = bucket
	}
	r.mu.Unlock()

	allowed := bucket.Consume(n)
	if !allowed {
		r.logger.Warn("rate limit exceeded", zap.String("operation", operation))
		if r.onReject != nil {
			r.onReject(operation)
		}
	}
	return allowed
}
