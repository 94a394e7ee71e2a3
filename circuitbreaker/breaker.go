// Package circuitbreaker implements the three-state failure guard placed
// around individual workflow nodes.
package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of a breaker.
type State int

const (
	// StateClosed admits all calls.
	StateClosed State = iota
	// StateOpen fails fast until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of trial calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures a breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker open.
	FailureThreshold int `json:"failure_threshold"`
	// RecoveryTimeout is how long the breaker stays open before trialing.
	RecoveryTimeout time.Duration `json:"recovery_timeout"`
	// SuccessThreshold is the number of consecutive half-open successes
	// required to close again.
	SuccessThreshold int `json:"success_threshold"`
	// HalfOpenMaxCalls bounds the trial calls admitted while half-open.
	HalfOpenMaxCalls int `json:"half_open_max_calls"`
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
		HalfOpenMaxCalls: 3,
	}
}

// Snapshot is a point-in-time view of a breaker, for metrics and debugging.
type Snapshot struct {
	State           State     `json:"state"`
	FailureCount    int       `json:"failure_count"`
	SuccessCount    int       `json:"success_count"`
	LastFailureTime time.Time `json:"last_failure_time"`
}

// StateChangeFunc observes breaker transitions.
type StateChangeFunc func(node string, from, to State)

// Breaker guards one named node. One instance per node; never shared.
//
// CanExecute is a predicate whose single side effect is the clock-based
// open→half-open transition (plus trial admission while half-open).
// RecordSuccess and RecordFailure are the only other mutators.
type Breaker struct {
	node     string
	config   Config
	onChange StateChangeFunc
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	lastFail  time.Time
	inflight  int // outstanding half-open trials

	// now is swappable for tests.
	now func() time.Time
}

// New creates a breaker for the given node.
func New(node string, config Config, onChange StateChangeFunc, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		node:     node,
		config:   config,
		onChange: onChange,
		logger:   logger.With(zap.String("node", node)),
		state:    StateClosed,
		now:      time.Now,
	}
}

// CanExecute reports whether a call may proceed. While half-open it admits
// at most HalfOpenMaxCalls trials; further calls are refused until an
// outstanding trial resolves via RecordSuccess or RecordFailure.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.now().Sub(b.lastFail) >= b.config.RecoveryTimeout {
			b.transition(StateHalfOpen, "recovery timeout elapsed")
			b.successes = 0
			b.inflight = 1
			return true
		}
		return false

	case StateHalfOpen:
		if b.inflight < b.config.HalfOpenMaxCalls {
			b.inflight++
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		if b.inflight > 0 {
			b.inflight--
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed, "trial successes reached threshold")
			b.failures = 0
			b.successes = 0
			b.inflight = 0
		}
	}
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFail = b.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.transition(StateOpen, "failure threshold reached")
		}

	case StateHalfOpen:
		// Any failure while trialing re-opens.
		b.successes = 0
		b.inflight = 0
		b.transition(StateOpen, "failure during trial")
	}
}

// GetState returns the current state without side effects.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// GetSnapshot returns a point-in-time view of the breaker.
func (b *Breaker) GetSnapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:           b.state,
		FailureCount:    b.failures,
		SuccessCount:    b.successes,
		LastFailureTime: b.lastFail,
	}
}

// Reset forces the breaker back to closed with zeroed counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.transition(StateClosed, "manual reset")
	}
	b.failures = 0
	b.successes = 0
	b.inflight = 0
}

// transition must be called with the lock held.
func (b *Breaker) transition(to State, reason string) {
	from := b.state
	b.state = to

	b.logger.Info("circuit breaker state change",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("reason", reason),
		zap.Int("failures", b.failures))

	if b.onChange != nil {
		b.onChange(b.node, from, to)
	}
}
