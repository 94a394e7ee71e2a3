// Package events delivers best-effort lifecycle notifications from the
// execution envelope to pluggable sinks. Delivery is fire-and-forget:
// publishing never blocks the critical path and sink failures are swallowed.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Notification describes one agent lifecycle event.
type Notification struct {
	WorkflowID      string    `json:"workflow_id"`
	AgentName       string    `json:"agent_name"`
	Phase           string    `json:"phase"` // "started" or "completed"
	Success         bool      `json:"success"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	ErrorType       string    `json:"error_type,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Notification phases.
const (
	PhaseStarted   = "started"
	PhaseCompleted = "completed"
)

// Sink consumes notifications. Implementations must tolerate concurrent
// calls from the dispatcher worker.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Publisher is the narrow interface the envelope depends on.
type Publisher interface {
	Publish(n Notification)
}

// Dispatcher fans notifications out to sinks through a bounded queue
// consumed by a single background worker. When the queue is full the
// notification is dropped and counted, never blocking the publisher.
type Dispatcher struct {
	queue   chan Notification
	sinks   []Sink
	logger  *zap.Logger
	onDrop  func()
	dropped atomic.Int64
	wg      sync.WaitGroup

	// mu orders Publish sends against Close's close(queue): a publisher
	// holding the read lock can never race the channel close.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher with the given queue size and starts
// its worker. Close must be called to drain and stop it.
func NewDispatcher(queueSize int, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		queue:  make(chan Notification, queueSize),
		sinks:  sinks,
		logger: logger.With(zap.String("component", "event_dispatcher")),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// OnDrop registers an observer for dropped notifications. It must be set
// during wiring, before the dispatcher sees traffic.
func (d *Dispatcher) OnDrop(fn func()) {
	d.onDrop = fn
}

// Publish enqueues a notification. It never blocks; when the queue is full
// or the dispatcher is closed the notification is dropped and counted.
func (d *Dispatcher) Publish(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop()
		return
	}
	select {
	case d.queue <- n:
	default:
		d.drop()
		d.logger.Warn("event queue full, notification dropped",
			zap.String("agent", n.AgentName),
			zap.String("phase", n.Phase))
	}
}

func (d *Dispatcher) drop() {
	d.dropped.Add(1)
	if d.onDrop != nil {
		d.onDrop()
	}
}

// Dropped returns the number of notifications dropped so far.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting notifications, drains the queue and waits for the
// worker to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.fanout(n)
	}
}

// fanout notifies every sink concurrently so one slow sink cannot hold up
// the others, then waits before taking the next notification.
func (d *Dispatcher) fanout(n Notification) {
	var g errgroup.Group
	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sink.Notify(ctx, n); err != nil {
				// Best effort: log and move on.
				d.logger.Debug("event sink failed",
					zap.String("agent", n.AgentName),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// NopPublisher discards every notification. Useful default when the caller
// wires no event sink.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Notification) {}
