// Package executor wraps a single agent's unit of work with timeout,
// retry-with-backoff and circuit-breaker gating, and merges the agent's
// output into the shared execution state.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/events"
	"github.com/eduflow/agentcore/internal/metrics"
	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/retry"
	"github.com/eduflow/agentcore/types"
)

// Envelope executes agents under their node's resilience policy. Guards
// compose timeout → circuit breaker → retry: the timeout bounds each
// attempt, the breaker counts attempt outcomes, and the retry loop wraps
// both. A breaker refusal aborts the loop immediately without consuming
// retry slots.
type Envelope struct {
	policies  *policy.Registry
	publisher events.Publisher
	collector *metrics.Collector
	logger    *zap.Logger
	stats     *statsTable
}

// NewEnvelope creates an execution envelope. publisher may be nil (events
// are discarded) and collector may be nil (no prometheus metrics).
func NewEnvelope(policies *policy.Registry, publisher events.Publisher, collector *metrics.Collector, logger *zap.Logger) *Envelope {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Envelope{
		policies:  policies,
		publisher: publisher,
		collector: collector,
		logger:    logger.With(zap.String("component", "executor")),
		stats:     newStatsTable(),
	}
}

// Execute runs agent under its policy and merges the result into state.
// It never returns a nil state together with a nil error: the caller gets
// either the merged shared state or a *types.Error of kind Timeout,
// CircuitOpen or Execution.
func (e *Envelope) Execute(ctx context.Context, agent Agent, state types.State) (types.State, error) {
	if agent == nil {
		return nil, types.NewExecutionError("", errors.New("nil agent"))
	}
	name := agent.Name()
	if state == nil {
		return nil, types.NewExecutionError(name, errors.New("nil execution state"))
	}

	state.EnsureBookkeeping()
	state[types.KeyCurrentAgent] = name

	pol := e.policies.Get(name)
	breaker := e.policies.Breaker(name)

	e.stats.recordStart(name)
	e.publisher.Publish(events.Notification{
		WorkflowID: state.WorkflowID(),
		AgentName:  name,
		Phase:      events.PhaseStarted,
	})

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= pol.Retry.MaxRetries; attempt++ {
		// A refusing breaker aborts the whole call: no attempt is made
		// and no retry slot is consumed.
		if breaker != nil && !breaker.CanExecute() {
			lastErr = types.NewCircuitOpenError(name, nil)
			break
		}

		out, err := e.runOnce(ctx, agent, state, pol.Timeout)
		if err == nil && out != nil {
			state.Merge(out)
			if breaker != nil {
				breaker.RecordSuccess()
			}
			e.finish(state, name, start, nil)
			return state, nil
		}

		if err == nil {
			// A nil state with no error is an invalid agent result.
			err = types.NewExecutionError(name, errors.New("agent returned nil state"))
		}
		lastErr = e.classify(name, err)
		if breaker != nil {
			breaker.RecordFailure()
		}

		e.logger.Warn("agent attempt failed",
			zap.String("agent", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", pol.Retry.MaxRetries+1),
			zap.Error(lastErr))

		if ctx.Err() != nil || attempt >= pol.Retry.MaxRetries {
			break
		}

		if e.collector != nil {
			e.collector.RecordRetry(name)
		}
		if err := retry.Sleep(ctx, pol.Retry.Delay(attempt+1)); err != nil {
			break
		}
	}

	if lastErr == nil {
		// Exhausted without a recorded error; this path must never
		// return silently.
		lastErr = types.NewExecutionError(name, errors.New("retries exhausted without a recorded error"))
	}

	e.finish(state, name, start, lastErr)
	return nil, lastErr
}

// runOnce executes a single attempt under the node timeout. The agent works
// on a clone of the shared state, so a timed-out attempt that is still
// running cannot corrupt the state the envelope goes on to merge.
func (e *Envelope) runOnce(ctx context.Context, agent Agent, state types.State, timeout time.Duration) (types.State, error) {
	if timeout <= 0 {
		timeout = policy.Default().Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out types.State
		err error
	}
	done := make(chan result, 1)
	snapshot := state.Clone()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{nil, fmt.Errorf("agent panic: %v", r)}
			}
		}()
		out, err := agent.Run(runCtx, snapshot)
		done <- result{out, err}
	}()

	select {
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, types.NewTimeoutError(agent.Name(), runCtx.Err())
		}
		return nil, runCtx.Err()
	case res := <-done:
		return res.out, res.err
	}
}

// classify maps an attempt failure onto the closed error taxonomy,
// preserving the original cause.
func (e *Envelope) classify(agent string, err error) error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewTimeoutError(agent, err)
	}
	return types.NewExecutionError(agent, err)
}

// finish records counters and emits the completion notification.
func (e *Envelope) finish(state types.State, agent string, start time.Time, execErr error) {
	elapsed := time.Since(start)
	success := execErr == nil

	e.stats.recordResult(agent, success)
	if e.collector != nil {
		e.collector.RecordExecution(agent, success, elapsed)
	}

	n := events.Notification{
		WorkflowID:      state.WorkflowID(),
		AgentName:       agent,
		Phase:           events.PhaseCompleted,
		Success:         success,
		ExecutionTimeMS: elapsed.Milliseconds(),
	}
	if execErr != nil {
		n.ErrorType = string(types.KindOf(execErr))
		n.ErrorMessage = execErr.Error()
	}
	e.publisher.Publish(n)
}

// Stats returns the in-memory counters for agent.
func (e *Envelope) Stats(agent string) AgentStats {
	return e.stats.get(agent)
}
