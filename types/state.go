package types

import (
	"github.com/google/uuid"
)

// Well-known State keys. Agents may add arbitrary keys of their own; the
// keys below are owned by the runtime and the bundled components.
const (
	KeyWorkflowID    = "workflow_id"
	KeyCorrelationID = "correlation_id"
	KeyExecutionID   = "execution_id"
	KeyCurrentAgent  = "current_agent"
	KeyPendingAction = "pending_action"
	KeyWizard        = "wizard"
	KeyAnswer        = "answer"
	KeyUserInput     = "user_input"
	KeyAgentMeta     = "agent_output_meta"
	KeyExecutionMeta = "execution_metadata"
)

// State is the shared, mutable execution state of one workflow run. It is
// threaded through every agent of the run and merged by the execution
// envelope. One State belongs to exactly one run; the runtime guarantees a
// single writer at a time, so State itself carries no lock.
//
// workflow_id, correlation_id and execution_id are stamped once and are
// immutable for the life of the run.
type State map[string]any

// NewState creates a State with freshly stamped identity keys and empty
// bookkeeping sub-maps.
func NewState() State {
	s := State{}
	s.EnsureBookkeeping()
	return s
}

// EnsureBookkeeping makes sure the identity keys and the bookkeeping
// sub-maps exist. Existing values are never overwritten.
func (s State) EnsureBookkeeping() {
	if _, ok := s[KeyWorkflowID].(string); !ok {
		s[KeyWorkflowID] = uuid.NewString()
	}
	if _, ok := s[KeyCorrelationID].(string); !ok {
		s[KeyCorrelationID] = uuid.NewString()
	}
	if _, ok := s[KeyExecutionID].(string); !ok {
		s[KeyExecutionID] = uuid.NewString()
	}
	if _, ok := s[KeyAgentMeta].(map[string]any); !ok {
		s[KeyAgentMeta] = map[string]any{}
	}
	if _, ok := s[KeyExecutionMeta].(map[string]any); !ok {
		s[KeyExecutionMeta] = map[string]any{}
	}
}

// WorkflowID returns the run's workflow id, empty if not stamped yet.
func (s State) WorkflowID() string {
	v, _ := s[KeyWorkflowID].(string)
	return v
}

// CorrelationID returns the run's correlation id, empty if not stamped yet.
func (s State) CorrelationID() string {
	v, _ := s[KeyCorrelationID].(string)
	return v
}

// ExecutionID returns the run's execution id, empty if not stamped yet.
func (s State) ExecutionID() string {
	v, _ := s[KeyExecutionID].(string)
	return v
}

// CurrentAgent returns the name of the agent currently (or last) executed.
func (s State) CurrentAgent() string {
	v, _ := s[KeyCurrentAgent].(string)
	return v
}

// Answer returns the user-facing final answer, empty if none was produced.
func (s State) Answer() string {
	v, _ := s[KeyAnswer].(string)
	return v
}

// UserInput returns the raw user reply for the current turn.
func (s State) UserInput() string {
	v, _ := s[KeyUserInput].(string)
	return v
}

// AgentMeta returns the agent_output_meta sub-map, creating it if absent.
// Agents write routing hints here; routers read them and never write.
func (s State) AgentMeta() map[string]any {
	if m, ok := s[KeyAgentMeta].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	s[KeyAgentMeta] = m
	return m
}

// MetaBool reads a boolean hint from agent_output_meta.
func (s State) MetaBool(key string) bool {
	v, _ := s.AgentMeta()[key].(bool)
	return v
}

// MetaString reads a string hint from agent_output_meta.
func (s State) MetaString(key string) string {
	v, _ := s.AgentMeta()[key].(string)
	return v
}

// Clone returns a copy of the state. Top-level map values are copied one
// level deep so that an agent working on a clone cannot corrupt the shared
// bookkeeping sub-maps of the original.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		if m, ok := v.(map[string]any); ok {
			cp := make(map[string]any, len(m))
			for mk, mv := range m {
				cp[mk] = mv
			}
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Merge applies update into s. Every key present in update wins; keys the
// update did not touch are preserved. Nested map[string]any values (such as
// agent_output_meta) are merged key-wise instead of replaced, so prior
// contributions survive later merges.
func (s State) Merge(update State) {
	for k, v := range update {
		um, uok := v.(map[string]any)
		sm, sok := s[k].(map[string]any)
		if uok && sok {
			for mk, mv := range um {
				sm[mk] = mv
			}
			continue
		}
		s[k] = v
	}
}
