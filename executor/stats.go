package executor

import "sync"

// AgentStats are the in-memory per-agent execution counters.
type AgentStats struct {
	Executions int64 `json:"executions"`
	Successes  int64 `json:"successes"`
	Failures   int64 `json:"failures"`
}

type statsTable struct {
	mu    sync.Mutex
	table map[string]*AgentStats
}

func newStatsTable() *statsTable {
	return &statsTable{table: make(map[string]*AgentStats)}
}

func (s *statsTable) entry(agent string) *AgentStats {
	st, ok := s.table[agent]
	if !ok {
		st = &AgentStats{}
		s.table[agent] = st
	}
	return st
}

func (s *statsTable) recordStart(agent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(agent).Executions++
}

func (s *statsTable) recordResult(agent string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.entry(agent).Successes++
	} else {
		s.entry(agent).Failures++
	}
}

func (s *statsTable) get(agent string) AgentStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.table[agent]; ok {
		return *st
	}
	return AgentStats{}
}
