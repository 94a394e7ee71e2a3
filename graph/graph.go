// Package graph drives a workflow of agents connected by routers. The
// driver walks the graph node by node, executing each agent through the
// resilience envelope and asking the node's router for the next hop, and
// applies the configured fallback strategy when a node exhausts its
// retries.
package graph

import (
	"fmt"

	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/routing"
)

// Graph is the static topology of one workflow: a set of named agent
// nodes, a router per fork point, and an entry node. Nodes without a
// router are terminal.
type Graph struct {
	entry   string
	nodes   map[string]executor.Agent
	routers map[string]*routing.Router
}

// New creates an empty graph entered at entry.
func New(entry string) *Graph {
	return &Graph{
		entry:   entry,
		nodes:   make(map[string]executor.Agent),
		routers: make(map[string]*routing.Router),
	}
}

// AddNode registers an agent under its own name. Registering the same
// name twice replaces the previous agent.
func (g *Graph) AddNode(agent executor.Agent) *Graph {
	g.nodes[agent.Name()] = agent
	return g
}

// SetRouter installs the fork-point router consulted after node runs.
func (g *Graph) SetRouter(node string, r *routing.Router) *Graph {
	g.routers[node] = r
	return g
}

// Entry returns the entry node name.
func (g *Graph) Entry() string { return g.entry }

// Node returns the agent registered under name, nil if absent.
func (g *Graph) Node(name string) executor.Agent { return g.nodes[name] }

// Router returns the router for node, nil if the node is terminal.
func (g *Graph) Router(node string) *routing.Router { return g.routers[node] }

// Validate checks that the entry node exists and that every router only
// guards registered nodes.
func (g *Graph) Validate() error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("graph: entry node %q not registered", g.entry)
	}
	for node := range g.routers {
		if _, ok := g.nodes[node]; !ok {
			return fmt.Errorf("graph: router attached to unknown node %q", node)
		}
	}
	return nil
}
