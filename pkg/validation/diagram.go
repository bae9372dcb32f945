package validation

import (
	"errors"
	"fmt"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
)

// Structural problems reported by ValidateDiagram.
var (
	ErrNoStartEvent = errors.New("diagram has no start event")
	ErrNoEndEvent   = errors.New("diagram has no end event")
	ErrCyclic       = errors.New("cyclic dependency detected")
)

// DiagramOptions controls optional validation checks.
type DiagramOptions struct {
	// RequireEvents demands at least one start and one end node.
	RequireEvents bool
	// CheckCycles enables detection of directed cycles.
	CheckCycles bool
}

// ValidateDiagram performs structural validation on a diagram. It is meant
// for diagrams built from external input where AddNode/AddEdge guards may
// have been bypassed, and before deploying to an engine.
func ValidateDiagram(d *diagram.Diagram, opts ...DiagramOptions) error {
	if d == nil {
		return diagram.ErrNilDiagram
	}
	var cfg DiagramOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var starts, ends int
	for _, n := range d.Nodes() {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		switch n.Type {
		case diagram.NodeTypeStart:
			starts++
		case diagram.NodeTypeEnd:
			ends++
		}
	}

	for _, e := range d.Edges() {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edge %q: %w", e.ID, err)
		}
		if _, ok := d.Node(e.Source); !ok {
			return fmt.Errorf("edge %q: %w", e.ID, diagram.ErrSourceNodeNotFound)
		}
		if _, ok := d.Node(e.Target); !ok {
			return fmt.Errorf("edge %q: %w", e.ID, diagram.ErrTargetNodeNotFound)
		}
	}

	if cfg.RequireEvents {
		if starts == 0 {
			return ErrNoStartEvent
		}
		if ends == 0 {
			return ErrNoEndEvent
		}
	}
	if cfg.CheckCycles && hasCycle(d) {
		return ErrCyclic
	}
	return nil
}

// hasCycle detects any cycle in a directed graph using DFS with coloring.
func hasCycle(d *diagram.Diagram) bool {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // visited
	)
	color := make(map[string]int, d.NodeCount())
	adj := make(map[string][]string, d.NodeCount())
	for _, e := range d.Edges() {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	var dfs func(string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == gray {
				return true
			}
			if color[v] == white && dfs(v) {
				return true
			}
		}
		color[u] = black
		return false
	}
	for _, n := range d.Nodes() {
		if color[n.ID] == white && dfs(n.ID) {
			return true
		}
	}
	return false
}
