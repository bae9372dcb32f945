// Package diagram provides the core flow-diagram entities: nodes, edges and
// the diagram that owns them. It has no knowledge of rendering, storage or
// BPMN; those live in adapters built on top of it.
package diagram

import (
	"encoding/json"
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Diagram is the node/edge collection behind a canvas. Identity is by ID;
// insertion order is kept so that rendering and export are deterministic.
// PRINCIPLES:
// - KISS: Two ordered maps, no derived indexes
// - SRP: Only responsible for structure, not placement or persistence
type Diagram struct {
	ID        string
	Name      string
	UpdatedAt time.Time

	nodes *orderedmap.OrderedMap[string, *Node]
	edges *orderedmap.OrderedMap[string, *Edge]
}

// GraphData is the flat, serialisable form of a diagram.
type GraphData struct {
	ID    string  `json:"id,omitempty" msgpack:"id,omitempty"`
	Name  string  `json:"name,omitempty" msgpack:"name,omitempty"`
	Nodes []*Node `json:"nodes" msgpack:"nodes"`
	Edges []*Edge `json:"edges" msgpack:"edges"`
}

// New creates an empty diagram.
func New(id, name string) *Diagram {
	return &Diagram{
		ID:    id,
		Name:  name,
		nodes: orderedmap.New[string, *Node](),
		edges: orderedmap.New[string, *Edge](),
	}
}

func (d *Diagram) ensure() {
	if d.nodes == nil {
		d.nodes = orderedmap.New[string, *Node]()
	}
	if d.edges == nil {
		d.edges = orderedmap.New[string, *Edge]()
	}
}

// AddNode adds a node to the diagram
func (d *Diagram) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return err
	}
	d.ensure()
	if _, exists := d.nodes.Get(node.ID); exists {
		return ErrDuplicateNode
	}
	d.nodes.Set(node.ID, node)
	d.UpdatedAt = time.Now()
	return nil
}

// AddEdge adds an edge whose endpoints already exist in the diagram.
func (d *Diagram) AddEdge(edge *Edge) error {
	if edge == nil {
		return ErrNilEdge
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	d.ensure()
	if _, exists := d.nodes.Get(edge.Source); !exists {
		return ErrSourceNodeNotFound
	}
	if _, exists := d.nodes.Get(edge.Target); !exists {
		return ErrTargetNodeNotFound
	}
	if _, exists := d.edges.Get(edge.ID); exists {
		return ErrDuplicateEdge
	}
	d.edges.Set(edge.ID, edge)
	d.UpdatedAt = time.Now()
	return nil
}

// Node looks up a node by ID.
func (d *Diagram) Node(id string) (*Node, bool) {
	d.ensure()
	return d.nodes.Get(id)
}

// Edge looks up an edge by ID.
func (d *Diagram) Edge(id string) (*Edge, bool) {
	d.ensure()
	return d.edges.Get(id)
}

// Nodes returns the nodes in insertion order.
func (d *Diagram) Nodes() []*Node {
	d.ensure()
	out := make([]*Node, 0, d.nodes.Len())
	for p := d.nodes.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Edges returns the edges in insertion order.
func (d *Diagram) Edges() []*Edge {
	d.ensure()
	out := make([]*Edge, 0, d.edges.Len())
	for p := d.edges.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// NodeCount returns the number of nodes.
func (d *Diagram) NodeCount() int {
	d.ensure()
	return d.nodes.Len()
}

// EdgeCount returns the number of edges.
func (d *Diagram) EdgeCount() int {
	d.ensure()
	return d.edges.Len()
}

// RemoveNode deletes a node together with every edge attached to it.
func (d *Diagram) RemoveNode(id string) error {
	d.ensure()
	if _, ok := d.nodes.Delete(id); !ok {
		return ErrNodeNotFound
	}
	for _, e := range d.Edges() {
		if e.Source == id || e.Target == id {
			d.edges.Delete(e.ID)
		}
	}
	d.UpdatedAt = time.Now()
	return nil
}

// RemoveEdge deletes an edge.
func (d *Diagram) RemoveEdge(id string) error {
	d.ensure()
	if _, ok := d.edges.Delete(id); !ok {
		return ErrEdgeNotFound
	}
	d.UpdatedAt = time.Now()
	return nil
}

// Clear drops every node and edge.
func (d *Diagram) Clear() {
	d.nodes = orderedmap.New[string, *Node]()
	d.edges = orderedmap.New[string, *Edge]()
	d.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the diagram.
func (d *Diagram) Clone() *Diagram {
	c := New(d.ID, d.Name)
	c.UpdatedAt = d.UpdatedAt
	for _, n := range d.Nodes() {
		c.nodes.Set(n.ID, n.Clone())
	}
	for _, e := range d.Edges() {
		c.edges.Set(e.ID, e.Clone())
	}
	return c
}

// GraphData returns a detached, flat copy of the diagram.
func (d *Diagram) GraphData() GraphData {
	gd := GraphData{ID: d.ID, Name: d.Name, Nodes: []*Node{}, Edges: []*Edge{}}
	for _, n := range d.Nodes() {
		gd.Nodes = append(gd.Nodes, n.Clone())
	}
	for _, e := range d.Edges() {
		gd.Edges = append(gd.Edges, e.Clone())
	}
	return gd
}

// FromGraphData builds a diagram, rejecting invalid nodes and dangling edges.
// Editor type names are resolved to their NodeType; names no variant claims
// become the generic rectangle with properties.shape set to "rect".
func FromGraphData(gd GraphData) (*Diagram, error) {
	d := New(gd.ID, gd.Name)
	for i, n := range gd.Nodes {
		if n != nil && n.Type != "" {
			n.normalizeType()
		}
		if err := d.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	for i, e := range gd.Edges {
		if err := d.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return d, nil
}

// MarshalJSON encodes the diagram as graph data.
func (d *Diagram) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.GraphData())
}

// UnmarshalJSON decodes graph data into the diagram.
func (d *Diagram) UnmarshalJSON(data []byte) error {
	var gd GraphData
	if err := json.Unmarshal(data, &gd); err != nil {
		return err
	}
	parsed, err := FromGraphData(gd)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// FromJSON parses graph-data JSON as produced by MarshalJSON or the editor.
func FromJSON(data []byte) (*Diagram, error) {
	d := New("", "")
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return d, nil
}
