// Package canvas owns a live diagram the way the editor's graph instance
// does: node and edge creation, drop placement, property patches, undo
// history and lifecycle hooks.
package canvas

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/internal/core/palette"
	"github.com/flowgraph/flowdesigner/internal/core/shape"
)

const (
	// CollisionDistance is the per-axis distance under which two node
	// centres are considered overlapping.
	CollisionDistance = 50.0
	// CollisionStep is how far a dropped node is pushed down per overlap.
	CollisionStep = 50.0
	// MaxCoordinate bounds the absolute value of a dropped node's centre.
	MaxCoordinate = 1e9

	defaultHistoryLimit = 50
	defaultCircleSize   = 60.0
	defaultRectWidth    = 100.0
	defaultRectHeight   = 60.0
)

// Controller wraps a diagram with editor semantics.
// PRINCIPLES:
// - SRP: placement and history live here, structure lives in diagram
// - Thread-safe: every operation holds mu; hooks fire after unlock
type Controller struct {
	mu        sync.Mutex
	d         *diagram.Diagram
	history   []*diagram.Diagram
	limit     int
	seed      int
	destroyed bool

	hooks map[EventType][]Handler

	log    *zap.Logger
	now    func() time.Time
	edgeID func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for node ID generation.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithDiagram names the diagram the canvas starts with.
func WithDiagram(id, name string) Option {
	return func(c *Controller) { c.d = diagram.New(id, name) }
}

// New initialises a canvas with an empty diagram.
func New(opts ...Option) *Controller {
	c := &Controller{
		d:      diagram.New(uuid.NewString(), "untitled"),
		limit:  defaultHistoryLimit,
		seed:   1,
		hooks:  make(map[EventType][]Handler),
		log:    zap.NewNop(),
		now:    time.Now,
		edgeID: func() string { return "edge_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers a handler for an event type.
func (c *Controller) On(t EventType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[t] = append(c.hooks[t], h)
}

// Destroy tears the canvas down. Later calls return ErrDestroyed.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.d = nil
	c.history = nil
	c.hooks = nil
}

// ID returns the diagram ID, or "" once destroyed.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.d == nil {
		return ""
	}
	return c.d.ID
}

// Drop places a node from a palette payload. pointer and origin are in
// client coordinates; the node centre is pointer minus origin, pushed down
// in CollisionStep increments until no existing centre lies within
// CollisionDistance on both axes.
func (c *Controller) Drop(payload []byte, pointer, origin diagram.Point) (*diagram.Node, error) {
	item, err := palette.DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, ErrDestroyed
	}

	x := pointer.X - origin.X
	y := pointer.Y - origin.Y
	if !inRange(x) || !inRange(y) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidPosition, x, y)
	}
	y, err = c.resolveCollision(x, y)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	node := &diagram.Node{
		ID:   c.nextNodeID(),
		Type: diagram.NodeType(item.Type),
		X:    x,
		Y:    y,
		Text: item.Label,
	}
	if item.Type == "start-node" || item.Type == "end-node" {
		node.Width = orDefault(item.W, defaultCircleSize)
		node.Height = node.Width
	} else {
		node.Width = orDefault(item.W, defaultRectWidth)
		node.Height = orDefault(item.H, defaultRectHeight)
	}
	if item.Style != nil {
		node.Properties = map[string]interface{}{"style": item.Style.Map()}
	}

	added, err := c.addNodeLocked(node)
	events := c.collect(EventNodeAdd, added, nil, err)
	c.mu.Unlock()

	c.fire(events)
	return added, err
}

// resolveCollision returns the first y at or below the proposed one that
// does not overlap an existing node centre. It gives up once y leaves the
// coordinate range.
func (c *Controller) resolveCollision(x, y float64) (float64, error) {
	nodes := c.d.Nodes()
	for inRange(y) {
		overlapping := false
		for _, n := range nodes {
			if math.Abs(n.X-x) < CollisionDistance && math.Abs(n.Y-y) < CollisionDistance {
				overlapping = true
				break
			}
		}
		if !overlapping {
			return y, nil
		}
		y += CollisionStep
	}
	return 0, fmt.Errorf("%w: no free slot below y=%v", ErrInvalidPosition, y)
}

// inRange reports whether v is a finite coordinate within MaxCoordinate.
func inRange(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= MaxCoordinate
}

func (c *Controller) nextNodeID() string {
	id := fmt.Sprintf("node_%d_%d", c.now().UnixMilli(), c.seed)
	c.seed++
	return id
}

// AddNode adds a node. Types the shape registry does not support are
// logged and replaced with the generic rectangle instead of failing.
func (c *Controller) AddNode(n *diagram.Node) (*diagram.Node, error) {
	if n == nil {
		return nil, diagram.ErrNilNode
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, ErrDestroyed
	}
	node := n.Clone()
	if node.ID == "" {
		node.ID = c.nextNodeID()
	}
	added, err := c.addNodeLocked(node)
	events := c.collect(EventNodeAdd, added, nil, err)
	c.mu.Unlock()

	c.fire(events)
	return added, err
}

func (c *Controller) addNodeLocked(node *diagram.Node) (*diagram.Node, error) {
	desc, supported := shape.Lookup(string(node.Type))
	if !supported {
		c.log.Warn("unsupported node type, falling back to rect",
			zap.String("node", node.ID), zap.String("type", string(node.Type)))
		if node.Properties == nil {
			node.Properties = map[string]interface{}{}
		}
		node.Properties["shape"] = "rect"
	}
	node.Type = desc.Type
	desc.ApplyDefaults(node)

	snap := c.d.Clone()
	if err := c.d.AddNode(node); err != nil {
		c.log.Error("add node failed", zap.String("node", node.ID), zap.Error(err))
		return nil, err
	}
	c.push(snap)
	return node.Clone(), nil
}

// Connect creates an edge between two existing nodes.
func (c *Controller) Connect(source, target, text string) (*diagram.Edge, error) {
	return c.AddEdge(&diagram.Edge{Source: source, Target: target, Text: text})
}

// AddEdge adds an edge, generating an ID when missing.
func (c *Controller) AddEdge(e *diagram.Edge) (*diagram.Edge, error) {
	if e == nil {
		return nil, diagram.ErrNilEdge
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, ErrDestroyed
	}
	edge := e.Clone()
	if edge.ID == "" {
		edge.ID = c.edgeID()
	}
	snap := c.d.Clone()
	err := c.d.AddEdge(edge)
	var out *diagram.Edge
	if err == nil {
		c.push(snap)
		out = edge.Clone()
		c.log.Debug("connection created", zap.String("edge", edge.ID),
			zap.String("source", edge.Source), zap.String("target", edge.Target))
	}
	events := c.collect(EventConnectionCreate, nil, out, err)
	c.mu.Unlock()

	c.fire(events)
	return out, err
}

// MoveNode sets a node's centre.
func (c *Controller) MoveNode(id string, x, y float64) error {
	return c.mutateNode(id, func(n *diagram.Node) {
		n.X, n.Y = x, y
	})
}

// SetProperties merges patch into a node's properties.
func (c *Controller) SetProperties(id string, patch map[string]interface{}) error {
	return c.mutateNode(id, func(n *diagram.Node) {
		if n.Properties == nil {
			n.Properties = make(map[string]interface{}, len(patch))
		}
		for k, v := range patch {
			n.Properties[k] = v
		}
	})
}

func (c *Controller) mutateNode(id string, fn func(*diagram.Node)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	n, ok := c.d.Node(id)
	if !ok {
		return diagram.ErrNodeNotFound
	}
	c.push(c.d.Clone())
	fn(n)
	c.d.UpdatedAt = c.now()
	return nil
}

// RemoveNode deletes a node and its attached edges.
func (c *Controller) RemoveNode(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	snap := c.d.Clone()
	if err := c.d.RemoveNode(id); err != nil {
		return err
	}
	c.push(snap)
	return nil
}

// Render replaces the whole diagram, keeping the canvas ID. Nodes without
// a size take the registry defaults of their variant.
func (c *Controller) Render(d *diagram.Diagram) error {
	if d == nil {
		return diagram.ErrNilDiagram
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.push(c.d.Clone())
	next := d.Clone()
	next.ID = c.d.ID
	if next.Name == "" {
		next.Name = c.d.Name
	}
	for _, n := range next.Nodes() {
		shape.For(n.Type).ApplyDefaults(n)
	}
	c.d = next
	events := c.collect(EventGraphRender, nil, nil, nil)
	c.mu.Unlock()

	c.fire(events)
	return nil
}

// Clear empties the canvas.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.push(c.d.Clone())
	c.d.Clear()
	events := c.collect(EventGraphClear, nil, nil, nil)
	c.mu.Unlock()

	c.fire(events)
	return nil
}

// Undo restores the diagram as it was before the last mutation.
func (c *Controller) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if len(c.history) == 0 {
		return ErrNothingToUndo
	}
	last := c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.d = last
	return nil
}

// GraphData returns a detached copy of the current diagram.
func (c *Controller) GraphData() (*diagram.Diagram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}
	return c.d.Clone(), nil
}

// NodeCount returns the number of nodes on the canvas.
func (c *Controller) NodeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return 0
	}
	return c.d.NodeCount()
}

func (c *Controller) push(snap *diagram.Diagram) {
	c.history = append(c.history, snap)
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
}

type pending struct {
	handlers []Handler
	event    Event
}

func (c *Controller) collect(t EventType, n *diagram.Node, e *diagram.Edge, err error) *pending {
	if err != nil || len(c.hooks[t]) == 0 {
		return nil
	}
	return &pending{
		handlers: append([]Handler(nil), c.hooks[t]...),
		event:    Event{Type: t, Node: n, Edge: e},
	}
}

func (c *Controller) fire(p *pending) {
	if p == nil {
		return
	}
	for _, h := range p.handlers {
		h(p.event)
	}
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
