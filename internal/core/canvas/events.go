package canvas

import "github.com/flowgraph/flowdesigner/internal/core/diagram"

// EventType names a canvas lifecycle event.
type EventType string

const (
	EventNodeAdd          EventType = "node.add"
	EventConnectionCreate EventType = "connection.create"
	EventGraphClear       EventType = "graph.clear"
	EventGraphRender      EventType = "graph.render"
)

// Event is delivered to handlers registered with On. Node and Edge are
// copies; handlers may keep them.
type Event struct {
	Type EventType
	Node *diagram.Node
	Edge *diagram.Edge
}

// Handler receives canvas events. It runs after the canvas lock is
// released, so it may call back into the controller.
type Handler func(Event)
