// Package diagram provides node definitions
package diagram

import "strings"

// NodeType is the closed set of node variants a diagram understands.
type NodeType string

const (
	// NodeTypeStart is a start event, drawn as a circle
	NodeTypeStart NodeType = "start"
	// NodeTypeEnd is an end event, drawn as a circle
	NodeTypeEnd NodeType = "end"
	// NodeTypeTask is a user task, drawn as a rectangle
	NodeTypeTask NodeType = "task"
	// NodeTypeGateway is an exclusive gateway, drawn as a diamond
	NodeTypeGateway NodeType = "gateway"
	// NodeTypeGeneric is the fallback rectangle for anything else
	NodeTypeGeneric NodeType = "generic"
)

// nodeTypeAliases maps the names used by editors and BPMN tags onto a NodeType.
var nodeTypeAliases = map[string]NodeType{
	"start":            NodeTypeStart,
	"start-node":       NodeTypeStart,
	"startevent":       NodeTypeStart,
	"end":              NodeTypeEnd,
	"end-node":         NodeTypeEnd,
	"endevent":         NodeTypeEnd,
	"task":             NodeTypeTask,
	"task-node":        NodeTypeTask,
	"user-task":        NodeTypeTask,
	"usertask":         NodeTypeTask,
	"gateway":          NodeTypeGateway,
	"diamond":          NodeTypeGateway,
	"exclusivegateway": NodeTypeGateway,
	"generic":          NodeTypeGeneric,
	"rect":             NodeTypeGeneric,
	"polygon":          NodeTypeGeneric,
}

// ParseNodeType resolves an editor or BPMN type name. The boolean is false
// for names no variant claims; the returned type is then NodeTypeGeneric.
func ParseNodeType(s string) (NodeType, bool) {
	t, ok := nodeTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return NodeTypeGeneric, false
	}
	return t, true
}

func (n *Node) normalizeType() {
	t, ok := ParseNodeType(string(n.Type))
	if !ok {
		if n.Properties == nil {
			n.Properties = map[string]interface{}{}
		}
		n.Properties["shape"] = "rect"
	}
	n.Type = t
}

// Point is a canvas coordinate in pixels.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Node represents a shape placed on the canvas. X and Y are the centre.
// PRINCIPLES:
// - KISS: Simple node representation
// - SRP: Only responsible for node data
type Node struct {
	ID         string                 `json:"id" msgpack:"id"`
	Type       NodeType               `json:"type" msgpack:"type"`
	X          float64                `json:"x" msgpack:"x"`
	Y          float64                `json:"y" msgpack:"y"`
	Width      float64                `json:"width,omitempty" msgpack:"width,omitempty"`
	Height     float64                `json:"height,omitempty" msgpack:"height,omitempty"`
	Text       string                 `json:"text,omitempty" msgpack:"text,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty" msgpack:"properties,omitempty"`
}

// Validate ensures node integrity
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Type == "" {
		return ErrInvalidNodeType
	}
	if n.Width < 0 || n.Height < 0 {
		return ErrInvalidNodeSize
	}
	return nil
}

// Label returns the display text, falling back to the node ID.
func (n *Node) Label() string {
	if n.Text != "" {
		return n.Text
	}
	return n.ID
}

// Bounds returns the top-left corner and size of the node.
func (n *Node) Bounds() (x, y, w, h float64) {
	return n.X - n.Width/2, n.Y - n.Height/2, n.Width, n.Height
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Properties = cloneMap(n.Properties)
	return &c
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
