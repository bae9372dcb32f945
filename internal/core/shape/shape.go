// Package shape is the registry of node variants and their visual
// parameters. Each diagram.NodeType maps to exactly one Descriptor; anything
// the registry does not know is drawn as the generic rectangle.
package shape

import "github.com/flowgraph/flowdesigner/internal/core/diagram"

// Geometry is the outline a variant is drawn with.
type Geometry string

const (
	GeometryCircle  Geometry = "circle"
	GeometryRect    Geometry = "rect"
	GeometryDiamond Geometry = "diamond"
)

// Descriptor holds the visual parameters of one node variant.
type Descriptor struct {
	Type        diagram.NodeType
	Geometry    Geometry
	Radius      float64
	Width       float64
	Height      float64
	Fill        string
	Stroke      string
	StrokeWidth float64
}

var registry = map[diagram.NodeType]Descriptor{
	diagram.NodeTypeStart: {
		Type: diagram.NodeTypeStart, Geometry: GeometryCircle, Radius: 60,
		Width: 60, Height: 60, Fill: "#e6f7ff", Stroke: "#1E90FF", StrokeWidth: 1,
	},
	diagram.NodeTypeEnd: {
		Type: diagram.NodeTypeEnd, Geometry: GeometryCircle, Radius: 60,
		Width: 60, Height: 60, Fill: "#fff0f0", Stroke: "#FF4500", StrokeWidth: 2,
	},
	diagram.NodeTypeTask: {
		Type: diagram.NodeTypeTask, Geometry: GeometryRect,
		Width: 100, Height: 60, Fill: "#fff7ed", Stroke: "#fb923c", StrokeWidth: 1,
	},
	diagram.NodeTypeGateway: {
		Type: diagram.NodeTypeGateway, Geometry: GeometryDiamond,
		Width: 110, Height: 70, Fill: "#f3e8ff", Stroke: "#a78bfa", StrokeWidth: 1,
	},
	diagram.NodeTypeGeneric: {
		Type: diagram.NodeTypeGeneric, Geometry: GeometryRect,
		Width: 100, Height: 60, Fill: "#ffffff", Stroke: "#5F95FF", StrokeWidth: 1,
	},
}

// For returns the descriptor of a node type, or the generic one.
func For(t diagram.NodeType) Descriptor {
	if d, ok := registry[t]; ok {
		return d
	}
	return registry[diagram.NodeTypeGeneric]
}

// Lookup resolves a raw editor type name. supported is false when the name
// is unknown and the generic rectangle was substituted.
func Lookup(name string) (desc Descriptor, supported bool) {
	t, ok := diagram.ParseNodeType(name)
	return For(t), ok
}

// IsRound reports whether the variant keeps width and height equal.
func (d Descriptor) IsRound() bool {
	return d.Geometry == GeometryCircle
}

// Anchors returns the connection points of a node drawn with this
// descriptor: top, right, bottom, left.
func (d Descriptor) Anchors(n *diagram.Node) []diagram.Point {
	w, h := n.Width, n.Height
	if w == 0 {
		w = d.Width
	}
	if h == 0 {
		h = d.Height
	}
	return []diagram.Point{
		{X: n.X, Y: n.Y - h/2},
		{X: n.X + w/2, Y: n.Y},
		{X: n.X, Y: n.Y + h/2},
		{X: n.X - w/2, Y: n.Y},
	}
}

// ApplyDefaults fills in a zero size from the descriptor and squares round
// variants.
func (d Descriptor) ApplyDefaults(n *diagram.Node) {
	if n.Width == 0 {
		n.Width = d.Width
	}
	if n.Height == 0 {
		n.Height = d.Height
	}
	if d.IsRound() {
		n.Height = n.Width
	}
}
