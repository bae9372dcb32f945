// Package bpmn converts diagrams to and from a simplified BPMN 2.0 XML
// document. Both directions are pure text transforms: Export never touches
// a canvas and Import returns a fresh diagram the caller may apply.
package bpmn

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/internal/core/shape"
)

const (
	DefaultProcessID       = "Process_1"
	DefaultTargetNamespace = "http://bpmn.io/schema/bpmn"
)

// ExportOptions tunes the generated document.
type ExportOptions struct {
	ProcessID   string
	ProcessName string
	// NotExecutable clears isExecutable on the process element.
	NotExecutable bool
}

var namespaces = []struct{ prefix, uri string }{
	{"xsi", "http://www.w3.org/2001/XMLSchema-instance"},
	{"bpmn", "http://www.omg.org/spec/BPMN/20100524/MODEL"},
	{"bpmndi", "http://www.omg.org/spec/BPMN/20100524/DI"},
	{"dc", "http://www.omg.org/spec/DD/20100524/DC"},
	{"di", "http://www.omg.org/spec/DD/20100524/DI"},
}

// elementTag is the process element each node type exports as.
var elementTag = map[diagram.NodeType]string{
	diagram.NodeTypeStart:   "startEvent",
	diagram.NodeTypeEnd:     "endEvent",
	diagram.NodeTypeTask:    "userTask",
	diagram.NodeTypeGateway: "exclusiveGateway",
	diagram.NodeTypeGeneric: "task",
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML special characters with entities, matching
// how Export writes attribute values.
func Escape(s string) string {
	return xmlEscaper.Replace(s)
}

// Export renders the diagram as BPMN XML: one process element per node,
// one sequenceFlow per edge, and a BPMNDiagram section with pixel bounds
// and waypoints.
func Export(d *diagram.Diagram, opts ...ExportOptions) (string, error) {
	if d == nil {
		return "", diagram.ErrNilDiagram
	}
	var o ExportOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.ProcessID == "" {
		o.ProcessID = DefaultProcessID
	}
	if o.ProcessName == "" {
		o.ProcessName = d.Name
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	defs := doc.CreateElement("bpmn:definitions")
	for _, ns := range namespaces {
		defs.CreateAttr("xmlns:"+ns.prefix, ns.uri)
	}
	defs.CreateAttr("id", "Definitions_1")
	defs.CreateAttr("targetNamespace", DefaultTargetNamespace)

	proc := defs.CreateElement("bpmn:process")
	proc.CreateAttr("id", o.ProcessID)
	if o.ProcessName != "" {
		proc.CreateAttr("name", o.ProcessName)
	}
	proc.CreateAttr("isExecutable", strconv.FormatBool(!o.NotExecutable))

	nodes := d.Nodes()
	edges := d.Edges()
	for _, n := range nodes {
		tag := elementTag[n.Type]
		if tag == "" {
			tag = "task"
		}
		el := proc.CreateElement("bpmn:" + tag)
		el.CreateAttr("id", n.ID)
		el.CreateAttr("name", n.Label())
	}
	for _, e := range edges {
		el := proc.CreateElement("bpmn:sequenceFlow")
		el.CreateAttr("id", e.ID)
		el.CreateAttr("sourceRef", e.Source)
		el.CreateAttr("targetRef", e.Target)
		if e.Text != "" {
			el.CreateAttr("name", e.Text)
		}
	}

	plane := defs.CreateElement("bpmndi:BPMNDiagram")
	plane.CreateAttr("id", "BPMNDiagram_1")
	plane = plane.CreateElement("bpmndi:BPMNPlane")
	plane.CreateAttr("id", "BPMNPlane_1")
	plane.CreateAttr("bpmnElement", o.ProcessID)
	for _, n := range nodes {
		x, y, w, h := bounds(n)
		sh := plane.CreateElement("bpmndi:BPMNShape")
		sh.CreateAttr("id", n.ID+"_di")
		sh.CreateAttr("bpmnElement", n.ID)
		b := sh.CreateElement("dc:Bounds")
		b.CreateAttr("x", x)
		b.CreateAttr("y", y)
		b.CreateAttr("width", w)
		b.CreateAttr("height", h)
	}
	for _, e := range edges {
		el := plane.CreateElement("bpmndi:BPMNEdge")
		el.CreateAttr("id", e.ID+"_di")
		el.CreateAttr("bpmnElement", e.ID)
		for _, p := range e.Waypoints {
			wp := el.CreateElement("di:waypoint")
			wp.CreateAttr("x", formatCoord(p.X))
			wp.CreateAttr("y", formatCoord(p.Y))
		}
	}

	doc.Indent(2)
	return doc.WriteToString()
}

// bounds converts a centre-positioned node into rounded top-left bounds.
// Unsized nodes take the shape registry's default size.
func bounds(n *diagram.Node) (x, y, w, h string) {
	width, height := n.Width, n.Height
	if width <= 0 || height <= 0 {
		desc := shape.For(n.Type)
		if width <= 0 {
			width = desc.Width
		}
		if height <= 0 {
			height = desc.Height
		}
	}
	return formatCoord(n.X - width/2), formatCoord(n.Y - height/2), formatCoord(width), formatCoord(height)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
}
