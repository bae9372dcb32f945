package bpmn

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
)

// Report lists what Import had to leave out.
type Report struct {
	Warnings      []string `json:"warnings,omitempty"`
	SkippedShapes []string `json:"skippedShapes,omitempty"`
	DroppedEdges  []string `json:"droppedEdges,omitempty"`
}

func (r *Report) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var prefixPattern = regexp.MustCompile(`(</?)[A-Za-z_][\w.-]*:`)

// StripPrefixes removes namespace prefixes from element tags so documents
// written by different modelers (bpmn:, bpmn2:, semantic:) parse the same.
// Attribute prefixes such as xmlns:bpmn are left alone.
func StripPrefixes(doc string) string {
	return prefixPattern.ReplaceAllString(doc, "$1")
}

// importType maps a process element tag to a node type.
var importType = map[string]diagram.NodeType{
	"startEvent":       diagram.NodeTypeStart,
	"endEvent":         diagram.NodeTypeEnd,
	"exclusiveGateway": diagram.NodeTypeGateway,
	"userTask":         diagram.NodeTypeTask,
}

// Import parses a BPMN document into a new diagram. Shapes without usable
// bounds are skipped and flows whose endpoints are not both imported are
// dropped; both are recorded in the report. The diagram is only returned
// with a nil error.
func Import(doc string) (*diagram.Diagram, *Report, error) {
	clean := StripPrefixes(doc)
	if err := checkWellFormed(clean); err != nil {
		return nil, nil, err
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromString(clean); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}

	process := tree.FindElement("//process")
	if process == nil {
		return nil, nil, ErrMissingProcess
	}
	plane := tree.FindElement("//BPMNPlane")
	if plane == nil {
		return nil, nil, ErrMissingPlane
	}

	elements := make(map[string]*etree.Element)
	for _, el := range process.ChildElements() {
		if id := el.SelectAttrValue("id", ""); id != "" {
			elements[id] = el
		}
	}

	report := &Report{}
	d := diagram.New(process.SelectAttrValue("id", DefaultProcessID), process.SelectAttrValue("name", ""))

	for _, sh := range plane.SelectElements("BPMNShape") {
		ref := sh.SelectAttrValue("bpmnElement", "")
		if ref == "" {
			report.SkippedShapes = append(report.SkippedShapes, sh.SelectAttrValue("id", ""))
			report.warn("shape %q has no bpmnElement", sh.SelectAttrValue("id", ""))
			continue
		}
		x, y, w, h, ok := parseBounds(sh.SelectElement("Bounds"))
		if !ok {
			report.SkippedShapes = append(report.SkippedShapes, ref)
			report.warn("shape %q has no usable bounds", ref)
			continue
		}

		node := &diagram.Node{
			ID:     ref,
			Type:   diagram.NodeTypeTask,
			X:      x + w/2,
			Y:      y + h/2,
			Width:  w,
			Height: h,
			Text:   ref,
		}
		if el, found := elements[ref]; found {
			if t, known := importType[el.Tag]; known {
				node.Type = t
			}
			if name := el.SelectAttrValue("name", ""); name != "" {
				node.Text = name
			}
		}
		if err := d.AddNode(node); err != nil {
			report.SkippedShapes = append(report.SkippedShapes, ref)
			report.warn("shape %q: %v", ref, err)
		}
	}

	for _, de := range plane.SelectElements("BPMNEdge") {
		ref := de.SelectAttrValue("bpmnElement", "")
		flow, found := elements[ref]
		if !found || flow.Tag != "sequenceFlow" {
			report.DroppedEdges = append(report.DroppedEdges, ref)
			report.warn("edge %q references no sequenceFlow", ref)
			continue
		}
		edge := &diagram.Edge{
			ID:     ref,
			Source: flow.SelectAttrValue("sourceRef", ""),
			Target: flow.SelectAttrValue("targetRef", ""),
			Text:   flow.SelectAttrValue("name", ""),
		}
		for _, wp := range de.SelectElements("waypoint") {
			px, errX := strconv.ParseFloat(wp.SelectAttrValue("x", ""), 64)
			py, errY := strconv.ParseFloat(wp.SelectAttrValue("y", ""), 64)
			if errX != nil || errY != nil {
				continue
			}
			edge.Waypoints = append(edge.Waypoints, diagram.Point{X: px, Y: py})
		}
		if err := d.AddEdge(edge); err != nil {
			report.DroppedEdges = append(report.DroppedEdges, ref)
			report.warn("edge %q dropped: %v", ref, err)
		}
	}

	return d, report, nil
}

func parseBounds(b *etree.Element) (x, y, w, h float64, ok bool) {
	if b == nil {
		return 0, 0, 0, 0, false
	}
	vals := make([]float64, 4)
	for i, name := range []string{"x", "y", "width", "height"} {
		v, err := strconv.ParseFloat(b.SelectAttrValue(name, ""), 64)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		vals[i] = v
	}
	if vals[2] < 0 || vals[3] < 0 {
		return 0, 0, 0, 0, false
	}
	return vals[0], vals[1], vals[2], vals[3], true
}

// checkWellFormed runs a strict token pass so unterminated elements and
// mismatched tags are reported before the DOM parse.
func checkWellFormed(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return fmt.Errorf("%w: empty document", ErrMalformedXML)
	}
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = true
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawRoot = true
		}
	}
	if !sawRoot {
		return fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	return nil
}
