package dto

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/flowgraph/flowdesigner/internal/core/canvas"
	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/pkg/bpmn"
	"github.com/flowgraph/flowdesigner/pkg/validation"
)

// DropRequest carries a palette drag payload and the drop position in
// client coordinates.
type DropRequest struct {
	Payload json.RawMessage `json:"payload"`
	Pointer diagram.Point   `json:"pointer"`
	Origin  diagram.Point   `json:"origin"`
}

// Validate implements validation.Validator.
func (r *DropRequest) Validate() error {
	if len(r.Payload) == 0 || string(r.Payload) == "null" {
		return ErrMissingPayload
	}
	for _, v := range []float64{r.Pointer.X, r.Pointer.Y, r.Origin.X, r.Origin.Y} {
		if math.IsNaN(v) || math.Abs(v) > canvas.MaxCoordinate {
			return ErrInvalidPosition
		}
	}
	return nil
}

// EdgeRequest connects two nodes.
type EdgeRequest struct {
	ID     string `json:"id,omitempty" validate:"omitempty,node_id"`
	Source string `json:"sourceNodeId" validate:"required"`
	Target string `json:"targetNodeId" validate:"required"`
	Text   string `json:"text,omitempty" validate:"max=200"`
}

// ImportRequest is a BPMN document to load onto a canvas.
type ImportRequest struct {
	XML string `json:"xml"`
}

// Validate implements validation.Validator.
func (r *ImportRequest) Validate() error {
	if strings.TrimSpace(r.XML) == "" {
		return ErrEmptyDocument
	}
	return nil
}

// ImportResponse is the imported graph plus what had to be left out.
type ImportResponse struct {
	Graph  diagram.GraphData `json:"graph"`
	Report *bpmn.Report      `json:"report"`
}

// SaveResponse describes a stored snapshot.
type SaveResponse struct {
	Key         string `json:"key"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Bytes       int    `json:"bytes"`
	Codec       string `json:"codec"`
	Compression string `json:"compression"`
}

// Export formats.
const (
	FormatBPMN = "bpmn"
	FormatJSON = "json"
)

// ParseFormat resolves an export format name; empty means BPMN XML.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatBPMN, "xml":
		return FormatBPMN, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", ErrUnknownFormat
	}
}

// ErrorResponse is the body of every non-2xx API answer.
type ErrorResponse struct {
	Error  string                       `json:"error"`
	Fields []validation.ValidationError `json:"fields,omitempty"`
}
