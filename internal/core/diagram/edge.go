// Package diagram provides edge definitions
package diagram

// Edge represents a connection between two nodes. Field names follow the
// graph-data JSON the editor exchanges. Source and Target may be the same
// node.
// PRINCIPLES:
// - KISS: Simple edge representation
// - SRP: Only responsible for edge data
type Edge struct {
	ID        string  `json:"id" msgpack:"id"`
	Source    string  `json:"sourceNodeId" msgpack:"sourceNodeId"`
	Target    string  `json:"targetNodeId" msgpack:"targetNodeId"`
	Waypoints []Point `json:"pointsList,omitempty" msgpack:"pointsList,omitempty"`
	Text      string  `json:"text,omitempty" msgpack:"text,omitempty"`
}

// Validate ensures edge integrity
func (e *Edge) Validate() error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	c := *e
	if e.Waypoints != nil {
		c.Waypoints = append([]Point(nil), e.Waypoints...)
	}
	return &c
}
