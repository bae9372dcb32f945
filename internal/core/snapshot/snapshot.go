// Package snapshot holds the persisted form of a diagram. A snapshot is the
// serialized graph data stored under a fixed key, the server-side stand-in
// for the editor's local-storage slot.
package snapshot

import (
	"strings"
	"time"
)

// DefaultKey is the slot the editor saves to and loads from.
const DefaultKey = "logicflow_demo_save"

// Snapshot is one saved diagram.
// PRINCIPLES:
// - KISS: Opaque payload plus the names needed to decode it
// - SRP: Only responsible for snapshot data structure
type Snapshot struct {
	Key         string    `json:"key"`
	DiagramID   string    `json:"diagram_id"`
	Name        string    `json:"name,omitempty"`
	Data        []byte    `json:"data"`
	Codec       string    `json:"codec"`
	Compression string    `json:"compression"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate ensures snapshot integrity
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.Key) == "" || len(s.Key) > 255 {
		return ErrInvalidKey
	}
	if s.DiagramID == "" {
		return ErrInvalidDiagramID
	}
	if len(s.Data) == 0 {
		return ErrEmptyData
	}
	return nil
}

// Clone returns a copy that shares no memory with s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Data = append([]byte(nil), s.Data...)
	return &c
}
