package snapshot

import (
	"context"
	"time"
)

// Store persists snapshots (DIP - Dependency Inversion)
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Toolbar depends on interface, not implementations
type Store interface {
	// Save creates or replaces the snapshot under s.Key
	Save(ctx context.Context, s *Snapshot) error

	// Load retrieves a snapshot by key
	Load(ctx context.Context, key string) (*Snapshot, error)

	// List returns snapshots matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Snapshot, error)

	// Delete removes a snapshot by key
	Delete(ctx context.Context, key string) error
}

// Filter for snapshot queries
type Filter struct {
	DiagramID string     `json:"diagram_id,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches reports whether s passes the filter's predicates. Paging is left
// to the caller.
func (f *Filter) Matches(s *Snapshot) bool {
	if f.DiagramID != "" && s.DiagramID != f.DiagramID {
		return false
	}
	if f.Since != nil && s.UpdatedAt.Before(*f.Since) {
		return false
	}
	if f.Before != nil && !s.UpdatedAt.Before(*f.Before) {
		return false
	}
	return true
}
