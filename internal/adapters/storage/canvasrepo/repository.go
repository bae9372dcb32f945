// Package canvasrepo keeps the live canvases a server process is editing.
package canvasrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/flowgraph/flowdesigner/internal/core/canvas"
	"github.com/flowgraph/flowdesigner/pkg/validation"
)

var (
	ErrCanvasNotFound  = errors.New("canvas not found")
	ErrInvalidCanvasID = errors.New("invalid canvas ID")
)

// Repository provides an in-memory registry of canvas controllers
// PRINCIPLES:
// - KISS: Simple map-based storage
// - SRP: Only responsible for canvas lifetime
// - Thread-safe
type Repository struct {
	mu       sync.RWMutex
	canvases map[string]*canvas.Controller
	opts     []canvas.Option
}

// New creates a repository; opts are applied to every canvas it creates.
func New(opts ...canvas.Option) *Repository {
	return &Repository{
		canvases: make(map[string]*canvas.Controller),
		opts:     opts,
	}
}

// GetOrCreate returns the canvas for id, creating an empty one on first use.
func (r *Repository) GetOrCreate(_ context.Context, id string) (*canvas.Controller, error) {
	if !validation.IsNodeID(id) {
		return nil, ErrInvalidCanvasID
	}
	r.mu.RLock()
	c, ok := r.canvases[id]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.canvases[id]; ok {
		return c, nil
	}
	opts := append(append([]canvas.Option(nil), r.opts...), canvas.WithDiagram(id, id))
	c = canvas.New(opts...)
	r.canvases[id] = c
	return c, nil
}

// Get returns an existing canvas.
func (r *Repository) Get(_ context.Context, id string) (*canvas.Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.canvases[id]
	if !ok {
		return nil, ErrCanvasNotFound
	}
	return c, nil
}

// List returns the IDs of all live canvases, sorted.
func (r *Repository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.canvases))
	for id := range r.canvases {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Delete destroys a canvas and forgets it.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.canvases[id]
	delete(r.canvases, id)
	r.mu.Unlock()
	if !ok {
		return ErrCanvasNotFound
	}
	c.Destroy()
	return nil
}
