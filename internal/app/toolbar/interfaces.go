package toolbar

import (
	"context"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/internal/core/diagram"
)

// Canvas is the part of the canvas controller the toolbar drives
// PRINCIPLES:
// - ISP: Only the calls toolbar actions need
// - DIP: Toolbar depends on abstractions, not the controller
type Canvas interface {
	GraphData() (*diagram.Diagram, error)
	Render(d *diagram.Diagram) error
	Undo() error
	Clear() error
}

// Engine deploys and starts processes on a workflow engine.
type Engine interface {
	Deploy(ctx context.Context, processName, bpmnXML string) (*engine.Result, error)
	Start(ctx context.Context, req engine.StartRequest) (*engine.Result, error)
}
