// Package diagram defines domain-specific errors
package diagram

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Diagram errors
	ErrNilDiagram = errors.New("diagram cannot be nil")

	// Node errors
	ErrNilNode         = errors.New("node cannot be nil")
	ErrInvalidNodeID   = errors.New("invalid node ID")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrInvalidNodeSize = errors.New("node size cannot be negative")
	ErrNodeNotFound    = errors.New("node not found")
	ErrDuplicateNode   = errors.New("duplicate node ID")

	// Edge errors
	ErrNilEdge            = errors.New("edge cannot be nil")
	ErrInvalidEdgeID      = errors.New("invalid edge ID")
	ErrInvalidSource      = errors.New("invalid source node")
	ErrInvalidTarget      = errors.New("invalid target node")
	ErrSourceNodeNotFound = errors.New("source node not found")
	ErrTargetNodeNotFound = errors.New("target node not found")
	ErrEdgeNotFound       = errors.New("edge not found")
	ErrDuplicateEdge      = errors.New("duplicate edge ID")
)
