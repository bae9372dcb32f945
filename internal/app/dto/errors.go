package dto

import "errors"

// Request errors
var (
	ErrMissingCanvasID = errors.New("canvas ID is required")
	ErrMissingPayload  = errors.New("drop payload is required")
	ErrEmptyDocument   = errors.New("BPMN document is empty")
	ErrUnknownFormat   = errors.New("unknown export format")
	ErrInvalidPosition = errors.New("drop position out of range")
)
