package canvas

import "errors"

var (
	ErrDestroyed     = errors.New("canvas has been destroyed")
	ErrNothingToUndo = errors.New("nothing to undo")

	ErrInvalidPosition = errors.New("drop position out of range")
)
