package toolbar

import "errors"

// Action errors
var (
	ErrNoSavedDiagram = errors.New("no saved diagram")
	ErrCorruptSave    = errors.New("saved diagram cannot be read")
	ErrNoEngine       = errors.New("no workflow engine configured")
)
