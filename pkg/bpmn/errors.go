package bpmn

import "errors"

// Codec errors
var (
	ErrMalformedXML   = errors.New("malformed BPMN XML")
	ErrMissingProcess = errors.New("BPMN document has no process element")
	ErrMissingPlane   = errors.New("BPMN document has no BPMNPlane element")
)
