package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
)

var nodeIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

func registerRules(v *validator.Validate) {
	_ = v.RegisterValidation("node_id", validateNodeID)
	_ = v.RegisterValidation("node_type", validateNodeType)
}

// IsNodeID reports whether id is usable as an XML ID. Canvas IDs follow the
// same rule since they become BPMN process IDs.
func IsNodeID(id string) bool {
	return len(id) <= 100 && nodeIDPattern.MatchString(id)
}

func validateNodeID(fl validator.FieldLevel) bool {
	return IsNodeID(fl.Field().String())
}

// validateNodeType accepts any name the diagram package can resolve.
func validateNodeType(fl validator.FieldLevel) bool {
	_, ok := diagram.ParseNodeType(fl.Field().String())
	return ok
}
