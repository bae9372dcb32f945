package validation

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 4 << 20

// DecodeJSON decodes a JSON body into v and validates it. Decode failures
// are reported as a ValidationErrors on the request_body field so callers
// can answer 400 for both cases.
func DecodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return ValidationErrors{{
			Field:   "request_body",
			Value:   nil,
			Message: fmt.Sprintf("invalid JSON: %v", err),
		}}
	}
	return Struct(v)
}
