// Package palette holds the fixed list of draggable shape templates and the
// payload format carried from the palette to the canvas on drop.
package palette

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowgraph/flowdesigner/pkg/validation"
)

// ErrInvalidPayload is returned when a dropped payload cannot be decoded.
var ErrInvalidPayload = errors.New("invalid drag payload")

// Style is the fill/stroke pair a palette item applies to its node.
type Style struct {
	Fill   string `json:"fill,omitempty" validate:"omitempty,hexcolor"`
	Stroke string `json:"stroke,omitempty" validate:"omitempty,hexcolor"`
}

// Map returns the style as node properties.
func (s Style) Map() map[string]interface{} {
	m := make(map[string]interface{}, 2)
	if s.Fill != "" {
		m["fill"] = s.Fill
	}
	if s.Stroke != "" {
		m["stroke"] = s.Stroke
	}
	return m
}

// Item is one draggable shape template. It doubles as the drag payload.
type Item struct {
	Type  string  `json:"type" validate:"required"`
	Label string  `json:"label" validate:"required"`
	Style *Style  `json:"style,omitempty"`
	R     float64 `json:"r,omitempty" validate:"gte=0"`
	W     float64 `json:"w,omitempty" validate:"gte=0"`
	H     float64 `json:"h,omitempty" validate:"gte=0"`
}

var items = []Item{
	{Type: "start-node", Label: "开始", Style: &Style{Fill: "#e6f7ff", Stroke: "#1E90FF"}, R: 60},
	{Type: "end-node", Label: "结束", Style: &Style{Fill: "#fff0f0", Stroke: "#FF4500"}, W: 60, H: 60},
	{Type: "task-node", Label: "任务", Style: &Style{Fill: "#fff7ed", Stroke: "#fb923c"}, W: 100, H: 60},
	{Type: "diamond", Label: "判断 (菱形)", Style: &Style{Fill: "#f3e8ff", Stroke: "#a78bfa"}, W: 110, H: 70},
	{Type: "polygon", Label: "多边形示例", Style: &Style{Fill: "#fff1f2", Stroke: "#fb7185"}, W: 120, H: 60},
}

// Items returns a copy of the palette in display order.
func Items() []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		if it.Style != nil {
			s := *it.Style
			out[i].Style = &s
		}
	}
	return out
}

// Find returns the palette item with the given type.
func Find(typ string) (Item, bool) {
	for _, it := range Items() {
		if it.Type == typ {
			return it, true
		}
	}
	return Item{}, false
}

// EncodePayload serialises an item for a drag operation.
func EncodePayload(it Item) ([]byte, error) {
	if err := validation.Struct(&it); err != nil {
		return nil, err
	}
	return json.Marshal(it)
}

// DecodePayload parses and validates a dropped payload.
func DecodePayload(data []byte) (Item, error) {
	if len(data) == 0 {
		return Item{}, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validation.Struct(&it); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return it, nil
}
