package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError{
		Field:   "name",
		Value:   "",
		Message: "field is required",
	}

	expected := "validation error on field 'name': field is required (got: )"
	assert.Equal(t, expected, err.Error())
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Value: "", Message: "field is required"},
		{Field: "age", Value: -1, Message: "must be positive"},
	}

	expected := "validation error on field 'name': field is required (got: ); validation error on field 'age': must be positive (got: -1)"
	assert.Equal(t, expected, errs.Error())
	assert.Equal(t, []string{"name", "age"}, errs.Fields())
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
}

type shapeRequest struct {
	ID    string `json:"id" validate:"required,node_id"`
	Type  string `json:"type" validate:"required,node_type"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Size  int    `json:"size" validate:"gte=0,lte=500"`
}

type customRequest struct {
	Name string `json:"name" validate:"required"`
}

func (c *customRequest) Validate() error {
	if c.Name == "forbidden" {
		return errors.New("name is forbidden")
	}
	return nil
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		wantFields []string
	}{
		{
			name:  "valid",
			input: &shapeRequest{ID: "node_1", Type: "task-node", Color: "#fff7ed", Size: 100},
		},
		{
			name:       "missing id",
			input:      &shapeRequest{Type: "task"},
			wantFields: []string{"shapeRequest.id"},
		},
		{
			name:       "bad id and type",
			input:      &shapeRequest{ID: "1 bad", Type: "cloud"},
			wantFields: []string{"shapeRequest.id", "shapeRequest.type"},
		},
		{
			name:       "bad colour and size",
			input:      &shapeRequest{ID: "n", Type: "task", Color: "orange", Size: 900},
			wantFields: []string{"shapeRequest.color", "shapeRequest.size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantFields, verrs.Fields())
		})
	}
}

func TestStruct_CustomValidator(t *testing.T) {
	assert.NoError(t, Struct(&customRequest{Name: "ok"}))
	assert.EqualError(t, Struct(&customRequest{Name: "forbidden"}), "name is forbidden")

	err := Struct(&customRequest{})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "field is required", verrs[0].Message)
}

func TestStruct_NotAStruct(t *testing.T) {
	err := Struct("plain string")
	require.Error(t, err)
	var verrs ValidationErrors
	assert.False(t, errors.As(err, &verrs))
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		var req shapeRequest
		err := DecodeJSON(strings.NewReader(`{"id":"n1","type":"gateway","size":10}`), &req)
		require.NoError(t, err)
		assert.Equal(t, "gateway", req.Type)
	})

	t.Run("malformed body", func(t *testing.T) {
		var req shapeRequest
		err := DecodeJSON(strings.NewReader(`{"id":`), &req)
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "request_body", verrs[0].Field)
		assert.Contains(t, verrs[0].Message, "invalid JSON")
	})

	t.Run("fails validation", func(t *testing.T) {
		var req shapeRequest
		err := DecodeJSON(strings.NewReader(`{"type":"task"}`), &req)
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, []string{"shapeRequest.id"}, verrs.Fields())
	})
}

func buildDiagram(t *testing.T, nodes []*diagram.Node, edges []*diagram.Edge) *diagram.Diagram {
	t.Helper()
	d := diagram.New("d", "test")
	for _, n := range nodes {
		require.NoError(t, d.AddNode(n))
	}
	for _, e := range edges {
		require.NoError(t, d.AddEdge(e))
	}
	return d
}

func TestValidateDiagram(t *testing.T) {
	linear := func(t *testing.T) *diagram.Diagram {
		return buildDiagram(t,
			[]*diagram.Node{
				{ID: "s", Type: diagram.NodeTypeStart},
				{ID: "t", Type: diagram.NodeTypeTask},
				{ID: "e", Type: diagram.NodeTypeEnd},
			},
			[]*diagram.Edge{
				{ID: "f1", Source: "s", Target: "t"},
				{ID: "f2", Source: "t", Target: "e"},
			})
	}

	t.Run("nil diagram", func(t *testing.T) {
		assert.ErrorIs(t, ValidateDiagram(nil), diagram.ErrNilDiagram)
	})

	t.Run("valid linear process", func(t *testing.T) {
		assert.NoError(t, ValidateDiagram(linear(t), DiagramOptions{RequireEvents: true, CheckCycles: true}))
	})

	t.Run("missing end event", func(t *testing.T) {
		d := linear(t)
		require.NoError(t, d.RemoveNode("e"))
		assert.ErrorIs(t, ValidateDiagram(d, DiagramOptions{RequireEvents: true}), ErrNoEndEvent)
		assert.NoError(t, ValidateDiagram(d))
	})

	t.Run("missing start event", func(t *testing.T) {
		d := linear(t)
		require.NoError(t, d.RemoveNode("s"))
		assert.ErrorIs(t, ValidateDiagram(d, DiagramOptions{RequireEvents: true}), ErrNoStartEvent)
	})

	t.Run("cycle detection", func(t *testing.T) {
		d := linear(t)
		require.NoError(t, d.AddEdge(&diagram.Edge{ID: "back", Source: "e", Target: "s"}))
		assert.NoError(t, ValidateDiagram(d))
		assert.ErrorIs(t, ValidateDiagram(d, DiagramOptions{CheckCycles: true}), ErrCyclic)
	})

	t.Run("invalid node mutated after insert", func(t *testing.T) {
		d := linear(t)
		n, _ := d.Node("t")
		n.Type = ""
		assert.ErrorIs(t, ValidateDiagram(d), diagram.ErrInvalidNodeType)
	})
}

func TestIsNodeID(t *testing.T) {
	assert.True(t, IsNodeID("node_1700000000000_1"))
	assert.True(t, IsNodeID("Process_1"))
	assert.False(t, IsNodeID("1abc"))
	assert.False(t, IsNodeID("has space"))
	assert.False(t, IsNodeID(strings.Repeat("a", 101)))
}
