package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchDefinition() *Definition {
	return &Definition{
		ToolName: "web_search",
		Summary:  "Search",
		Params: []Parameter{
			{Name: "query", Type: "string", Description: "Query", Required: true},
			{Name: "count", Type: "integer", Description: "Results", Minimum: Float(1), Maximum: Float(10)},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "done", nil
		},
	}
}

func TestDefinition_Parameters(t *testing.T) {
	schema := searchDefinition().Parameters()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"query"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	count := props["count"].(map[string]interface{})
	assert.Equal(t, "integer", count["type"])
	assert.Equal(t, 1.0, count["minimum"])
	assert.Equal(t, 10.0, count["maximum"])
}

func TestDefinition_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("should run the handler with valid arguments", func(t *testing.T) {
		out, err := searchDefinition().Execute(ctx, map[string]interface{}{"query": "go", "count": float64(3)})
		require.NoError(t, err)
		assert.Equal(t, "done", out)
	})

	t.Run("should reject a missing required argument", func(t *testing.T) {
		_, err := searchDefinition().Execute(ctx, map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid arguments")
		assert.Contains(t, err.Error(), "query")
	})

	t.Run("should reject a wrong type", func(t *testing.T) {
		_, err := searchDefinition().Execute(ctx, map[string]interface{}{"query": 42})
		assert.Error(t, err)
	})

	t.Run("should reject out of range values", func(t *testing.T) {
		_, err := searchDefinition().Execute(ctx, map[string]interface{}{"query": "go", "count": float64(50)})
		assert.Error(t, err)
	})

	t.Run("should treat nil arguments as an empty object", func(t *testing.T) {
		def := &Definition{
			ToolName: "get_sys_info",
			Summary:  "Info",
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				return "info", nil
			},
		}
		out, err := def.Execute(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "info", out)
	})
}

func TestDefinition_Check(t *testing.T) {
	tests := []struct {
		name string
		def  *Definition
	}{
		{name: "empty name", def: &Definition{Summary: "x", Handler: searchDefinition().Handler}},
		{name: "empty description", def: &Definition{ToolName: "x", Handler: searchDefinition().Handler}},
		{name: "nil handler", def: &Definition{ToolName: "x", Summary: "x"}},
		{name: "bad type", def: &Definition{ToolName: "x", Summary: "x", Handler: searchDefinition().Handler,
			Params: []Parameter{{Name: "p", Type: "date", Description: "d"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.def.Check())
		})
	}

	assert.NoError(t, searchDefinition().Check())
}
