package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Tool is a capability the model may invoke by name.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the arguments object.
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Spec is the schema view of a tool offered to the model.
type Spec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// SpecOf returns the schema view of t.
func SpecOf(t Tool) Spec {
	return Spec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// Parameter describes one argument of a Definition.
type Parameter struct {
	Name        string
	Type        string // string, number, integer, boolean, object, array
	Description string
	Required    bool
	Default     interface{}
	Minimum     *float64
	Maximum     *float64
}

// Handler runs a tool with already validated arguments.
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

var validTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// Definition is a Tool assembled from a parameter list and a handler. The
// JSON schema is generated from Params and compiled on first use.
type Definition struct {
	ToolName string
	Summary  string
	Params   []Parameter
	Handler  Handler

	once      sync.Once
	schemaMap map[string]interface{}
	schema    *gojsonschema.Schema
	schemaErr error
}

func (d *Definition) Name() string        { return d.ToolName }
func (d *Definition) Description() string { return d.Summary }

// Parameters returns the generated JSON schema.
func (d *Definition) Parameters() map[string]interface{} {
	d.compile()
	return d.schemaMap
}

// Execute validates args against the schema and runs the handler.
func (d *Definition) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if d.Handler == nil {
		return "", fmt.Errorf("tool %s has no handler", d.ToolName)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := d.Validate(args); err != nil {
		return "", err
	}
	return d.Handler(ctx, args)
}

// Validate checks args against the tool's schema.
func (d *Definition) Validate(args map[string]interface{}) error {
	d.compile()
	if d.schemaErr != nil {
		return fmt.Errorf("invalid schema for %s: %w", d.ToolName, d.schemaErr)
	}
	return ValidateArgs(d.schema, args)
}

// Check reports problems with the definition itself.
func (d *Definition) Check() error {
	if d.ToolName == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if d.Summary == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if d.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validTypes[p.Type] {
			return fmt.Errorf("invalid parameter type %q for %s", p.Type, p.Name)
		}
	}
	d.compile()
	return d.schemaErr
}

func (d *Definition) compile() {
	d.once.Do(func() {
		d.schemaMap = buildSchema(d.Params)
		d.schema, d.schemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(d.schemaMap))
	})
}

func buildSchema(params []Parameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	required := []string{}

	for _, p := range params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateArgs validates args against a compiled schema. A nil schema accepts anything.
func ValidateArgs(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// Float returns a pointer to v, for Parameter bounds.
func Float(v float64) *float64 {
	return &v
}
