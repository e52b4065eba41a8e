// Package tool defines the tool framework: the declaration schema shown
// to the model, the registry the runner dispatches through, and argument
// decoding from the model's raw JSON maps into typed requests.
package tool

import (
	"context"

	"github.com/aide-agent/aide/internal/permission"
)

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema represents a JSON Schema for tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Declaration declares a tool's function signature for the model.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Access describes what a call will do to the filesystem, so the gate can
// decide before the tool runs. An empty Path means the workspace root.
type Access struct {
	Op   permission.Operation
	Path string
}

// Tool is one registered capability. Execute returns the text fed back to
// the model; an error return means the call failed and will be
// categorized by the supervisor.
type Tool interface {
	Name() string
	Declaration() Declaration

	// Access reports the path and operation the gate must clear before
	// this call dispatches, given the raw arguments.
	Access(args map[string]any) Access

	Execute(ctx context.Context, args map[string]any) (string, error)
}
