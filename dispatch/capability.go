// Package dispatch routes tool calls to capability handlers.
//
// Information Hiding:
// - Capability execution details hidden behind interface
// - Capability parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Panic containment and output bounding internalized in the dispatcher
package dispatch

import (
	"context"
	"fmt"

	"github.com/richinex/stitch/model"
)

// Parameter defines a parameter schema for a capability.
type Parameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Metadata describes what a capability does and how to call it.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// String returns a string representation of the capability metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Capability is the interface every tool handler implements.
//
// Execute returns exactly one ToolResult per call; handler failures are
// reported inside the result rather than as Go errors, so every call gets a
// response the reasoning process can act on.
type Capability interface {
	// Metadata returns capability metadata (name, description, parameters).
	Metadata() Metadata

	// Execute runs the capability for a call. The returned result carries
	// the call's id.
	Execute(ctx context.Context, call model.ToolCall) model.ToolResult

	// Validate checks call input before any side effect.
	Validate(call model.ToolCall) error
}

// BaseCapability provides a default no-op Validate.
type BaseCapability struct{}

// Validate provides a default no-op validation.
func (BaseCapability) Validate(model.ToolCall) error {
	return nil
}

// requireString returns a named string input or an error naming the field.
func requireString(call model.ToolCall, key string) (string, error) {
	v := call.String(key)
	if v == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return v, nil
}
