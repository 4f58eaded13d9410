// Dispatcher: the single entry point for executing tool calls.
//
// Information Hiding:
// - Panic containment hidden from capability authors
// - Output bounding policy hidden from callers

package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/richinex/stitch/model"
)

// DefaultMaxOutput bounds the content of any single tool result.
const DefaultMaxOutput = 32 * 1024

// Dispatcher routes tool calls to registered capabilities. Every call gets
// exactly one result: unknown names, validation failures and handler panics
// all come back as error results carrying the call's id.
type Dispatcher struct {
	registry  *Registry
	maxOutput int
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, maxOutput: DefaultMaxOutput}
}

// Execute runs one tool call to completion.
func (d *Dispatcher) Execute(ctx context.Context, call model.ToolCall) (result model.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			debug.PrintStack()
			result = model.ErrorResult(call.ID, fmt.Sprintf("tool %s failed unexpectedly: %v", call.Name, r))
		}
	}()

	capability, ok := d.registry.Get(call.Name)
	if !ok {
		return model.ErrorResult(call.ID, fmt.Sprintf(
			"unknown tool %q; available tools: %s", call.Name, strings.Join(d.registry.Names(), ", ")))
	}

	if err := capability.Validate(call); err != nil {
		return model.ErrorResult(call.ID, fmt.Sprintf("invalid input for %s: %v", call.Name, err))
	}

	result = capability.Execute(ctx, call)
	result.ToolUseID = call.ID
	return d.bound(result)
}

// bound truncates oversized result content with an explicit marker so the
// caller knows output was cut rather than complete.
func (d *Dispatcher) bound(result model.ToolResult) model.ToolResult {
	if len(result.Content) <= d.maxOutput {
		return result
	}
	omitted := len(result.Content) - d.maxOutput
	result.Content = result.Content[:d.maxOutput] +
		fmt.Sprintf("\n[truncated: %d further bytes omitted by output budget]", omitted)
	return result
}
