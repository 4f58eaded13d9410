// LLM Provider interface - the abstract interface for reasoning backends.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for reasoning backends.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends a completion request.
	Complete(ctx context.Context, messages []ChatMessage) (Completion, error)

	// CompleteWithTools sends a completion request with tool definitions.
	// The model may respond with tool calls in Completion.ToolCalls.
	CompleteWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Completion, error)
}
