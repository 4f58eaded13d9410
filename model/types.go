// Package model provides domain types shared across packages.
package model

import "context"

// StubContent is the placeholder stored in FileContext.Content before a file
// has been hydrated from persistence. Matching and search routines must never
// treat it as real content.
const StubContent = "[content not loaded]"

// ToolCall is a structured request from the controlling reasoning process.
// Immutable once created; consumed exactly once by the dispatcher.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// String returns a value from Input as a string, or "" if absent.
func (c ToolCall) String(key string) string {
	v, ok := c.Input[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Bool returns a value from Input as a bool, or false if absent.
func (c ToolCall) Bool(key string) bool {
	v, ok := c.Input[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Int returns a value from Input as an int, or def if absent or not numeric.
// JSON numbers decode as float64, so both are accepted.
func (c ToolCall) Int(key string, def int) int {
	v, ok := c.Input[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// ToolResult is the uniform envelope returned for every tool call.
// Terminal: never mutated after return.
type ToolResult struct {
	ToolUseID string   `json:"tool_use_id"`
	Content   string   `json:"content"`
	IsError   bool     `json:"is_error"`
	FileIDs   []string `json:"file_ids,omitempty"` // files touched or matched, for the caller's working set
}

// OkResult creates a successful result echoing the call's id.
func OkResult(callID, content string) ToolResult {
	return ToolResult{ToolUseID: callID, Content: content}
}

// ErrorResult creates an error result echoing the call's id.
func ErrorResult(callID, content string) ToolResult {
	return ToolResult{ToolUseID: callID, Content: content, IsError: true}
}

// FileContext is one entry in the in-memory working set.
type FileContext struct {
	FileID   string `json:"file_id"`
	Path     string `json:"path"`
	FileType string `json:"file_type"`
	Content  string `json:"content"`
}

// IsStub reports whether the content has not yet been hydrated.
func (f *FileContext) IsStub() bool {
	return f.Content == StubContent
}

// SearchMatch is a single line-level hit from pattern search.
type SearchMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"` // 1-based
	Content string `json:"content"`
}

// HitSource records which retrieval signal produced a semantic hit.
type HitSource string

const (
	SourceLexical HitSource = "lexical"
	SourceVector  HitSource = "vector"
	SourceHybrid  HitSource = "hybrid"
)

// SemanticHit is a ranked result from hybrid semantic search.
type SemanticHit struct {
	FileID   string    `json:"file_id"`
	FileName string    `json:"file_name"`
	Score    float64   `json:"score"`
	Source   HitSource `json:"source"`
	Excerpt  string    `json:"excerpt,omitempty"`
}

// WorkerTask is one independent sub-investigation for the worker pool.
type WorkerTask struct {
	ID          string   `json:"id"`
	Instruction string   `json:"instruction"`
	FileIDs     []string `json:"file_ids,omitempty"`
}

// WorkerResult is the outcome of one worker task.
type WorkerResult struct {
	ID        string `json:"id"`
	Success   bool   `json:"success"`
	Content   string `json:"content"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// ContentProvider hydrates file content on demand. Implementations fail
// silently into "stub remains" rather than raising; callers must check
// IsStub before treating content as real.
type ContentProvider interface {
	Hydrate(ctx context.Context, fileIDs []string) []FileContext
}

// Persistence is the durable store behind the working set. An error from it
// must surface as an error ToolResult, never as a partial success.
type Persistence interface {
	WriteContent(ctx context.Context, fileID, newContent string) error
	Delete(ctx context.Context, fileID string) error
	Rename(ctx context.Context, fileID, newPath string) error
}

// WorkerStatus describes a worker pool progress event.
type WorkerStatus string

const (
	WorkerRunning  WorkerStatus = "running"
	WorkerComplete WorkerStatus = "complete"
	WorkerError    WorkerStatus = "error"
)

// Notifier receives progress events as pool activity changes.
// Implementations must be safe for concurrent use.
type Notifier interface {
	WorkerProgress(taskID string, status WorkerStatus)
}

// NopNotifier discards all progress events.
type NopNotifier struct{}

// WorkerProgress implements Notifier.
func (NopNotifier) WorkerProgress(string, WorkerStatus) {}
