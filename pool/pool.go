// Package pool fans a task out into bounded, timeboxed sub-investigations.
//
// Information Hiding:
// - Admission gate and slot accounting hidden
// - Worker prompt construction hidden
// - Failure isolation internalized per worker
package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/richinex/stitch/llm"
	"github.com/richinex/stitch/model"
	"github.com/richinex/stitch/workspace"
)

// HardMaxTasks is the ceiling on tasks and concurrency per invocation.
const HardMaxTasks = 4

// Runner is the read-only tool surface exposed to workers. The dispatcher
// satisfies this, so workers reuse the same pipeline as the controller.
type Runner interface {
	Execute(ctx context.Context, call model.ToolCall) model.ToolResult
}

// Pool executes independent worker tasks with a concurrency cap and a
// per-worker timeout. One worker timing out or failing never cancels or
// blocks its siblings.
type Pool struct {
	provider      llm.Provider
	ws            *workspace.Workspace
	runner        Runner
	notifier      model.Notifier
	maxTasks      int
	concurrency   int
	workerTimeout time.Duration
	maxIterations int
}

// Option configures a Pool.
type Option func(*Pool)

// WithRunner lets workers issue read-only tool calls through the dispatcher.
func WithRunner(r Runner) Option {
	return func(p *Pool) { p.runner = r }
}

// WithNotifier wires progress notifications.
func WithNotifier(n model.Notifier) Option {
	return func(p *Pool) { p.notifier = n }
}

// WithLimits overrides the task cap, concurrency cap, and worker timeout.
// Both caps are clamped to HardMaxTasks.
func WithLimits(maxTasks, concurrency int, timeout time.Duration) Option {
	return func(p *Pool) {
		p.maxTasks = clamp(maxTasks)
		p.concurrency = clamp(concurrency)
		if timeout > 0 {
			p.workerTimeout = timeout
		}
	}
}

// New creates a worker pool backed by the given reasoning provider.
func New(provider llm.Provider, ws *workspace.Workspace, opts ...Option) *Pool {
	p := &Pool{
		provider:      provider,
		ws:            ws,
		notifier:      model.NopNotifier{},
		maxTasks:      HardMaxTasks,
		concurrency:   HardMaxTasks,
		workerTimeout: 2 * time.Minute,
		maxIterations: 8,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the given tasks and returns one result per task, in task
// order. Admission is a counting semaphore: at most the concurrency cap run
// simultaneously, and queued tasks acquire slots in arrival order.
func (p *Pool) Run(ctx context.Context, tasks []model.WorkerTask) ([]model.WorkerResult, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks given")
	}
	if len(tasks) > p.maxTasks {
		return nil, fmt.Errorf("too many tasks: %d (max %d)", len(tasks), p.maxTasks)
	}

	sem := semaphore.NewWeighted(int64(p.concurrency))
	results := make([]model.WorkerResult, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		started := time.Now()
		// Acquire before spawning so queued tasks are admitted in arrival
		// order instead of racing for slots from their goroutines.
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = failed(task.ID, fmt.Sprintf("cancelled while waiting for a slot: %v", err), started)
			p.notifier.WorkerProgress(task.ID, model.WorkerError)
			continue
		}

		wg.Add(1)
		go func(idx int, t model.WorkerTask, started time.Time) {
			defer wg.Done()
			defer sem.Release(1)

			p.notifier.WorkerProgress(t.ID, model.WorkerRunning)

			workerCtx, cancel := context.WithTimeout(ctx, p.workerTimeout)
			content, err := p.runWorker(workerCtx, t)
			cancel()

			elapsed := time.Since(started).Milliseconds()
			if err != nil {
				results[idx] = model.WorkerResult{ID: t.ID, Success: false, Content: err.Error(), ElapsedMs: elapsed}
				p.notifier.WorkerProgress(t.ID, model.WorkerError)
				return
			}
			results[idx] = model.WorkerResult{ID: t.ID, Success: true, Content: content, ElapsedMs: elapsed}
			p.notifier.WorkerProgress(t.ID, model.WorkerComplete)
		}(i, task, started)
	}
	wg.Wait()

	return results, nil
}

func failed(id, msg string, started time.Time) model.WorkerResult {
	return model.WorkerResult{
		ID:        id,
		Success:   false,
		Content:   msg,
		ElapsedMs: time.Since(started).Milliseconds(),
	}
}

// readOnlyTools is the capability subset workers may call.
var readOnlyTools = map[string]bool{
	"grep_files":      true,
	"find_files":      true,
	"semantic_search": true,
	"read_file":       true,
	"extract_region":  true,
	"list_files":      true,
}

// runWorker drives one sub-investigation: a minimal prompt, the scoped file
// list, and a short tool loop against the read-only capability subset.
func (p *Pool) runWorker(ctx context.Context, task model.WorkerTask) (string, error) {
	systemPrompt := "You are a focused sub-investigator. Complete ONE task and reply with a concise answer, not raw data."
	if p.runner != nil {
		systemPrompt += " You may use read-only tools: grep_files, find_files, semantic_search, read_file, extract_region, list_files."
	}

	instruction := task.Instruction
	if len(task.FileIDs) > 0 {
		var paths []string
		for _, id := range task.FileIDs {
			if fc, ok := p.ws.Resolve(id); ok {
				paths = append(paths, fc.Path)
			}
		}
		if len(paths) > 0 {
			instruction += "\n\nScope your investigation to these files:\n" + strings.Join(paths, "\n")
		}
	}

	messages := []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(instruction),
	}

	var tools []llm.ToolDefinition
	if p.runner != nil {
		tools = p.toolDefs()
	}

	for i := 0; i < p.maxIterations; i++ {
		if ctx.Err() != nil {
			return "", fmt.Errorf("worker timed out: %w", ctx.Err())
		}

		response, err := p.provider.CompleteWithTools(ctx, messages, tools)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("worker timed out: %w", ctx.Err())
			}
			return "", fmt.Errorf("reasoning backend failed: %w", err)
		}

		if len(response.ToolCalls) == 0 {
			if response.Content == "" {
				return "(worker returned an empty answer)", nil
			}
			return response.Content, nil
		}

		messages = append(messages, llm.ChatMessage{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, tc := range response.ToolCalls {
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				Content:    p.runToolCall(ctx, tc),
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("worker reached max iterations without an answer")
}

// runToolCall executes one worker-issued call, restricted to read-only tools.
func (p *Pool) runToolCall(ctx context.Context, tc llm.ToolCall) string {
	if p.runner == nil {
		return "Error: tools are not available to workers in this session"
	}
	if !readOnlyTools[tc.Name] {
		return fmt.Sprintf("Error: tool %q is not available to workers (read-only tools only)", tc.Name)
	}

	input, err := llm.DecodeArguments(tc.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: invalid tool arguments: %v", err)
	}

	result := p.runner.Execute(ctx, model.ToolCall{ID: tc.ID, Name: tc.Name, Input: input})
	if result.Content == "" {
		return "(empty result)"
	}
	return result.Content
}

// toolDefs advertises the read-only subset to the worker's provider.
func (p *Pool) toolDefs() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "grep_files",
			Description: "Search file content for a regular expression, optionally scoped by a path filter.",
			Parameters:  llm.ObjectSchema(map[string]string{"pattern": "string", "path_filter": "string"}, []string{"pattern"}),
		},
		{
			Name:        "find_files",
			Description: "Find files whose paths match a glob pattern.",
			Parameters:  llm.ObjectSchema(map[string]string{"pattern": "string"}, []string{"pattern"}),
		},
		{
			Name:        "semantic_search",
			Description: "Find the files most relevant to a natural-language query.",
			Parameters:  llm.ObjectSchema(map[string]string{"query": "string"}, []string{"query"}),
		},
		{
			Name:        "read_file",
			Description: "Read a file's content with line numbers.",
			Parameters:  llm.ObjectSchema(map[string]string{"path": "string"}, []string{"path"}),
		},
		{
			Name:        "extract_region",
			Description: "Extract the block of a file that matches a symbolic hint.",
			Parameters:  llm.ObjectSchema(map[string]string{"path": "string", "hint": "string"}, []string{"path", "hint"}),
		},
		{
			Name:        "list_files",
			Description: "List every file in the working set.",
			Parameters:  llm.ObjectSchema(nil, nil),
		},
	}
}

// Report renders all worker outcomes as one labeled report; nothing is
// silently dropped.
func Report(tasks []model.WorkerTask, results []model.WorkerResult) string {
	var b strings.Builder
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	fmt.Fprintf(&b, "Ran %d worker(s): %d succeeded, %d failed.\n\n", len(results), succeeded, len(results)-succeeded)

	for i, r := range results {
		label := "OK"
		if !r.Success {
			label = "FAILED"
		}
		instruction := ""
		if i < len(tasks) {
			instruction = tasks[i].Instruction
		}
		fmt.Fprintf(&b, "--- worker %d [%s, %dms] %s\n%s\n\n", i+1, label, r.ElapsedMs, instruction, r.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > HardMaxTasks {
		return HardMaxTasks
	}
	return n
}
