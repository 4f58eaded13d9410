// Command execution for CLI commands.
//
// Information Hiding:
// - Session assembly (storage, workspace, engines, dispatcher, pool) hidden
// - Agent loop and output formatting hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/richinex/stitch/config"
	"github.com/richinex/stitch/dispatch"
	"github.com/richinex/stitch/edit"
	ijson "github.com/richinex/stitch/internal/json"
	"github.com/richinex/stitch/llm"
	"github.com/richinex/stitch/model"
	"github.com/richinex/stitch/pool"
	"github.com/richinex/stitch/search"
	"github.com/richinex/stitch/storage"
	"github.com/richinex/stitch/workspace"
)

// defaultDBPath is the project database path.
const defaultDBPath = ".stitch/stitch.db"

// Options holds CLI execution options.
type Options struct {
	Provider string
	DBPath   string
	MaxIter  int
	Verbose  bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		DBPath:  defaultDBPath,
		MaxIter: 20,
	}
}

// Session wires the full runtime for one interactive or one-shot run: the
// SQLite store, the workspace over it, the search and edit engines, the
// capability registry with its dispatcher, and the worker pool routing back
// through the dispatcher.
type Session struct {
	settings   config.Settings
	provider   llm.Provider
	store      *storage.SqliteStore
	ws         *workspace.Workspace
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	verbose    bool
}

// NewSession assembles a session against the database at opts.DBPath.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Provider == "" {
		return nil, fmt.Errorf("--provider is required for this command")
	}

	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(settings)
	if err != nil {
		return nil, err
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ws := workspace.New(store, store)
	files, err := store.ListFiles(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	for _, fc := range files {
		ws.Add(fc)
	}

	synonyms := config.DefaultSynonyms()
	if settings.Search.SynonymPath != "" {
		synonyms, err = config.LoadSynonyms(settings.Search.SynonymPath)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	var embedder search.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedder = llm.NewOpenAIEmbedder(key)
	}

	searcher := search.NewEngine(ws, synonyms, settings.Search, embedder)
	edits := edit.NewEngine(ws, settings.Edit)

	registry, err := dispatch.WithDefaults(ws, searcher, edits, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	dispatcher := dispatch.NewDispatcher(registry)

	workers := pool.New(provider, ws,
		pool.WithRunner(dispatcher),
		pool.WithNotifier(&progressPrinter{verbose: opts.Verbose}),
		pool.WithLimits(settings.Pool.MaxTasks, settings.Pool.MaxConcurrency, settings.Pool.WorkerTimeout),
	)
	if err := registry.Register(dispatch.NewDelegateCapability(workers)); err != nil {
		store.Close()
		return nil, err
	}

	return &Session{
		settings:   settings,
		provider:   provider,
		store:      store,
		ws:         ws,
		registry:   registry,
		dispatcher: dispatcher,
		verbose:    opts.Verbose,
	}, nil
}

// Close releases the session's database.
func (s *Session) Close() error {
	return s.store.Close()
}

// progressPrinter reports worker pool progress to stderr.
type progressPrinter struct {
	verbose bool
}

func (p *progressPrinter) WorkerProgress(taskID string, status model.WorkerStatus) {
	if p.verbose {
		fmt.Fprintf(os.Stderr, "[pool] %s: %s\n", taskID, status)
	}
}

// LoadTheme ingests a project directory into the database and workspace.
func LoadTheme(ctx context.Context, dir string, opts Options) error {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	files, err := store.LoadDirectory(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d file(s) from %s into %s\n", len(files), dir, dbPath)
	return nil
}

// RunTask executes a single task through the agent loop.
func RunTask(ctx context.Context, task string, opts Options) error {
	session, err := NewSession(ctx, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Running task with %s (%s)...\n\n", session.provider.Name(), session.provider.Model())

	answer, err := session.run(ctx, task, opts.MaxIter)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", answer)
	return nil
}

// Chat starts an interactive session.
func Chat(ctx context.Context, opts Options) error {
	session, err := NewSession(ctx, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Chat with %s (%s). %d files in the working set. Type 'exit' to quit.\n\n",
		session.provider.Name(), session.provider.Model(), session.ws.Size())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		answer, err := session.run(ctx, input, opts.MaxIter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", answer)
	}

	return scanner.Err()
}

// run drives the tool loop until the provider answers without tool calls or
// the iteration cap is hit.
func (s *Session) run(ctx context.Context, task string, maxIter int) (string, error) {
	if maxIter <= 0 {
		maxIter = DefaultOptions().MaxIter
	}

	messages := []llm.ChatMessage{
		llm.SystemMessage(s.systemPrompt()),
		llm.UserMessage(task),
	}
	defs := s.registry.Definitions()

	for i := 0; i < maxIter; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		completion, err := s.provider.CompleteWithTools(ctx, messages, defs)
		if err != nil {
			return "", fmt.Errorf("LLM call failed: %w", err)
		}

		toolCalls := completion.ToolCalls
		if len(toolCalls) == 0 {
			// Some models narrate a call as prose-embedded JSON instead of
			// using the tool channel; salvage it before giving up.
			if salvaged, ok := salvageToolCall(completion.Content, i); ok {
				toolCalls = []llm.ToolCall{salvaged}
			} else {
				return completion.Content, nil
			}
		}

		messages = append(messages, llm.ChatMessage{
			Role:      "assistant",
			Content:   completion.Content,
			ToolCalls: toolCalls,
		})

		for _, tc := range toolCalls {
			if s.verbose {
				args := string(tc.Arguments)
				if len(args) > 120 {
					args = args[:120] + "..."
				}
				fmt.Fprintf(os.Stderr, "[%d] %s(%s)\n", i, tc.Name, args)
			}

			result := s.execute(ctx, tc)
			content := result.Content
			if content == "" {
				content = "(empty result)"
			}
			messages = append(messages, llm.ToolMessage(tc.ID, content))
		}
	}

	return "", fmt.Errorf("reached max iterations without completing")
}

// execute converts a provider tool call into a dispatch call and runs it.
func (s *Session) execute(ctx context.Context, tc llm.ToolCall) model.ToolResult {
	input, err := llm.DecodeArguments(tc.Arguments)
	if err != nil {
		return model.ErrorResult(tc.ID, fmt.Sprintf("malformed arguments for %s: %v", tc.Name, err))
	}
	return s.dispatcher.Execute(ctx, model.ToolCall{ID: tc.ID, Name: tc.Name, Input: input})
}

// salvageToolCall recovers a tool call that arrived as JSON inside prose.
func salvageToolCall(content string, iteration int) (llm.ToolCall, bool) {
	var parsed struct {
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	}
	if err := ijson.ExtractInto(content, &parsed); err != nil || parsed.Name == "" {
		return llm.ToolCall{}, false
	}
	args, err := json.Marshal(parsed.Input)
	if err != nil {
		return llm.ToolCall{}, false
	}
	return llm.ToolCall{
		ID:        fmt.Sprintf("salvaged-%d", iteration),
		Name:      parsed.Name,
		Arguments: args,
	}, true
}

func (s *Session) systemPrompt() string {
	return fmt.Sprintf(`You are a storefront theme assistant working on a Liquid theme project.

The project's files live in a persistent working set. Use the tools to find, read and change them; never guess at file content you have not read.

## Guidance

- Start broad: list_files or find_files to see what exists, semantic_search when you only know what the code does, grep_files when you know what it says.
- read_file or extract_region before editing. extract_region is cheaper when you only need one block.
- Prefer replace_in_file for edits; write_file only for new files or full rewrites.
- delegate fans independent read-only investigations out in parallel; use it when several files need separate analysis.

## Tools

%s`, s.registry.Description())
}

// ListCapabilities prints the registered capability set.
func ListCapabilities(verbose bool) error {
	ws := workspace.New(nil, nil)
	settings, err := config.New("openai")
	if err != nil {
		return err
	}
	searcher := search.NewEngine(ws, config.DefaultSynonyms(), settings.Search, nil)
	edits := edit.NewEngine(ws, settings.Edit)

	registry, err := dispatch.WithDefaults(ws, searcher, edits, nil)
	if err != nil {
		return err
	}

	fmt.Println("Available tools:")
	fmt.Println()
	for _, meta := range registry.List() {
		fmt.Printf("  %s\n", meta.Name)
		fmt.Printf("    %s\n", meta.Description)
		if verbose && len(meta.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Printf("      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Println()
	}
	return nil
}
