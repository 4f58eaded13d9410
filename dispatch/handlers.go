// Capability handlers binding the search, edit, workspace and pool engines.

package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/stitch/edit"
	"github.com/richinex/stitch/model"
	"github.com/richinex/stitch/pool"
	"github.com/richinex/stitch/search"
	"github.com/richinex/stitch/workspace"
)

// FileCreator adds a brand-new file to persistence. The sqlite store
// implements it; write_file falls back to it when the target path is not in
// the working set yet.
type FileCreator interface {
	CreateFile(ctx context.Context, path, content string) (model.FileContext, error)
}

// GrepFilesCapability searches file content by regex with scope widening.
type GrepFilesCapability struct {
	BaseCapability
	engine *search.Engine
}

// NewGrepFilesCapability creates the grep_files capability.
func NewGrepFilesCapability(engine *search.Engine) *GrepFilesCapability {
	return &GrepFilesCapability{engine: engine}
}

func (c *GrepFilesCapability) Metadata() Metadata {
	return Metadata{
		Name:        "grep_files",
		Description: "Search file content with a regular expression. Scoped searches that match nothing are automatically widened before giving up.",
		Parameters: []Parameter{
			{Name: "pattern", ParamType: "string", Description: "Regular expression to search for", Required: true},
			{Name: "path_filter", ParamType: "string", Description: "Limit the search to paths matching this filter (directory, extension, or name fragment)", Required: false},
		},
	}
}

func (c *GrepFilesCapability) Validate(call model.ToolCall) error {
	_, err := requireString(call, "pattern")
	return err
}

func (c *GrepFilesCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	pattern := call.String("pattern")
	outcome, err := c.engine.Grep(ctx, pattern, call.String("path_filter"))
	if err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	result := model.OkResult(call.ID, c.engine.Format(outcome, pattern))
	result.FileIDs = outcome.FileIDs
	return result
}

// FindFilesCapability matches file paths by glob-style pattern.
type FindFilesCapability struct {
	BaseCapability
	engine *search.Engine
}

// NewFindFilesCapability creates the find_files capability.
func NewFindFilesCapability(engine *search.Engine) *FindFilesCapability {
	return &FindFilesCapability{engine: engine}
}

func (c *FindFilesCapability) Metadata() Metadata {
	return Metadata{
		Name:        "find_files",
		Description: "Find files by name or glob pattern (e.g. 'sections/*.liquid', '**/*.css', 'cart'). Widens by synonym, extension, and directory when nothing matches.",
		Parameters: []Parameter{
			{Name: "pattern", ParamType: "string", Description: "Glob pattern or name fragment to match against paths", Required: true},
		},
	}
}

func (c *FindFilesCapability) Validate(call model.ToolCall) error {
	_, err := requireString(call, "pattern")
	return err
}

func (c *FindFilesCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	pattern := call.String("pattern")
	outcome := c.engine.Paths(pattern)
	result := model.OkResult(call.ID, c.engine.FormatPaths(outcome, pattern))
	result.FileIDs = outcome.FileIDs
	return result
}

// SemanticSearchCapability ranks files against a free-text query.
type SemanticSearchCapability struct {
	BaseCapability
	engine *search.Engine
}

// NewSemanticSearchCapability creates the semantic_search capability.
func NewSemanticSearchCapability(engine *search.Engine) *SemanticSearchCapability {
	return &SemanticSearchCapability{engine: engine}
}

func (c *SemanticSearchCapability) Metadata() Metadata {
	return Metadata{
		Name:        "semantic_search",
		Description: "Find the files most relevant to a free-text description of functionality, even when the wording differs from the code.",
		Parameters: []Parameter{
			{Name: "query", ParamType: "string", Description: "What you are looking for, in plain language", Required: true},
			{Name: "limit", ParamType: "integer", Description: "Maximum number of files to return (default 5)", Required: false},
		},
	}
}

func (c *SemanticSearchCapability) Validate(call model.ToolCall) error {
	_, err := requireString(call, "query")
	return err
}

func (c *SemanticSearchCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	query := call.String("query")
	hits := c.engine.Semantic(ctx, query, call.Int("limit", 5))
	result := model.OkResult(call.ID, c.engine.FormatSemantic(hits, query))
	for _, h := range hits {
		result.FileIDs = append(result.FileIDs, h.FileID)
	}
	return result
}

// ReadFileCapability returns hydrated, line-numbered file content.
type ReadFileCapability struct {
	BaseCapability
	ws *workspace.Workspace
}

// NewReadFileCapability creates the read_file capability.
func NewReadFileCapability(ws *workspace.Workspace) *ReadFileCapability {
	return &ReadFileCapability{ws: ws}
}

func (c *ReadFileCapability) Metadata() Metadata {
	return Metadata{
		Name:        "read_file",
		Description: "Read a file's full content with line numbers.",
		Parameters: []Parameter{
			{Name: "path", ParamType: "string", Description: "File path or file id", Required: true},
		},
	}
}

func (c *ReadFileCapability) Validate(call model.ToolCall) error {
	_, err := requireString(call, "path")
	return err
}

func (c *ReadFileCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	ref := call.String("path")
	fc, ok := c.ws.Resolve(ref)
	if !ok {
		return model.ErrorResult(call.ID, fmt.Sprintf("file not found in working set: %s", ref))
	}
	content, err := c.ws.Content(ctx, fc.FileID)
	if err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", fc.Path)
	for i, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
	}
	result := model.OkResult(call.ID, strings.TrimRight(b.String(), "\n"))
	result.FileIDs = []string{fc.FileID}
	return result
}

// WriteFileCapability writes full file content, guarded against destructive
// overwrites, and creates the file when it does not exist yet.
type WriteFileCapability struct {
	BaseCapability
	ws      *workspace.Workspace
	edits   *edit.Engine
	creator FileCreator
}

// NewWriteFileCapability creates the write_file capability. creator may be
// nil, in which case writes to unknown paths fail.
func NewWriteFileCapability(ws *workspace.Workspace, edits *edit.Engine, creator FileCreator) *WriteFileCapability {
	return &WriteFileCapability{ws: ws, edits: edits, creator: creator}
}

func (c *WriteFileCapability) Metadata() Metadata {
	return Metadata{
		Name:        "write_file",
		Description: "Write complete file content, creating the file if needed. Prefer replace_in_file for targeted edits; large reductions of existing files are refused.",
		Parameters: []Parameter{
			{Name: "path", ParamType: "string", Description: "File path to write", Required: true},
			{Name: "content", ParamType: "string", Description: "The full new content", Required: true},
		},
	}
}

func (c *WriteFileCapability) Validate(call model.ToolCall) error {
	if _, err := requireString(call, "path"); err != nil {
		return err
	}
	if _, ok := call.Input["content"]; !ok {
		return fmt.Errorf("missing required parameter %q", "content")
	}
	return nil
}

func (c *WriteFileCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	path := call.String("path")
	content := call.String("content")

	if fc, ok := c.ws.Resolve(path); ok {
		msg, err := c.edits.Overwrite(ctx, fc.FileID, content)
		if err != nil {
			return model.ErrorResult(call.ID, err.Error())
		}
		result := model.OkResult(call.ID, msg)
		result.FileIDs = []string{fc.FileID}
		return result
	}

	if c.creator == nil {
		return model.ErrorResult(call.ID, fmt.Sprintf("file not found in working set: %s", path))
	}
	fc, err := c.creator.CreateFile(ctx, path, content)
	if err != nil {
		return model.ErrorResult(call.ID, fmt.Sprintf("create failed: %v", err))
	}
	c.ws.Add(fc)
	result := model.OkResult(call.ID, fmt.Sprintf("Created %s (%d bytes).", fc.Path, len(content)))
	result.FileIDs = []string{fc.FileID}
	return result
}

// ListFilesCapability lists working-set paths, optionally under a prefix.
type ListFilesCapability struct {
	BaseCapability
	ws *workspace.Workspace
}

// NewListFilesCapability creates the list_files capability.
func NewListFilesCapability(ws *workspace.Workspace) *ListFilesCapability {
	return &ListFilesCapability{ws: ws}
}

func (c *ListFilesCapability) Metadata() Metadata {
	return Metadata{
		Name:        "list_files",
		Description: "List all files in the project, optionally restricted to a directory.",
		Parameters: []Parameter{
			{Name: "directory", ParamType: "string", Description: "Directory prefix to list (e.g. 'sections/')", Required: false},
		},
	}
}

func (c *ListFilesCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	dir := call.String("directory")
	var paths []string
	if dir != "" {
		paths = c.ws.PathsWithPrefix(dir)
	} else {
		paths = c.ws.Paths()
	}
	if len(paths) == 0 {
		if dir != "" {
			return model.OkResult(call.ID, fmt.Sprintf("No files under %q.", dir))
		}
		return model.OkResult(call.ID, "The project is empty.")
	}
	return model.OkResult(call.ID, fmt.Sprintf("%d file(s):\n%s", len(paths), strings.Join(paths, "\n")))
}

// ReplaceInFileCapability applies a targeted find/replace edit.
type ReplaceInFileCapability struct {
	BaseCapability
	edits *edit.Engine
}

// NewReplaceInFileCapability creates the replace_in_file capability.
func NewReplaceInFileCapability(edits *edit.Engine) *ReplaceInFileCapability {
	return &ReplaceInFileCapability{edits: edits}
}

func (c *ReplaceInFileCapability) Metadata() Metadata {
	return Metadata{
		Name:        "replace_in_file",
		Description: "Replace old_text with new_text in a file. Tolerates whitespace and small wording drift in old_text. Use near_line to disambiguate repeated text.",
		Parameters: []Parameter{
			{Name: "path", ParamType: "string", Description: "File path or file id", Required: true},
			{Name: "old_text", ParamType: "string", Description: "The text to replace, ideally copied from a recent read", Required: true},
			{Name: "new_text", ParamType: "string", Description: "The replacement text", Required: true},
			{Name: "replace_all", ParamType: "boolean", Description: "Replace every occurrence instead of just the first", Required: false},
			{Name: "near_line", ParamType: "integer", Description: "1-based line number near the intended occurrence", Required: false},
		},
	}
}

func (c *ReplaceInFileCapability) Validate(call model.ToolCall) error {
	if _, err := requireString(call, "path"); err != nil {
		return err
	}
	if _, err := requireString(call, "old_text"); err != nil {
		return err
	}
	if _, ok := call.Input["new_text"]; !ok {
		return fmt.Errorf("missing required parameter %q", "new_text")
	}
	return nil
}

func (c *ReplaceInFileCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	_, msg, err := c.edits.Replace(ctx,
		call.String("path"),
		call.String("old_text"),
		call.String("new_text"),
		call.Bool("replace_all"),
		call.Int("near_line", 0),
	)
	if err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	return model.OkResult(call.ID, msg)
}

// ExtractRegionCapability pulls the most relevant block for a hint.
type ExtractRegionCapability struct {
	BaseCapability
	edits *edit.Engine
}

// NewExtractRegionCapability creates the extract_region capability.
func NewExtractRegionCapability(edits *edit.Engine) *ExtractRegionCapability {
	return &ExtractRegionCapability{edits: edits}
}

func (c *ExtractRegionCapability) Metadata() Metadata {
	return Metadata{
		Name:        "extract_region",
		Description: "Extract the code block most relevant to a hint (a declaration name, a snippet, or a description) without reading the whole file.",
		Parameters: []Parameter{
			{Name: "path", ParamType: "string", Description: "File path or file id", Required: true},
			{Name: "hint", ParamType: "string", Description: "Declaration name, code fragment, or description of the block", Required: true},
		},
	}
}

func (c *ExtractRegionCapability) Validate(call model.ToolCall) error {
	if _, err := requireString(call, "path"); err != nil {
		return err
	}
	_, err := requireString(call, "hint")
	return err
}

func (c *ExtractRegionCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	region, err := c.edits.ExtractRegion(ctx, call.String("path"), call.String("hint"))
	if err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	if region.MatchType == edit.MatchNone {
		return model.OkResult(call.ID, fmt.Sprintf(
			"No region matched %q. Try a declaration name or a fragment copied from the file.", call.String("hint")))
	}
	return model.OkResult(call.ID, fmt.Sprintf("Matched via %s (lines %d-%d):\n%s",
		region.MatchType, region.StartLine, region.EndLine, region.Snippet))
}

// DeleteFileCapability removes a file from persistence and the working set.
type DeleteFileCapability struct {
	BaseCapability
	ws *workspace.Workspace
}

// NewDeleteFileCapability creates the delete_file capability.
func NewDeleteFileCapability(ws *workspace.Workspace) *DeleteFileCapability {
	return &DeleteFileCapability{ws: ws}
}

func (c *DeleteFileCapability) Metadata() Metadata {
	return Metadata{
		Name:        "delete_file",
		Description: "Delete a file from the project.",
		Parameters: []Parameter{
			{Name: "path", ParamType: "string", Description: "File path or file id", Required: true},
		},
	}
}

func (c *DeleteFileCapability) Validate(call model.ToolCall) error {
	_, err := requireString(call, "path")
	return err
}

func (c *DeleteFileCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	ref := call.String("path")
	fc, ok := c.ws.Resolve(ref)
	if !ok {
		return model.ErrorResult(call.ID, fmt.Sprintf("file not found in working set: %s", ref))
	}
	if err := c.ws.Remove(ctx, fc.FileID); err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	return model.OkResult(call.ID, fmt.Sprintf("Deleted %s.", fc.Path))
}

// RenameFileCapability moves a file to a new path.
type RenameFileCapability struct {
	BaseCapability
	ws *workspace.Workspace
}

// NewRenameFileCapability creates the rename_file capability.
func NewRenameFileCapability(ws *workspace.Workspace) *RenameFileCapability {
	return &RenameFileCapability{ws: ws}
}

func (c *RenameFileCapability) Metadata() Metadata {
	return Metadata{
		Name:        "rename_file",
		Description: "Move or rename a file within the project.",
		Parameters: []Parameter{
			{Name: "path", ParamType: "string", Description: "Current file path or file id", Required: true},
			{Name: "new_path", ParamType: "string", Description: "The new path", Required: true},
		},
	}
}

func (c *RenameFileCapability) Validate(call model.ToolCall) error {
	if _, err := requireString(call, "path"); err != nil {
		return err
	}
	_, err := requireString(call, "new_path")
	return err
}

func (c *RenameFileCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	ref := call.String("path")
	newPath := call.String("new_path")
	fc, ok := c.ws.Resolve(ref)
	if !ok {
		return model.ErrorResult(call.ID, fmt.Sprintf("file not found in working set: %s", ref))
	}
	if err := c.ws.Rename(ctx, fc.FileID, newPath); err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	return model.OkResult(call.ID, fmt.Sprintf("Renamed %s to %s.", fc.Path, newPath))
}

// DelegateCapability fans independent read-only investigations out to the
// worker pool.
type DelegateCapability struct {
	BaseCapability
	pool *pool.Pool
}

// NewDelegateCapability creates the delegate capability.
func NewDelegateCapability(p *pool.Pool) *DelegateCapability {
	return &DelegateCapability{pool: p}
}

func (c *DelegateCapability) Metadata() Metadata {
	return Metadata{
		Name:        "delegate",
		Description: fmt.Sprintf("Run up to %d independent read-only investigations in parallel and collect their findings. Each task gets its own worker with search and read tools.", pool.HardMaxTasks),
		Parameters: []Parameter{
			{Name: "tasks", ParamType: "array", Description: "Tasks, each an object with 'instruction' (required) and optional 'file_ids'", Required: true},
		},
	}
}

func (c *DelegateCapability) Validate(call model.ToolCall) error {
	tasks, err := parseTasks(call)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("tasks cannot be empty")
	}
	if len(tasks) > pool.HardMaxTasks {
		return fmt.Errorf("too many tasks: %d (maximum %d)", len(tasks), pool.HardMaxTasks)
	}
	return nil
}

func (c *DelegateCapability) Execute(ctx context.Context, call model.ToolCall) model.ToolResult {
	tasks, err := parseTasks(call)
	if err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	results, err := c.pool.Run(ctx, tasks)
	if err != nil {
		return model.ErrorResult(call.ID, err.Error())
	}
	return model.OkResult(call.ID, pool.Report(tasks, results))
}

// WithDefaults creates a registry with the standard capability set. The
// delegate capability is registered separately once the worker pool exists,
// since the pool routes its tool calls back through the dispatcher.
func WithDefaults(ws *workspace.Workspace, searcher *search.Engine, edits *edit.Engine, creator FileCreator) (*Registry, error) {
	registry := NewRegistry()

	capabilities := []Capability{
		NewGrepFilesCapability(searcher),
		NewFindFilesCapability(searcher),
		NewSemanticSearchCapability(searcher),
		NewReadFileCapability(ws),
		NewWriteFileCapability(ws, edits, creator),
		NewListFilesCapability(ws),
		NewReplaceInFileCapability(edits),
		NewExtractRegionCapability(edits),
		NewDeleteFileCapability(ws),
		NewRenameFileCapability(ws),
	}

	for _, c := range capabilities {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register default capabilities: %w", err)
		}
	}

	return registry, nil
}

// parseTasks decodes the delegate task list from generic JSON input.
func parseTasks(call model.ToolCall) ([]model.WorkerTask, error) {
	raw, ok := call.Input["tasks"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q (array of task objects)", "tasks")
	}

	tasks := make([]model.WorkerTask, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("task %d is not an object", i+1)
		}
		instruction, _ := obj["instruction"].(string)
		if strings.TrimSpace(instruction) == "" {
			return nil, fmt.Errorf("task %d is missing an instruction", i+1)
		}
		task := model.WorkerTask{
			ID:          fmt.Sprintf("task-%d", i+1),
			Instruction: instruction,
		}
		if id, _ := obj["id"].(string); id != "" {
			task.ID = id
		}
		if ids, ok := obj["file_ids"].([]interface{}); ok {
			for _, v := range ids {
				if s, _ := v.(string); s != "" {
					task.FileIDs = append(task.FileIDs, s)
				}
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
