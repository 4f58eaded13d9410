// Package workspace maintains the in-memory working set of project files.
//
// Information Hiding:
// - Map storage and path index structure hidden from users
// - Thread-safe access via RWMutex hidden behind methods
// - Hydration and write-through ordering internalized
package workspace

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/richinex/stitch/internal/dsa"
	"github.com/richinex/stitch/model"
)

// Workspace is the session-scoped set of FileContext entries. Entries persist
// for the life of the session; content starts as a stub and is hydrated on
// demand. A successful persistence write updates the in-memory copy before
// returning, so later reads in the same turn see fresh content.
type Workspace struct {
	mu        sync.RWMutex
	files     map[string]*model.FileContext
	pathIndex *dsa.PathIndex[string] // path -> fileID
	provider  model.ContentProvider
	store     model.Persistence
	onChange  func(fileID string)
}

// New creates an empty workspace backed by the given collaborators.
// provider may be nil, in which case stubs are never hydrated.
func New(provider model.ContentProvider, store model.Persistence) *Workspace {
	return &Workspace{
		files:     make(map[string]*model.FileContext),
		pathIndex: dsa.NewPathIndex[string](),
		provider:  provider,
		store:     store,
	}
}

// SetChangeHook registers fn to run after a file's content or identity
// changes through ApplyWrite, Remove, or Rename. Callers use it to drop
// caches keyed by file id.
func (w *Workspace) SetChangeHook(fn func(fileID string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

func (w *Workspace) notifyChange(fileID string) {
	w.mu.RLock()
	fn := w.onChange
	w.mu.RUnlock()
	if fn != nil {
		fn(fileID)
	}
}

// Add registers a file in the working set. An empty Content becomes a stub.
func (w *Workspace) Add(fc model.FileContext) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if fc.Content == "" {
		fc.Content = model.StubContent
	}
	if fc.FileType == "" {
		fc.FileType = FileTypeOf(fc.Path)
	}
	copied := fc
	w.files[fc.FileID] = &copied
	w.pathIndex.Insert(fc.Path, fc.FileID)
}

// Get returns a copy of the file entry for fileID.
func (w *Workspace) Get(fileID string) (model.FileContext, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	fc, ok := w.files[fileID]
	if !ok {
		return model.FileContext{}, false
	}
	return *fc, true
}

// Resolve maps a path or fileID to a file entry. Paths win over ids.
func (w *Workspace) Resolve(ref string) (model.FileContext, bool) {
	w.mu.RLock()
	if id, ok := w.pathIndex.Get(ref); ok {
		fc, found := w.files[id]
		if found {
			out := *fc
			w.mu.RUnlock()
			return out, true
		}
	}
	w.mu.RUnlock()
	return w.Get(ref)
}

// Files returns copies of all entries sorted by path.
func (w *Workspace) Files() []model.FileContext {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.FileContext, 0, len(w.files))
	for _, fc := range w.files {
		out = append(out, *fc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Paths returns every path in the working set.
func (w *Workspace) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pathIndex.Paths()
}

// PathsWithPrefix returns working-set paths under a directory prefix.
func (w *Workspace) PathsWithPrefix(prefix string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pathIndex.WithPrefix(prefix)
}

// Hydrate loads real content for any of the given files that are still stubs.
// Files the provider cannot hydrate keep their stub; no error is raised.
func (w *Workspace) Hydrate(ctx context.Context, fileIDs []string) {
	if w.provider == nil {
		return
	}

	var missing []string
	w.mu.RLock()
	for _, id := range fileIDs {
		if fc, ok := w.files[id]; ok && fc.IsStub() {
			missing = append(missing, id)
		}
	}
	w.mu.RUnlock()

	if len(missing) == 0 {
		return
	}

	hydrated := w.provider.Hydrate(ctx, missing)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range hydrated {
		if h.Content == "" || h.Content == model.StubContent {
			continue
		}
		if fc, ok := w.files[h.FileID]; ok && fc.IsStub() {
			fc.Content = h.Content
		}
	}
}

// Content returns the hydrated content of fileID. Errors if the file is
// unknown or the provider leaves the stub in place.
func (w *Workspace) Content(ctx context.Context, fileID string) (string, error) {
	fc, ok := w.Get(fileID)
	if !ok {
		return "", fmt.Errorf("file not found in working set: %s", fileID)
	}
	if !fc.IsStub() {
		return fc.Content, nil
	}

	w.Hydrate(ctx, []string{fileID})

	fc, _ = w.Get(fileID)
	if fc.IsStub() {
		return "", fmt.Errorf("content for %s could not be loaded", fc.Path)
	}
	return fc.Content, nil
}

// ApplyWrite persists new content and then updates the in-memory copy.
// A failed persistence write leaves the in-memory copy untouched.
func (w *Workspace) ApplyWrite(ctx context.Context, fileID, newContent string) error {
	if _, ok := w.Get(fileID); !ok {
		return fmt.Errorf("file not found in working set: %s", fileID)
	}
	if w.store != nil {
		if err := w.store.WriteContent(ctx, fileID, newContent); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}

	w.mu.Lock()
	if fc, ok := w.files[fileID]; ok {
		fc.Content = newContent
	}
	w.mu.Unlock()

	w.notifyChange(fileID)
	return nil
}

// Remove deletes a file from persistence and drops it from the working set.
func (w *Workspace) Remove(ctx context.Context, fileID string) error {
	fc, ok := w.Get(fileID)
	if !ok {
		return fmt.Errorf("file not found in working set: %s", fileID)
	}
	if w.store != nil {
		if err := w.store.Delete(ctx, fileID); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
	}

	w.mu.Lock()
	delete(w.files, fileID)
	w.pathIndex.Delete(fc.Path)
	w.mu.Unlock()

	w.notifyChange(fileID)
	return nil
}

// Rename moves a file to a new path in persistence and reindexes it.
func (w *Workspace) Rename(ctx context.Context, fileID, newPath string) error {
	fc, ok := w.Get(fileID)
	if !ok {
		return fmt.Errorf("file not found in working set: %s", fileID)
	}
	if w.store != nil {
		if err := w.store.Rename(ctx, fileID, newPath); err != nil {
			return fmt.Errorf("rename failed: %w", err)
		}
	}

	w.mu.Lock()
	w.pathIndex.Delete(fc.Path)
	if entry, ok := w.files[fileID]; ok {
		entry.Path = newPath
		entry.FileType = FileTypeOf(newPath)
	}
	w.pathIndex.Insert(newPath, fileID)
	w.mu.Unlock()

	w.notifyChange(fileID)
	return nil
}

// Size returns the number of files in the working set.
func (w *Workspace) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.files)
}

// FileTypeOf derives a file type label from a path's extension.
func FileTypeOf(p string) string {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(ext)
}
