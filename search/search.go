// Package search implements pattern, path, and hybrid semantic search over
// the working set.
//
// One design rule is shared by every entry point: a scoped search that
// returns zero results is never the final answer. Scope is widened step by
// step (synonyms, extension, directory, whole project, related file names)
// and the output says which step produced results.
package search

import (
	"strings"
	"sync"
	"unicode"

	"github.com/richinex/stitch/config"
	"github.com/richinex/stitch/workspace"
)

// Embedder produces vector embeddings for semantic search. Optional: a nil
// Embedder degrades semantic search to lexical-only.
type Embedder interface {
	Embed(texts []string) ([][]float32, error)
}

// Engine runs searches against a workspace.
type Engine struct {
	ws       *workspace.Workspace
	synonyms config.SynonymTable
	cfg      config.SearchConfig
	embedder Embedder

	// fileID -> content embedding, filled lazily on first semantic search.
	// Guarded by embedMu: pool workers may search concurrently.
	embedMu    sync.Mutex
	embedCache map[string][]float32
}

// NewEngine creates a search engine. embedder may be nil.
func NewEngine(ws *workspace.Workspace, synonyms config.SynonymTable, cfg config.SearchConfig, embedder Embedder) *Engine {
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = 100
	}
	if cfg.MaxOutputSize <= 0 {
		cfg.MaxOutputSize = 16384
	}
	e := &Engine{
		ws:         ws,
		synonyms:   synonyms,
		cfg:        cfg,
		embedder:   embedder,
		embedCache: make(map[string][]float32),
	}
	// Edits, deletes, and renames must not leave a stale vector behind.
	ws.SetChangeHook(e.InvalidateEmbedding)
	return e
}

// tokenize splits text into lowercase word tokens, treating any
// non-alphanumeric rune as a separator.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokenSet returns the distinct tokens of text.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(text) {
		set[tok] = true
	}
	return set
}

// relatedTerms expands the tokens of a query through the synonym table.
func (e *Engine) relatedTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tok := range tokenize(query) {
		for _, rel := range e.synonyms.Related(tok) {
			if !seen[rel] {
				seen[rel] = true
				terms = append(terms, rel)
			}
		}
	}
	return terms
}

// pathMatchesAny reports whether any term appears in the path (case-insensitive).
func pathMatchesAny(path string, terms []string) bool {
	lower := strings.ToLower(path)
	for _, t := range terms {
		if t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// extensionOf extracts a file extension from a filter expression like
// "*.liquid", "sections/.css" or "cart.liquid". Empty if none.
func extensionOf(filter string) string {
	idx := strings.LastIndex(filter, ".")
	if idx == -1 || idx == len(filter)-1 {
		return ""
	}
	ext := filter[idx+1:]
	for _, r := range ext {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return strings.ToLower(ext)
}

// directoryOf extracts the leading directory component of a filter, if any.
func directoryOf(filter string) string {
	filter = strings.TrimPrefix(filter, "./")
	idx := strings.Index(filter, "/")
	if idx <= 0 {
		return ""
	}
	dir := filter[:idx]
	if strings.ContainsAny(dir, "*?[") {
		return ""
	}
	return dir
}
