// Pattern search with scope widening and budget enforcement.

package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/richinex/stitch/model"
)

// minKeptMatches is always returned even when the size budget is exceeded.
const minKeptMatches = 10

// GrepOutcome is the result of one pattern search, including how far the
// scope had to be widened to produce it.
type GrepOutcome struct {
	Matches   []model.SearchMatch
	FileIDs   []string
	Widening  string // which widening step produced results; empty if the original scope matched
	Truncated bool
	Related   []string // related file names, when no content matched at all
}

// Empty reports whether the search produced neither matches nor suggestions.
func (o GrepOutcome) Empty() bool {
	return len(o.Matches) == 0 && len(o.Related) == 0
}

// Grep searches file content for a pattern, optionally scoped by a path
// filter. A scoped search that matches nothing is progressively widened:
// synonym-expanded filter, extension-only, directory-only, then unscoped.
// If content never matches, files whose names relate to the pattern by
// synonym are suggested instead.
func (e *Engine) Grep(ctx context.Context, pattern, pathFilter string) (GrepOutcome, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return GrepOutcome{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	files := e.ws.Files()
	if len(files) == 0 {
		return GrepOutcome{}, nil
	}

	scoped := filterByPath(files, pathFilter)
	outcome := e.scan(ctx, re, scoped)
	if len(outcome.Matches) > 0 {
		return outcome, nil
	}

	if pathFilter != "" {
		for _, step := range e.wideningSteps(files, pathFilter) {
			if len(step.files) == 0 {
				continue
			}
			widened := e.scan(ctx, re, step.files)
			if len(widened.Matches) > 0 {
				widened.Widening = step.label
				return widened, nil
			}
		}
	}

	// Content never matched: suggest files whose names relate to the
	// pattern (or the filter) by synonym.
	related := e.relatedFileNames(files, pattern+" "+pathFilter)
	return GrepOutcome{Related: related}, nil
}

// wideningStep is one rung of the scope-widening ladder.
type wideningStep struct {
	label string
	files []model.FileContext
}

// wideningSteps builds the ladder for a path filter, narrowest first.
func (e *Engine) wideningSteps(files []model.FileContext, pathFilter string) []wideningStep {
	var steps []wideningStep

	if terms := e.relatedTerms(pathFilter); len(terms) > 1 {
		var expanded []model.FileContext
		for _, fc := range files {
			if pathMatchesAny(fc.Path, terms) {
				expanded = append(expanded, fc)
			}
		}
		steps = append(steps, wideningStep{
			label: fmt.Sprintf("synonym-expanded filter (%s)", strings.Join(terms, ", ")),
			files: expanded,
		})
	}

	if ext := extensionOf(pathFilter); ext != "" {
		var byExt []model.FileContext
		for _, fc := range files {
			if fc.FileType == ext {
				byExt = append(byExt, fc)
			}
		}
		steps = append(steps, wideningStep{
			label: fmt.Sprintf("extension-only filter (.%s)", ext),
			files: byExt,
		})
	}

	if dir := directoryOf(pathFilter); dir != "" {
		var byDir []model.FileContext
		for _, p := range e.ws.PathsWithPrefix(dir) {
			if fc, ok := e.ws.Resolve(p); ok {
				byDir = append(byDir, fc)
			}
		}
		steps = append(steps, wideningStep{
			label: fmt.Sprintf("directory-only filter (%s/)", dir),
			files: byDir,
		})
	}

	steps = append(steps, wideningStep{
		label: "full project (filter dropped)",
		files: files,
	})
	return steps
}

// filterByPath keeps files whose path contains the filter or matches it as a
// glob. Applied before hydration so non-candidates cost nothing.
func filterByPath(files []model.FileContext, filter string) []model.FileContext {
	if filter == "" {
		return files
	}
	lower := strings.ToLower(filter)
	var out []model.FileContext
	for _, fc := range files {
		p := strings.ToLower(fc.Path)
		if strings.Contains(p, lower) || matchGlobPattern(fc.Path, filter) {
			out = append(out, fc)
		}
	}
	return out
}

// scan hydrates the candidate files and matches the pattern line by line,
// honoring the match-count budget. Stub files that fail to hydrate are
// skipped rather than matched against the stub marker.
func (e *Engine) scan(ctx context.Context, re *regexp.Regexp, files []model.FileContext) GrepOutcome {
	ids := make([]string, 0, len(files))
	for _, fc := range files {
		ids = append(ids, fc.FileID)
	}
	e.ws.Hydrate(ctx, ids)

	var outcome GrepOutcome
	matchedIDs := make(map[string]bool)

	for _, stale := range files {
		fc, ok := e.ws.Get(stale.FileID)
		if !ok || fc.IsStub() {
			continue
		}

		lines := strings.Split(fc.Content, "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			outcome.Matches = append(outcome.Matches, model.SearchMatch{
				Path:    fc.Path,
				Line:    i + 1,
				Content: strings.TrimSpace(line),
			})
			if !matchedIDs[fc.FileID] {
				matchedIDs[fc.FileID] = true
				outcome.FileIDs = append(outcome.FileIDs, fc.FileID)
			}
			if len(outcome.Matches) >= e.cfg.MaxMatches {
				outcome.Truncated = true
				outcome.Matches = e.rerank(outcome.Matches, re.String())
				return outcome
			}
		}
	}

	if len(outcome.Matches) > 1 {
		outcome.Matches = e.rerank(outcome.Matches, re.String())
	}
	return outcome
}

// relatedFileNames finds files whose names overlap the query's synonym
// expansion, sorted for determinism.
func (e *Engine) relatedFileNames(files []model.FileContext, query string) []string {
	terms := e.relatedTerms(query)
	if len(terms) == 0 {
		return nil
	}
	var names []string
	for _, fc := range files {
		if pathMatchesAny(fc.Path, terms) {
			names = append(names, fc.Path)
		}
	}
	sort.Strings(names)
	return names
}

// Format renders a grep outcome as bounded, model-readable text. The first
// minKeptMatches matches survive even when the size budget is exceeded.
func (e *Engine) Format(o GrepOutcome, pattern string) string {
	if o.Empty() {
		return fmt.Sprintf("No matches for %q and no related files found. Try a broader pattern or different wording.", pattern)
	}

	var b strings.Builder
	if len(o.Matches) == 0 {
		fmt.Fprintf(&b, "No content matched %q, but these file names look related:\n", pattern)
		for _, name := range o.Related {
			fmt.Fprintf(&b, "  %s\n", name)
		}
		b.WriteString("Try searching inside one of these files.")
		return b.String()
	}

	if o.Widening != "" {
		fmt.Fprintf(&b, "The original scope had no matches; widened to %s.\n", o.Widening)
	}
	fmt.Fprintf(&b, "Found %d match(es) for %q:\n", len(o.Matches), pattern)

	written := 0
	for i, m := range o.Matches {
		line := fmt.Sprintf("%s:%d: %s\n", m.Path, m.Line, m.Content)
		if b.Len()+len(line) > e.cfg.MaxOutputSize && i >= minKeptMatches {
			fmt.Fprintf(&b, "[truncated: %d further matches omitted by output budget]\n", len(o.Matches)-written)
			break
		}
		b.WriteString(line)
		written++
	}
	if o.Truncated {
		fmt.Fprintf(&b, "[match budget of %d reached; narrow the pattern for complete results]\n", e.cfg.MaxMatches)
	}
	return strings.TrimRight(b.String(), "\n")
}
