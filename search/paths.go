// Path search: glob matching over working-set paths with the same widening
// ladder as pattern search.

package search

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// PathsOutcome is the result of a path search.
type PathsOutcome struct {
	Paths    []string
	FileIDs  []string
	Widening string
}

// Paths matches working-set file paths against a glob-style pattern. On zero
// matches the scope is widened: synonym expansion over the pattern's tokens,
// extension-only, then directory-only, before giving up.
func (e *Engine) Paths(pattern string) PathsOutcome {
	all := e.ws.Paths()

	var matched []string
	for _, p := range all {
		if matchGlobPattern(p, pattern) || strings.Contains(strings.ToLower(p), strings.ToLower(pattern)) {
			matched = append(matched, p)
		}
	}
	if len(matched) > 0 {
		return e.pathsOutcome(matched, "")
	}

	if terms := e.relatedTerms(pattern); len(terms) > 1 {
		for _, p := range all {
			if pathMatchesAny(p, terms) {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			return e.pathsOutcome(matched,
				fmt.Sprintf("synonym-expanded pattern (%s)", strings.Join(terms, ", ")))
		}
	}

	if ext := extensionOf(pattern); ext != "" {
		for _, p := range all {
			if strings.HasSuffix(strings.ToLower(p), "."+ext) {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			return e.pathsOutcome(matched, fmt.Sprintf("extension-only pattern (.%s)", ext))
		}
	}

	if dir := directoryOf(pattern); dir != "" {
		matched = e.ws.PathsWithPrefix(dir)
		if len(matched) > 0 {
			return e.pathsOutcome(matched, fmt.Sprintf("directory-only pattern (%s/)", dir))
		}
	}

	return PathsOutcome{}
}

// pathsOutcome sorts matched paths and resolves their file ids.
func (e *Engine) pathsOutcome(paths []string, widening string) PathsOutcome {
	sort.Strings(paths)
	out := PathsOutcome{Paths: paths, Widening: widening}
	for _, p := range paths {
		if fc, ok := e.ws.Resolve(p); ok {
			out.FileIDs = append(out.FileIDs, fc.FileID)
		}
	}
	return out
}

// FormatPaths renders a path search outcome.
func (e *Engine) FormatPaths(o PathsOutcome, pattern string) string {
	if len(o.Paths) == 0 {
		return fmt.Sprintf("No files match %q, even after synonym, extension, and directory widening. Use list_files to inspect the project layout.", pattern)
	}

	var b strings.Builder
	if o.Widening != "" {
		fmt.Fprintf(&b, "The original pattern had no matches; widened to %s.\n", o.Widening)
	}
	fmt.Fprintf(&b, "Found %d file(s) matching %q:\n", len(o.Paths), pattern)
	for _, p := range o.Paths {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	return strings.TrimRight(b.String(), "\n")
}

// matchGlobPattern matches a path against a glob pattern with ** support.
func matchGlobPattern(path, pattern string) bool {
	path = filepath.ToSlash(path)
	pattern = filepath.ToSlash(strings.TrimPrefix(pattern, "./"))

	parts := strings.Split(pattern, "**")

	if len(parts) == 1 {
		if matchPattern(pattern, path) {
			return true
		}
		// A bare filename pattern also matches against the base name.
		if !strings.Contains(pattern, "/") {
			return matchPattern(pattern, filepath.Base(path))
		}
		return false
	}

	// Check prefix (before first **).
	prefix := strings.TrimSuffix(parts[0], "/")
	if prefix != "" && !strings.HasPrefix(path, prefix) {
		return false
	}

	// Check suffix (after last **).
	suffix := strings.TrimPrefix(parts[len(parts)-1], "/")
	if suffix != "" {
		if strings.Contains(suffix, "/") {
			if !strings.HasSuffix(path, suffix) {
				if !matchPattern("*/"+suffix, "/"+path) {
					return false
				}
			}
		} else {
			if !matchPattern(suffix, filepath.Base(path)) {
				return false
			}
		}
	}

	return true
}

// matchPattern wraps filepath.Match, returning false on error.
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
