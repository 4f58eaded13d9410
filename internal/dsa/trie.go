// Package dsa provides the data structures behind the workspace path index
// and the edit engine's occurrence scans.
package dsa

import (
	"github.com/armon/go-radix"
)

// PathIndex maps file paths to values on a compressed radix tree, giving
// O(k) lookups and cheap directory-prefix walks for search widening.
type PathIndex[V any] struct {
	tree *radix.Tree
	size int
}

// NewPathIndex creates an empty path index.
func NewPathIndex[V any]() *PathIndex[V] {
	return &PathIndex[V]{tree: radix.New()}
}

// Insert adds or replaces a path entry.
func (t *PathIndex[V]) Insert(path string, value V) {
	_, updated := t.tree.Insert(path, value)
	if !updated {
		t.size++
	}
}

// Get looks up an exact path.
func (t *PathIndex[V]) Get(path string) (V, bool) {
	val, found := t.tree.Get(path)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return v, true
}

// Delete removes a path entry. Returns true if the path was present.
func (t *PathIndex[V]) Delete(path string) bool {
	_, deleted := t.tree.Delete(path)
	if deleted {
		t.size--
	}
	return deleted
}

// Contains reports whether the exact path is indexed.
func (t *PathIndex[V]) Contains(path string) bool {
	_, found := t.tree.Get(path)
	return found
}

// WithPrefix returns all indexed paths under the given prefix.
// Used by directory-scoped search widening.
func (t *PathIndex[V]) WithPrefix(prefix string) []string {
	var results []string
	t.tree.WalkPrefix(prefix, func(k string, v interface{}) bool {
		results = append(results, k)
		return false // keep walking
	})
	return results
}

// Paths returns every indexed path.
func (t *PathIndex[V]) Paths() []string {
	return t.WithPrefix("")
}

// ForEach calls fn for each path-value pair in lexicographic order.
func (t *PathIndex[V]) ForEach(fn func(path string, value V)) {
	t.tree.Walk(func(k string, v interface{}) bool {
		if val, ok := v.(V); ok {
			fn(k, val)
		}
		return false
	})
}

// Size returns the number of indexed paths.
func (t *PathIndex[V]) Size() int {
	return t.size
}
