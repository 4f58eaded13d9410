// Synonym table used by search widening.
//
// The table is data, not code: it can be replaced wholesale by pointing
// SEARCH_SYNONYM_FILE at a JSON file mapping terms to related terms.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// SynonymTable maps a domain term to related terms. Lookup is symmetric:
// a query term matches both its own entry and any entry that lists it.
type SynonymTable map[string][]string

// DefaultSynonyms covers common storefront vocabulary.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		"cart":       {"mini-cart", "basket", "bag", "checkout"},
		"product":    {"item", "listing", "pdp", "merchandise"},
		"collection": {"category", "catalog", "plp", "grid"},
		"header":     {"nav", "navbar", "navigation", "menu", "masthead"},
		"footer":     {"bottom", "site-footer"},
		"hero":       {"banner", "slideshow", "carousel", "featured"},
		"price":      {"cost", "money", "amount", "pricing"},
		"image":      {"img", "photo", "picture", "media", "thumbnail"},
		"button":     {"btn", "cta", "link"},
		"search":     {"predictive-search", "filter", "query"},
		"account":    {"customer", "login", "profile", "user"},
		"variant":    {"option", "swatch", "selector"},
	}
}

// LoadSynonyms reads a synonym table from a JSON file. An empty path returns
// the built-in defaults.
func LoadSynonyms(path string) (SynonymTable, error) {
	if path == "" {
		return DefaultSynonyms(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonym file: %w", err)
	}
	var table SynonymTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("invalid synonym file %s: %w", path, err)
	}
	return table, nil
}

// Related returns every term associated with the given term, including the
// term itself. Matching is case-insensitive and symmetric. The term comes
// first; the rest are sorted so widening annotations are stable across runs.
func (t SynonymTable) Related(term string) []string {
	term = strings.ToLower(term)
	seen := map[string]bool{term: true}
	related := []string{term}

	add := func(s string) {
		s = strings.ToLower(s)
		if !seen[s] {
			seen[s] = true
			related = append(related, s)
		}
	}

	for key, values := range t {
		if strings.ToLower(key) == term {
			for _, v := range values {
				add(v)
			}
			continue
		}
		for _, v := range values {
			if strings.ToLower(v) == term {
				add(key)
				for _, sibling := range values {
					add(sibling)
				}
				break
			}
		}
	}
	sort.Strings(related[1:])
	return related
}

// Terms returns the base vocabulary of the table.
func (t SynonymTable) Terms() []string {
	terms := make([]string, 0, len(t))
	for k := range t {
		terms = append(terms, k)
	}
	sort.Strings(terms)
	return terms
}
