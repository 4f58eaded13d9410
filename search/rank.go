// Lexical relevance ranking for multi-match results.

package search

import (
	"math"
	"sort"
	"strings"

	"github.com/richinex/stitch/model"
)

// rerank orders matches by term-frequency/inverse-document-frequency of the
// query tokens instead of file-scan order. Documents are the matched files;
// each match line is scored by tf of the query tokens in the line weighted by
// idf across the matched files. Ties keep scan order.
func (e *Engine) rerank(matches []model.SearchMatch, query string) []model.SearchMatch {
	terms := tokenize(query)
	if len(terms) == 0 || len(matches) < 2 {
		return matches
	}

	// Document frequency per term over the distinct matched files.
	filesSeen := make(map[string]map[string]bool) // term -> set of paths
	pathsSeen := make(map[string]bool)
	for _, m := range matches {
		pathsSeen[m.Path] = true
		lineTokens := tokenSet(m.Content)
		for _, t := range terms {
			if lineTokens[t] {
				if filesSeen[t] == nil {
					filesSeen[t] = make(map[string]bool)
				}
				filesSeen[t][m.Path] = true
			}
		}
	}
	totalDocs := float64(len(pathsSeen))

	idf := make(map[string]float64, len(terms))
	for _, t := range terms {
		df := float64(len(filesSeen[t]))
		idf[t] = math.Log(1 + totalDocs/(1+df))
	}

	type scored struct {
		match model.SearchMatch
		score float64
		order int
	}
	ranked := make([]scored, len(matches))
	for i, m := range matches {
		lower := strings.ToLower(m.Content)
		var score float64
		for _, t := range terms {
			tf := float64(strings.Count(lower, t))
			score += tf * idf[t]
		}
		ranked[i] = scored{match: m, score: score, order: i}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	out := make([]model.SearchMatch, len(ranked))
	for i, s := range ranked {
		out[i] = s.match
	}
	return out
}
