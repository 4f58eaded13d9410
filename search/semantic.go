// Hybrid semantic search: a lexical fuzzy matcher that is always available,
// merged with optional vector similarity over content embeddings.

package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/richinex/stitch/model"
)

const (
	// excerptFiles is how many top hits get a best-region excerpt.
	excerptFiles = 3
	// excerptRadius is the number of context lines either side of the
	// best-matching line.
	excerptRadius = 3
	// hybridBonus weights the weaker signal when both agree, so a file found
	// by both always outranks one found by either alone.
	hybridBonus = 0.25
)

// Semantic ranks working-set files against a free-text query. Lexical and
// vector signals are merged per file; the vector signal is skipped when no
// embedder is configured or embedding fails.
func (e *Engine) Semantic(ctx context.Context, query string, k int) []model.SemanticHit {
	if k <= 0 {
		k = 5
	}
	files := e.ws.Files()
	if len(files) == 0 {
		return nil
	}

	ids := make([]string, 0, len(files))
	for _, fc := range files {
		ids = append(ids, fc.FileID)
	}
	e.ws.Hydrate(ctx, ids)

	lex := e.lexicalScores(query)
	vec := e.vectorScores(query)

	byID := make(map[string]*model.SemanticHit)
	for id, score := range lex {
		fc, _ := e.ws.Get(id)
		byID[id] = &model.SemanticHit{FileID: id, FileName: fc.Path, Score: score, Source: model.SourceLexical}
	}
	for id, score := range vec {
		if existing, ok := byID[id]; ok {
			hi, lo := existing.Score, score
			if lo > hi {
				hi, lo = lo, hi
			}
			existing.Score = hi + hybridBonus*lo
			existing.Source = model.SourceHybrid
			continue
		}
		fc, _ := e.ws.Get(id)
		byID[id] = &model.SemanticHit{FileID: id, FileName: fc.Path, Score: score, Source: model.SourceVector}
	}

	hits := make([]model.SemanticHit, 0, len(byID))
	for _, h := range byID {
		if h.Score > 0 {
			hits = append(hits, *h)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].FileName < hits[j].FileName
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	for i := range hits {
		if i >= excerptFiles {
			break
		}
		fc, ok := e.ws.Get(hits[i].FileID)
		if !ok || fc.IsStub() {
			continue
		}
		hits[i].Excerpt = bestRegion(fc.Content, query)
	}
	return hits
}

// lexicalScores scores every hydrated file by token overlap with the query.
// Path tokens count double: a query naming a file should find it even when
// the content is unrelated. Scores are normalized to [0,1].
func (e *Engine) lexicalScores(query string) map[string]float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	expanded := e.relatedTerms(query)

	scores := make(map[string]float64)
	for _, fc := range e.ws.Files() {
		nameTokens := tokenSet(fc.Path)
		var contentTokens map[string]bool
		if !fc.IsStub() {
			contentTokens = tokenSet(fc.Content)
		}

		var raw float64
		for _, tok := range queryTokens {
			if nameTokens[tok] {
				raw += 2
			} else if contentTokens != nil && contentTokens[tok] {
				raw += 1
			}
		}
		// Synonym hits in the file name count at content weight.
		for _, tok := range expanded {
			if nameTokens[tok] {
				raw += 1
				break
			}
		}

		score := raw / float64(2*len(queryTokens)+1)
		if score > 1 {
			score = 1
		}
		if score > 0 {
			scores[fc.FileID] = score
		}
	}
	return scores
}

// vectorScores scores files by cosine similarity between the query embedding
// and cached content embeddings. Returns nil whenever the embedding
// collaborator is unavailable or fails; the caller degrades to lexical-only.
func (e *Engine) vectorScores(query string) map[string]float64 {
	if e.embedder == nil {
		return nil
	}

	qv, err := e.embedder.Embed([]string{query})
	if err != nil || len(qv) != 1 {
		return nil
	}

	if err := e.fillEmbedCache(); err != nil {
		return nil
	}

	e.embedMu.Lock()
	defer e.embedMu.Unlock()

	scores := make(map[string]float64)
	for id, fv := range e.embedCache {
		sim := cosine(qv[0], fv)
		// Map [-1,1] similarity into [0,1].
		score := (sim + 1) / 2
		if score > 0 {
			scores[id] = score
		}
	}
	return scores
}

// fillEmbedCache embeds any hydrated file whose embedding is missing.
func (e *Engine) fillEmbedCache() error {
	e.embedMu.Lock()
	var pendingIDs []string
	var pendingTexts []string
	for _, fc := range e.ws.Files() {
		if fc.IsStub() {
			continue
		}
		if _, ok := e.embedCache[fc.FileID]; ok {
			continue
		}
		pendingIDs = append(pendingIDs, fc.FileID)
		pendingTexts = append(pendingTexts, fc.Content)
	}
	e.embedMu.Unlock()

	if len(pendingIDs) == 0 {
		return nil
	}

	vectors, err := e.embedder.Embed(pendingTexts)
	if err != nil {
		return err
	}
	if len(vectors) != len(pendingIDs) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(pendingIDs))
	}

	e.embedMu.Lock()
	for i, id := range pendingIDs {
		e.embedCache[id] = vectors[i]
	}
	e.embedMu.Unlock()
	return nil
}

// InvalidateEmbedding drops a file's cached embedding after its content changes.
func (e *Engine) InvalidateEmbedding(fileID string) {
	e.embedMu.Lock()
	delete(e.embedCache, fileID)
	e.embedMu.Unlock()
}

// cosine computes cosine similarity between two vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// bestRegion returns the line window around the line with the highest token
// overlap with the query, numbered 1-based, so the caller sees the actually
// relevant excerpt rather than the start of the file.
func bestRegion(content, query string) string {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return ""
	}

	lines := strings.Split(content, "\n")
	bestLine, bestScore := 0, -1
	for i, line := range lines {
		score := 0
		for tok := range tokenSet(line) {
			if queryTokens[tok] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestLine = i
		}
	}

	start := bestLine - excerptRadius
	if start < 0 {
		start = 0
	}
	end := bestLine + excerptRadius
	if end >= len(lines) {
		end = len(lines) - 1
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, lines[i])
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSemantic renders semantic hits for the controller.
func (e *Engine) FormatSemantic(hits []model.SemanticHit, query string) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No files were relevant to %q. Try different wording or a pattern search.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top %d file(s) for %q:\n", len(hits), query)
	for _, h := range hits {
		fmt.Fprintf(&b, "%s (score %.2f, %s)\n", h.FileName, h.Score, h.Source)
		if h.Excerpt != "" {
			b.WriteString(h.Excerpt)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
