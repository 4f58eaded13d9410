// Package edit resolves textual find/replace instructions against working-set
// files through a cascade of increasingly tolerant matching strategies, and
// extracts symbol-anchored regions with surrounding context.
//
// Information Hiding:
// - Matching tier order and algorithms hidden behind Replace
// - Offset reconstruction for scoped and normalized matches internalized
// - Guardrail thresholds injected via config, not hard-coded
package edit

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/stitch/config"
	"github.com/richinex/stitch/internal/dsa"
	"github.com/richinex/stitch/workspace"
)

// Tier names the matching strategy that resolved an edit.
type Tier string

const (
	TierSimple               Tier = "Simple"
	TierWhitespaceNormalized Tier = "WhitespaceNormalized"
	TierLineTrimmed          Tier = "LineTrimmed"
	TierFuzzy                Tier = "Fuzzy"
)

// fuzzyFloor is the minimum normalized similarity for the fuzzy tier.
const fuzzyFloor = 0.85

// span is a half-open byte range in the original, un-normalized content.
type span struct {
	start int
	end   int
}

// strategy is one rung of the cascade: it reports every occurrence of
// oldText in content, in original-content offsets.
type strategy struct {
	tier  Tier
	match func(content, oldText string) []span
}

// cascade is ordered strictest first; the first strategy with a match wins.
var cascade = []strategy{
	{TierSimple, matchSimple},
	{TierWhitespaceNormalized, matchWhitespaceNormalized},
	{TierLineTrimmed, matchLineTrimmed},
	{TierFuzzy, matchFuzzy},
}

// Outcome describes a resolved edit.
type Outcome struct {
	Content    string // the file's new full text
	MatchCount int    // occurrences found by the winning tier
	Replaced   int    // occurrences actually replaced
	Tier       Tier   // which tier succeeded
}

// Engine applies edits to workspace files with write-through persistence.
type Engine struct {
	ws  *workspace.Workspace
	cfg config.EditConfig
}

// NewEngine creates an edit engine.
func NewEngine(ws *workspace.Workspace, cfg config.EditConfig) *Engine {
	if cfg.NearLineWindow <= 0 {
		cfg.NearLineWindow = 20
	}
	if cfg.MinGuardedBytes <= 0 {
		cfg.MinGuardedBytes = 200
	}
	if cfg.MaxShrinkPercent <= 0 {
		cfg.MaxShrinkPercent = 60
	}
	return &Engine{ws: ws, cfg: cfg}
}

// Replace applies a find/replace instruction to the file identified by ref
// (path or fileID). nearLine > 0 scopes matching to a window around that
// 1-based line. The new content is persisted before the in-memory copy is
// refreshed; a failed write changes nothing.
func (e *Engine) Replace(ctx context.Context, ref, oldText, newText string, replaceAll bool, nearLine int) (Outcome, string, error) {
	if oldText == "" {
		return Outcome{}, "", fmt.Errorf("old text cannot be empty")
	}

	fc, ok := e.ws.Resolve(ref)
	if !ok {
		return Outcome{}, "", fmt.Errorf("file not found in working set: %s", ref)
	}
	content, err := e.ws.Content(ctx, fc.FileID)
	if err != nil {
		return Outcome{}, "", err
	}

	region := content
	base := 0
	if nearLine > 0 {
		region, base = lineWindow(content, nearLine, e.cfg.NearLineWindow)
	}

	tier, spans := resolve(region, oldText)
	if len(spans) == 0 && nearLine > 0 {
		// The hint may be stale; fall back to the whole file.
		region, base = content, 0
		tier, spans = resolve(region, oldText)
	}
	if len(spans) == 0 {
		return Outcome{}, "", fmt.Errorf("old text not found in %s, even with tolerant matching; re-read the file before editing", fc.Path)
	}

	// Map scoped spans back to full-file offsets.
	for i := range spans {
		spans[i].start += base
		spans[i].end += base
	}

	outcome := Outcome{MatchCount: len(spans), Tier: tier}
	if replaceAll {
		outcome.Content = replaceSpans(content, spans, newText)
		outcome.Replaced = len(spans)
	} else {
		outcome.Content = replaceSpans(content, spans[:1], newText)
		outcome.Replaced = 1
	}

	if err := e.ws.ApplyWrite(ctx, fc.FileID, outcome.Content); err != nil {
		return Outcome{}, "", err
	}

	msg := fmt.Sprintf("Replaced %d occurrence(s) in %s (matched via %s tier).", outcome.Replaced, fc.Path, tier)
	if !replaceAll && outcome.MatchCount > 1 {
		msg += fmt.Sprintf(" Note: the old text matched %d locations; only the first was changed. Pass replace_all=true or a near_line hint to target others.", outcome.MatchCount)
	}
	return outcome, msg, nil
}

// resolve runs the cascade and returns the first tier with matches.
func resolve(content, oldText string) (Tier, []span) {
	for _, s := range cascade {
		if spans := s.match(content, oldText); len(spans) > 0 {
			return s.tier, spans
		}
	}
	return "", nil
}

// replaceSpans rewrites content with newText at each span, back to front so
// earlier offsets stay valid.
func replaceSpans(content string, spans []span, newText string) string {
	out := content
	for i := len(spans) - 1; i >= 0; i-- {
		out = out[:spans[i].start] + newText + out[spans[i].end:]
	}
	return out
}

// lineWindow returns the substring of content covering lines
// [line-window, line+window] (1-based, clamped) and its byte offset.
func lineWindow(content string, line, window int) (string, int) {
	offsets := lineOffsets(content)
	n := len(offsets)

	start := line - 1 - window
	if start < 0 {
		start = 0
	}
	end := line - 1 + window
	if end >= n {
		end = n - 1
	}
	if start >= n {
		return content, 0
	}

	startByte := offsets[start]
	endByte := len(content)
	if end+1 < n {
		endByte = offsets[end+1]
	}
	return content[startByte:endByte], startByte
}

// lineOffsets returns the byte offset of the start of each line.
func lineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// matchSimple finds exact substring occurrences via a suffix array, so every
// occurrence is located in one pass. Overlapping occurrences are reduced to
// the leftmost non-overlapping set, matching strings.ReplaceAll semantics.
func matchSimple(content, oldText string) []span {
	sa := dsa.BuildSuffixArray(content)
	positions := sa.Search(oldText)
	spans := make([]span, 0, len(positions))
	prevEnd := 0
	for _, pos := range positions {
		if pos < prevEnd {
			continue
		}
		spans = append(spans, span{start: pos, end: pos + len(oldText)})
		prevEnd = pos + len(oldText)
	}
	return spans
}

// matchWhitespaceNormalized matches line sequences ignoring leading
// indentation differences, then maps back to true offsets.
func matchWhitespaceNormalized(content, oldText string) []span {
	return matchLines(content, oldText, func(s string) string {
		return strings.TrimLeft(s, " \t")
	})
}

// matchLineTrimmed matches line sequences ignoring surrounding whitespace
// entirely.
func matchLineTrimmed(content, oldText string) []span {
	return matchLines(content, oldText, strings.TrimSpace)
}

// matchLines compares normalized line windows of content against the
// normalized lines of oldText. Spans cover the original lines, including the
// trailing newline when oldText itself ends with one.
func matchLines(content, oldText string, normalize func(string) string) []span {
	oldLines := strings.Split(strings.TrimSuffix(oldText, "\n"), "\n")
	normOld := make([]string, len(oldLines))
	for i, l := range oldLines {
		normOld[i] = normalize(l)
	}
	trailingNewline := strings.HasSuffix(oldText, "\n")

	lines := strings.Split(content, "\n")
	offsets := lineOffsets(content)

	var spans []span
	for i := 0; i+len(normOld) <= len(lines) && i < len(offsets); i++ {
		matched := true
		for j := range normOld {
			if normalize(lines[i+j]) != normOld[j] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		start := offsets[i]
		last := i + len(normOld) - 1
		end := start
		if last+1 < len(offsets) {
			end = offsets[last+1]
			if !trailingNewline {
				end-- // exclude the newline after the last matched line
			}
		} else {
			end = len(content)
		}
		spans = append(spans, span{start: start, end: end})
		// Resume after the matched window so spans never overlap.
		i += len(normOld) - 1
	}
	return spans
}

// matchFuzzy slides a window of oldText's line count over the content and
// accepts the best window whose normalized Levenshtein similarity clears the
// floor. At most one span is returned; ties break to the earliest offset.
func matchFuzzy(content, oldText string) []span {
	oldTrimmed := strings.TrimSuffix(oldText, "\n")
	oldLines := strings.Split(oldTrimmed, "\n")
	trailingNewline := strings.HasSuffix(oldText, "\n")

	lines := strings.Split(content, "\n")
	offsets := lineOffsets(content)

	bestScore := fuzzyFloor
	bestIdx := -1
	for i := 0; i+len(oldLines) <= len(lines) && i < len(offsets); i++ {
		window := strings.Join(lines[i:i+len(oldLines)], "\n")
		score := similarity(window, oldTrimmed)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return nil
	}

	start := offsets[bestIdx]
	last := bestIdx + len(oldLines) - 1
	end := len(content)
	if last+1 < len(offsets) {
		end = offsets[last+1]
		if !trailingNewline {
			end--
		}
	}
	return []span{{start: start, end: end}}
}

// similarity is 1 - normalized Levenshtein distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
