// Region extraction: locate the block a symbolic hint refers to and return
// it with surrounding context.

package edit

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MatchType labels which extraction tier located a region.
type MatchType string

const (
	MatchExact         MatchType = "exact"
	MatchBlockBoundary MatchType = "block-boundary"
	MatchFuzzy         MatchType = "fuzzy"
	MatchNone          MatchType = "none"
)

// fuzzyRegionRadius is the fixed window either side of the best-scoring line
// in the fuzzy tier.
const fuzzyRegionRadius = 5

// Region is an extracted block with 1-based line bounds.
type Region struct {
	MatchType MatchType `json:"match_type"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Snippet   string    `json:"snippet"`
}

// liquidBlockTags open a {% tag %} ... {% endtag %} block.
var liquidBlockTags = []string{
	"if", "unless", "for", "case", "capture", "form", "paginate", "schema",
	"stylesheet", "javascript", "comment", "raw", "tablerow",
}

// declarationPatterns match declaration-shaped lines for a quoted hint.
// Tried in order; %s is the regexp-quoted hint.
var declarationPatterns = []string{
	`^\s*(export\s+)?(async\s+)?function\s+%s\b`,       // js function
	`^\s*class\s+%s\b`,                                 // js class
	`^\s*(const|let|var)\s+%s\s*=`,                     // js binding
	`^[^{}]*%s[^{}]*\{\s*$`,                            // css selector
	`\{\%%-?\s*(capture|schema|form)\s+['"]?%s`,        // liquid named block
	`\{\%%-?\s*(section|render|include)\s+['"]%s['"]`,  // liquid reference
}

// ExtractRegion locates the most relevant block for a free-text hint in the
// file identified by ref. Deterministic: the same hint against unchanged
// content yields the same region.
func (e *Engine) ExtractRegion(ctx context.Context, ref, hint string) (Region, error) {
	if strings.TrimSpace(hint) == "" {
		return Region{}, fmt.Errorf("hint cannot be empty")
	}
	fc, ok := e.ws.Resolve(ref)
	if !ok {
		return Region{}, fmt.Errorf("file not found in working set: %s", ref)
	}
	content, err := e.ws.Content(ctx, fc.FileID)
	if err != nil {
		return Region{}, err
	}
	return LocateRegion(content, hint), nil
}

// LocateRegion runs the extraction tiers against raw content:
// exact substring line match (expanded to its enclosing block), then a
// declaration-shaped regex match, then token-overlap fuzzy fallback.
func LocateRegion(content, hint string) Region {
	lines := strings.Split(content, "\n")

	// Tier 1: exact substring line match.
	for i, line := range lines {
		if strings.Contains(line, hint) {
			start, end := expandBlock(lines, i)
			return Region{
				MatchType: MatchExact,
				StartLine: start + 1,
				EndLine:   end + 1,
				Snippet:   numberedSnippet(lines, start, end),
			}
		}
	}

	// Tier 2: declaration-shaped regex match.
	quoted := regexp.QuoteMeta(hint)
	for _, pattern := range declarationPatterns {
		re, err := regexp.Compile("(?i)" + fmt.Sprintf(pattern, quoted))
		if err != nil {
			continue
		}
		for i, line := range lines {
			if re.MatchString(line) {
				start, end := expandBlock(lines, i)
				return Region{
					MatchType: MatchBlockBoundary,
					StartLine: start + 1,
					EndLine:   end + 1,
					Snippet:   numberedSnippet(lines, start, end),
				}
			}
		}
	}

	// Tier 3: token-overlap fuzzy fallback.
	hintTokens := tokenSet(hint)
	bestLine, bestScore := -1, 0
	for i, line := range lines {
		score := 0
		for tok := range tokenSet(line) {
			if hintTokens[tok] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestLine = i
		}
	}
	if bestLine >= 0 {
		start := bestLine - fuzzyRegionRadius
		if start < 0 {
			start = 0
		}
		end := bestLine + fuzzyRegionRadius
		if end >= len(lines) {
			end = len(lines) - 1
		}
		return Region{
			MatchType: MatchFuzzy,
			StartLine: start + 1,
			EndLine:   end + 1,
			Snippet:   numberedSnippet(lines, start, end),
		}
	}

	return Region{MatchType: MatchNone}
}

// expandBlock widens a single line to its enclosing block when the line opens
// one: brace tracking for brace-delimited syntax, open/close tag tracking for
// liquid block tags. Returns 0-based inclusive bounds.
func expandBlock(lines []string, idx int) (int, int) {
	line := lines[idx]

	if tag := openingLiquidTag(line); tag != "" {
		if end := findLiquidClose(lines, idx, tag); end > idx {
			return idx, end
		}
	}

	if strings.Count(line, "{") > strings.Count(line, "}") {
		if end := findBraceClose(lines, idx); end > idx {
			return idx, end
		}
	}

	return idx, idx
}

// openingLiquidTag returns the block tag a line opens, or "".
func openingLiquidTag(line string) string {
	if !strings.Contains(line, "{%") {
		return ""
	}
	for _, tag := range liquidBlockTags {
		re := regexp.MustCompile(`\{\%-?\s*` + tag + `\b`)
		if re.MatchString(line) && !strings.Contains(line, "end"+tag) {
			return tag
		}
	}
	return ""
}

// findLiquidClose finds the matching {% endtag %} for the tag opened at idx,
// tracking nesting of the same tag.
func findLiquidClose(lines []string, idx int, tag string) int {
	openRe := regexp.MustCompile(`\{\%-?\s*` + tag + `\b`)
	closeRe := regexp.MustCompile(`\{\%-?\s*end` + tag + `\b`)

	depth := 0
	for i := idx; i < len(lines); i++ {
		opens := len(openRe.FindAllString(lines[i], -1))
		closes := len(closeRe.FindAllString(lines[i], -1))
		depth += opens - closes
		if depth <= 0 && (i > idx || closes > 0) {
			return i
		}
	}
	return idx
}

// findBraceClose finds the line where the brace depth opened at idx returns
// to zero.
func findBraceClose(lines []string, idx int) int {
	depth := 0
	for i := idx; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if i >= idx && depth <= 0 {
			return i
		}
	}
	return idx
}

// numberedSnippet renders lines [start,end] (0-based inclusive) with 1-based
// line numbers.
func numberedSnippet(lines []string, start, end int) string {
	var b strings.Builder
	for i := start; i <= end && i < len(lines); i++ {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, lines[i])
	}
	return strings.TrimRight(b.String(), "\n")
}

// tokenSet splits text into distinct lowercase word tokens.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	}) {
		set[tok] = true
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
