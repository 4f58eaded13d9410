package edit

import (
	"context"
	"strings"
	"testing"

	"github.com/richinex/stitch/config"
	"github.com/richinex/stitch/model"
	"github.com/richinex/stitch/workspace"
)

func editEngine(files ...model.FileContext) (*Engine, *workspace.Workspace) {
	ws := workspace.New(nil, nil)
	for _, fc := range files {
		ws.Add(fc)
	}
	return NewEngine(ws, config.EditConfig{}), ws
}

func cartSnippet() model.FileContext {
	return model.FileContext{
		FileID: "f1",
		Path:   "snippets/cart-total.liquid",
		Content: "{% if cart.item_count > 0 %}\n" +
			"  <span class=\"total\">{{ cart.total_price | money }}</span>\n" +
			"{% endif %}\n",
	}
}

func TestReplaceSimpleTier(t *testing.T) {
	e, ws := editEngine(cartSnippet())
	out, msg, err := e.Replace(context.Background(), "snippets/cart-total.liquid",
		"cart.total_price | money", "cart.total_price | money_with_currency", false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tier != TierSimple {
		t.Errorf("expected Simple tier, got %s", out.Tier)
	}
	if out.Replaced != 1 {
		t.Errorf("expected 1 replacement, got %d", out.Replaced)
	}
	if !strings.Contains(msg, "Simple tier") {
		t.Errorf("unexpected message: %q", msg)
	}
	fc, _ := ws.Get("f1")
	if !strings.Contains(fc.Content, "money_with_currency") {
		t.Error("expected content updated in working set")
	}
}

func TestReplaceWhitespaceNormalizedTier(t *testing.T) {
	e, _ := editEngine(cartSnippet())
	// Same lines, different indentation on the second one.
	out, _, err := e.Replace(context.Background(), "f1",
		"{% if cart.item_count > 0 %}\n<span class=\"total\">{{ cart.total_price | money }}</span>",
		"{% if cart.item_count > 0 %}\n  <span class=\"total\">{{ cart.total_price | money_with_currency }}</span>", false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tier != TierWhitespaceNormalized {
		t.Errorf("expected WhitespaceNormalized tier, got %s", out.Tier)
	}
}

func TestReplaceLineTrimmedTier(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "assets/theme.js",
		Content: "const count = 1;   \nupdate(count);\n",
	}
	e, _ := editEngine(fc)
	// Trailing whitespace on the original line defeats both the exact and
	// indentation-only tiers.
	out, _, err := e.Replace(context.Background(), "f1",
		"const count = 1;\nupdate(count);", "const count = 2;\nupdate(count);", false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tier != TierLineTrimmed {
		t.Errorf("expected LineTrimmed tier, got %s", out.Tier)
	}
}

func TestReplaceFuzzyTier(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "assets/theme.js",
		Content: "function updateBasketCount(count, element) {\n  element.textContent = count;\n}\n",
	}
	e, ws := editEngine(fc)
	// One word differs from the real line; similarity stays above the floor.
	out, _, err := e.Replace(context.Background(), "f1",
		"function updateBasketCount(count, target) {",
		"function updateBasketCount(count, el) {", false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tier != TierFuzzy {
		t.Errorf("expected Fuzzy tier, got %s", out.Tier)
	}
	updated, _ := ws.Get("f1")
	if !strings.HasPrefix(updated.Content, "function updateBasketCount(count, el) {\n") {
		t.Errorf("unexpected content: %q", updated.Content)
	}
}

func TestReplaceFuzzyBelowFloorFails(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "assets/theme.js",
		Content: "const basketCount = 0;\n",
	}
	e, _ := editEngine(fc)
	_, _, err := e.Replace(context.Background(), "f1",
		"let totalItems = [];", "let totalItems = {};", false, 0)
	if err == nil {
		t.Fatal("expected error for text nothing resembles")
	}
	if !strings.Contains(err.Error(), "re-read the file") {
		t.Errorf("expected re-read guidance, got %v", err)
	}
}

func TestReplaceAll(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "snippets/price.liquid",
		Content: "{{ price | money }}\n{{ compare_price | money }}\n{{ sale_price | money }}\n",
	}
	e, ws := editEngine(fc)
	out, _, err := e.Replace(context.Background(), "f1", "| money }}", "| money_with_currency }}", true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MatchCount != 3 || out.Replaced != 3 {
		t.Errorf("expected 3/3, got %d/%d", out.MatchCount, out.Replaced)
	}
	updated, _ := ws.Get("f1")
	if strings.Count(updated.Content, "money_with_currency") != 3 {
		t.Errorf("unexpected content: %q", updated.Content)
	}
}

func TestReplaceAllOverlappingOccurrences(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "snippets/divider.liquid",
		Content: "<br><br><br>\n",
	}
	e, ws := editEngine(fc)
	// "<br><br>" occurs at offsets 0 and 4; the second overlaps the first
	// and must not consume bytes the first already replaced.
	out, _, err := e.Replace(context.Background(), "f1", "<br><br>", "<br>", true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MatchCount != 1 || out.Replaced != 1 {
		t.Errorf("expected 1 non-overlapping occurrence, got %d/%d", out.MatchCount, out.Replaced)
	}
	updated, _ := ws.Get("f1")
	if updated.Content != "<br><br>\n" {
		t.Errorf("unexpected content: %q", updated.Content)
	}
}

func TestReplaceAllOverlappingLineMatches(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "assets/theme.js",
		Content: "run();  \nrun();  \nrun();  \n",
	}
	e, ws := editEngine(fc)
	// Trailing spaces force the line-trimmed tier; windows at lines 1 and 2
	// overlap and only the first may be taken.
	out, _, err := e.Replace(context.Background(), "f1", "run();\nrun();", "runOnce();", true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tier != TierLineTrimmed {
		t.Fatalf("expected LineTrimmed tier, got %s", out.Tier)
	}
	if out.MatchCount != 1 || out.Replaced != 1 {
		t.Errorf("expected 1 non-overlapping occurrence, got %d/%d", out.MatchCount, out.Replaced)
	}
	updated, _ := ws.Get("f1")
	if updated.Content != "runOnce();\nrun();  \n" {
		t.Errorf("unexpected content: %q", updated.Content)
	}
}

func TestReplaceFirstOfManyNotes(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "snippets/price.liquid",
		Content: "{{ price | money }}\n{{ compare_price | money }}\n",
	}
	e, _ := editEngine(fc)
	out, msg, err := e.Replace(context.Background(), "f1", "| money }}", "| money_without_trailing_zeros }}", false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MatchCount != 2 || out.Replaced != 1 {
		t.Errorf("expected 2 matches 1 replaced, got %d/%d", out.MatchCount, out.Replaced)
	}
	if !strings.Contains(msg, "only the first was changed") {
		t.Errorf("expected multi-match note, got %q", msg)
	}
}

func TestReplaceNearLineScopes(t *testing.T) {
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, "{{ item.title }}")
	}
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "templates/collection.liquid",
		Content: strings.Join(lines, "\n") + "\n",
	}
	e, ws := editEngine(fc)
	out, _, err := e.Replace(context.Background(), "f1", "{{ item.title }}", "{{ item.title | escape }}", false, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Replaced != 1 {
		t.Fatalf("expected 1 replacement, got %d", out.Replaced)
	}
	updated, _ := ws.Get("f1")
	got := strings.Split(updated.Content, "\n")
	// Window is lines 30-70 clamped; the first occurrence inside it is
	// line 30, not line 1.
	if got[0] != "{{ item.title }}" {
		t.Error("replacement leaked outside the line window")
	}
	if got[29] != "{{ item.title | escape }}" {
		t.Errorf("expected line 30 changed, got %q", got[29])
	}
}

func TestReplaceStaleNearLineFallsBack(t *testing.T) {
	fc := model.FileContext{
		FileID:  "f1",
		Path:    "snippets/badge.liquid",
		Content: "<span class=\"badge\">New</span>\n",
	}
	e, _ := editEngine(fc)
	out, _, err := e.Replace(context.Background(), "f1", "badge", "label", false, 500)
	if err != nil {
		t.Fatalf("expected fallback to whole file, got %v", err)
	}
	if out.Replaced != 1 {
		t.Errorf("expected 1 replacement, got %d", out.Replaced)
	}
}

func TestReplaceEmptyOldText(t *testing.T) {
	e, _ := editEngine(cartSnippet())
	if _, _, err := e.Replace(context.Background(), "f1", "", "x", false, 0); err == nil {
		t.Error("expected error for empty old text")
	}
}

func TestReplaceUnknownFile(t *testing.T) {
	e, _ := editEngine(cartSnippet())
	if _, _, err := e.Replace(context.Background(), "snippets/nope.liquid", "a", "b", false, 0); err == nil {
		t.Error("expected error for unknown file")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "identical", 1, 1},
		{"", "", 1, 1},
		{"abcd", "abce", 0.74, 0.76},
		{"abcd", "wxyz", 0, 0.01},
	}
	for _, tt := range tests {
		got := similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("similarity(%q, %q) = %f, want [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
