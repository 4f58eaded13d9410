package search

import (
	"context"
	"strings"
	"testing"

	"github.com/richinex/stitch/config"
	"github.com/richinex/stitch/model"
	"github.com/richinex/stitch/workspace"
)

func testEngine(files []model.FileContext) *Engine {
	ws := workspace.New(nil, nil)
	for _, fc := range files {
		ws.Add(fc)
	}
	return NewEngine(ws, config.DefaultSynonyms(), config.SearchConfig{
		MaxMatches:    100,
		MaxOutputSize: 16384,
	}, nil)
}

func themeFiles() []model.FileContext {
	return []model.FileContext{
		{FileID: "f1", Path: "sections/mini-cart.liquid", Content: "{% if basket.item_count > 0 %}\n  <span>{{ basket.total_price | money }}</span>\n{% endif %}"},
		{FileID: "f2", Path: "sections/header.liquid", Content: "<nav class=\"site-nav\">\n  {% render 'menu' %}\n</nav>"},
		{FileID: "f3", Path: "assets/theme.js", Content: "function updateBasket(count) {\n  document.querySelector('.basket-count').textContent = count;\n}"},
		{FileID: "f4", Path: "templates/product.liquid", Content: "{{ product.title }}\n{{ product.price | money }}"},
	}
}

func TestGrepScopedMatch(t *testing.T) {
	e := testEngine(themeFiles())
	out, err := e.Grep(context.Background(), "basket", "sections/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Widening != "" {
		t.Errorf("expected no widening, got %q", out.Widening)
	}
	if len(out.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(out.Matches))
	}
	for _, m := range out.Matches {
		if m.Path != "sections/mini-cart.liquid" {
			t.Errorf("match outside scope: %s", m.Path)
		}
	}
	if len(out.FileIDs) != 1 || out.FileIDs[0] != "f1" {
		t.Errorf("expected file id f1, got %v", out.FileIDs)
	}
}

func TestGrepWidensToSynonymFilter(t *testing.T) {
	e := testEngine(themeFiles())
	// No path contains "checkout"; only the synonym table links it to
	// mini-cart.liquid.
	out, err := e.Grep(context.Background(), "basket", "checkout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) == 0 {
		t.Fatal("expected matches after widening")
	}
	if !strings.Contains(out.Widening, "synonym-expanded") {
		t.Errorf("expected synonym widening, got %q", out.Widening)
	}
}

func TestGrepWidensToFullProject(t *testing.T) {
	e := testEngine(themeFiles())
	out, err := e.Grep(context.Background(), "site-nav", "templates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(out.Matches))
	}
	if !strings.Contains(out.Widening, "full project") {
		t.Errorf("expected full-project widening, got %q", out.Widening)
	}
}

func TestGrepRelatedFileNames(t *testing.T) {
	e := testEngine(themeFiles())
	out, err := e.Grep(context.Background(), "bag", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 0 {
		t.Fatalf("expected no content matches, got %d", len(out.Matches))
	}
	found := false
	for _, name := range out.Related {
		if name == "sections/mini-cart.liquid" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected mini-cart suggested via synonym, got %v", out.Related)
	}

	text := e.Format(out, "bag")
	if !strings.Contains(text, "look related") {
		t.Errorf("expected related-files message, got %q", text)
	}
}

func TestGrepInvalidPattern(t *testing.T) {
	e := testEngine(themeFiles())
	if _, err := e.Grep(context.Background(), "[unclosed", ""); err == nil {
		t.Error("expected error for invalid regexp")
	}
}

func TestGrepEmptyWorkspace(t *testing.T) {
	e := testEngine(nil)
	out, err := e.Grep(context.Background(), "anything", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Empty() {
		t.Errorf("expected empty outcome, got %+v", out)
	}
}

func TestGrepMatchBudget(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "{{ product.title }}")
	}
	files := []model.FileContext{
		{FileID: "f1", Path: "templates/product.liquid", Content: strings.Join(lines, "\n")},
	}
	ws := workspace.New(nil, nil)
	for _, fc := range files {
		ws.Add(fc)
	}
	e := NewEngine(ws, config.DefaultSynonyms(), config.SearchConfig{MaxMatches: 10, MaxOutputSize: 16384}, nil)

	out, err := e.Grep(context.Background(), "product", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 10 {
		t.Errorf("expected matches capped at 10, got %d", len(out.Matches))
	}
	if !out.Truncated {
		t.Error("expected truncation flag")
	}
	if !strings.Contains(e.Format(out, "product"), "match budget") {
		t.Error("expected budget notice in formatted output")
	}
}

func TestFormatKeepsMinimumMatches(t *testing.T) {
	e := testEngine(themeFiles())
	e.cfg.MaxOutputSize = 64 // far below what even a few matches need

	var matches []model.SearchMatch
	for i := 1; i <= 20; i++ {
		matches = append(matches, model.SearchMatch{
			Path:    "sections/mini-cart.liquid",
			Line:    i,
			Content: "{{ basket.total_price | money }}",
		})
	}
	text := e.Format(GrepOutcome{Matches: matches}, "basket")
	kept := strings.Count(text, "mini-cart.liquid:")
	if kept < minKeptMatches {
		t.Errorf("expected at least %d matches kept, got %d", minKeptMatches, kept)
	}
	if !strings.Contains(text, "output budget") {
		t.Error("expected truncation notice")
	}
}

func TestGrepSkipsUnhydratableStubs(t *testing.T) {
	// No content provider, so stub entries can never hydrate. The stub
	// marker text must not be matchable.
	files := []model.FileContext{
		{FileID: "f1", Path: "sections/cart.liquid"},
	}
	e := testEngine(files)
	out, err := e.Grep(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 0 {
		t.Errorf("stub content matched: %+v", out.Matches)
	}
}
