package search

import (
	"strings"
	"testing"
)

func TestPathsGlobMatch(t *testing.T) {
	e := testEngine(themeFiles())
	out := e.Paths("sections/*.liquid")
	if len(out.Paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", out.Paths)
	}
	if out.Widening != "" {
		t.Errorf("expected no widening, got %q", out.Widening)
	}
	if out.Paths[0] != "sections/header.liquid" {
		t.Errorf("expected sorted paths, got %v", out.Paths)
	}
	if len(out.FileIDs) != 2 {
		t.Errorf("expected 2 file ids, got %v", out.FileIDs)
	}
}

func TestPathsDoubleStarGlob(t *testing.T) {
	e := testEngine(themeFiles())
	out := e.Paths("**/*.liquid")
	if len(out.Paths) != 3 {
		t.Errorf("expected 3 liquid paths, got %v", out.Paths)
	}
}

func TestPathsBareFilename(t *testing.T) {
	e := testEngine(themeFiles())
	out := e.Paths("theme.js")
	if len(out.Paths) != 1 || out.Paths[0] != "assets/theme.js" {
		t.Errorf("expected assets/theme.js, got %v", out.Paths)
	}
}

func TestPathsSubstringMatch(t *testing.T) {
	e := testEngine(themeFiles())
	out := e.Paths("header")
	if len(out.Paths) != 1 || out.Paths[0] != "sections/header.liquid" {
		t.Errorf("expected header.liquid, got %v", out.Paths)
	}
}

func TestPathsSynonymWidening(t *testing.T) {
	e := testEngine(themeFiles())
	out := e.Paths("basket")
	if len(out.Paths) == 0 {
		t.Fatal("expected paths after synonym widening")
	}
	if !strings.Contains(out.Widening, "synonym-expanded") {
		t.Errorf("expected synonym widening, got %q", out.Widening)
	}
	found := false
	for _, p := range out.Paths {
		if p == "sections/mini-cart.liquid" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected mini-cart.liquid, got %v", out.Paths)
	}
}

func TestPathsNoMatch(t *testing.T) {
	e := testEngine(themeFiles())
	out := e.Paths("zamboni")
	if len(out.Paths) != 0 {
		t.Errorf("expected no paths, got %v", out.Paths)
	}
	text := e.FormatPaths(out, "zamboni")
	if !strings.Contains(text, "list_files") {
		t.Errorf("expected layout hint, got %q", text)
	}
}

func TestMatchGlobPattern(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"sections/header.liquid", "sections/*.liquid", true},
		{"sections/header.liquid", "*.liquid", true},
		{"sections/header.liquid", "snippets/*.liquid", false},
		{"assets/js/cart.js", "assets/**/*.js", true},
		{"assets/js/cart.js", "**/cart.js", true},
		{"assets/js/cart.js", "templates/**", false},
		{"theme.css", "theme.css", true},
	}
	for _, tt := range tests {
		if got := matchGlobPattern(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchGlobPattern(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}
