package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelatedIncludesTermItself(t *testing.T) {
	table := DefaultSynonyms()
	related := table.Related("cart")
	if len(related) == 0 || related[0] != "cart" {
		t.Fatalf("expected cart first, got %v", related)
	}
}

func TestRelatedDirectLookup(t *testing.T) {
	table := DefaultSynonyms()
	related := table.Related("cart")

	want := map[string]bool{"mini-cart": true, "basket": true, "bag": true, "checkout": true}
	for _, term := range related {
		delete(want, term)
	}
	if len(want) != 0 {
		t.Errorf("missing related terms for cart: %v", want)
	}
}

func TestRelatedDeterministicOrder(t *testing.T) {
	table := DefaultSynonyms()
	want := []string{"cart", "bag", "basket", "checkout", "mini-cart"}
	for i := 0; i < 5; i++ {
		related := table.Related("cart")
		if len(related) != len(want) {
			t.Fatalf("expected %v, got %v", want, related)
		}
		for j := range want {
			if related[j] != want[j] {
				t.Fatalf("expected %v, got %v", want, related)
			}
		}
	}
}

func TestRelatedSymmetric(t *testing.T) {
	table := DefaultSynonyms()
	related := table.Related("basket")

	found := false
	for _, term := range related {
		if term == "cart" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected basket to resolve back to cart, got %v", related)
	}
}

func TestRelatedSiblings(t *testing.T) {
	table := DefaultSynonyms()
	related := table.Related("basket")

	found := false
	for _, term := range related {
		if term == "mini-cart" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected basket to include sibling mini-cart, got %v", related)
	}
}

func TestRelatedCaseInsensitive(t *testing.T) {
	table := DefaultSynonyms()
	upper := table.Related("CART")
	lower := table.Related("cart")
	if len(upper) != len(lower) {
		t.Errorf("case-sensitive lookup: got %v vs %v", upper, lower)
	}
}

func TestRelatedUnknownTerm(t *testing.T) {
	table := DefaultSynonyms()
	related := table.Related("zamboni")
	if len(related) != 1 || related[0] != "zamboni" {
		t.Errorf("expected only the term itself, got %v", related)
	}
}

func TestLoadSynonymsEmptyPath(t *testing.T) {
	table, err := LoadSynonyms("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) == 0 {
		t.Error("expected default table, got empty")
	}
}

func TestLoadSynonymsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.json")
	data := `{"sidebar": ["drawer", "panel"]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadSynonyms(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	related := table.Related("drawer")
	found := false
	for _, term := range related {
		if term == "sidebar" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected drawer to resolve to sidebar, got %v", related)
	}
}

func TestLoadSynonymsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSynonyms(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadSynonymsMissingFile(t *testing.T) {
	if _, err := LoadSynonyms("/nonexistent/synonyms.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
