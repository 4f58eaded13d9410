package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateFileAndHydrate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fc, err := store.CreateFile(ctx, "sections/cart.liquid", "{{ cart.total_price }}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.FileID == "" {
		t.Fatal("expected generated file id")
	}
	if fc.FileType != "liquid" {
		t.Errorf("expected file type liquid, got %q", fc.FileType)
	}

	hydrated := store.Hydrate(ctx, []string{fc.FileID})
	if len(hydrated) != 1 {
		t.Fatalf("expected 1 hydrated file, got %d", len(hydrated))
	}
	if hydrated[0].Content != "{{ cart.total_price }}" {
		t.Errorf("unexpected content: %q", hydrated[0].Content)
	}
}

func TestHydrateSkipsUnknownIDs(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fc, err := store.CreateFile(ctx, "assets/theme.css", "body {}")
	if err != nil {
		t.Fatal(err)
	}

	hydrated := store.Hydrate(ctx, []string{"missing-id", fc.FileID})
	if len(hydrated) != 1 {
		t.Fatalf("expected unknown id skipped, got %d results", len(hydrated))
	}
	if hydrated[0].FileID != fc.FileID {
		t.Errorf("unexpected file: %+v", hydrated[0])
	}
}

func TestWriteContent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fc, err := store.CreateFile(ctx, "assets/theme.css", "body {}")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.WriteContent(ctx, fc.FileID, "body { margin: 0 }"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hydrated := store.Hydrate(ctx, []string{fc.FileID})
	if hydrated[0].Content != "body { margin: 0 }" {
		t.Errorf("unexpected content: %q", hydrated[0].Content)
	}
}

func TestWriteContentUnknownID(t *testing.T) {
	store := testStore(t)
	err := store.WriteContent(context.Background(), "missing-id", "x")
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !strings.Contains(err.Error(), "no stored file with id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fc, err := store.CreateFile(ctx, "snippets/badge.liquid", "<span></span>")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, fc.FileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, fc.FileID); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestRename(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fc, err := store.CreateFile(ctx, "assets/theme.css", "body {}")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Rename(ctx, fc.FileID, "assets/theme.scss"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hydrated := store.Hydrate(ctx, []string{fc.FileID})
	if hydrated[0].Path != "assets/theme.scss" {
		t.Errorf("expected new path, got %q", hydrated[0].Path)
	}
	if hydrated[0].FileType != "scss" {
		t.Errorf("expected file type updated, got %q", hydrated[0].FileType)
	}

	if err := store.Rename(ctx, "missing-id", "x"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestListFilesReturnsStubs(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateFile(ctx, "sections/header.liquid", "<header></header>"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateFile(ctx, "assets/theme.css", "body {}"); err != nil {
		t.Fatal(err)
	}

	files, err := store.ListFiles(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Path != "assets/theme.css" {
		t.Errorf("expected path-sorted order, got %s first", files[0].Path)
	}
	for _, fc := range files {
		if !fc.IsStub() {
			t.Errorf("expected stub content for %s, got %q", fc.Path, fc.Content)
		}
	}
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "sections/cart.liquid", "{{ cart.total_price }}")
	writeTestFile(t, root, "assets/theme.css", "body {}")
	writeTestFile(t, root, ".git/config", "[core]")
	writeTestFile(t, root, ".env", "SECRET=1")

	store := testStore(t)
	ctx := context.Background()

	loaded, err := store.LoadDirectory(ctx, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected dot files skipped, got %d files", len(loaded))
	}
	for _, fc := range loaded {
		if filepath.IsAbs(fc.Path) || strings.Contains(fc.Path, "\\") {
			t.Errorf("expected slash-relative path, got %q", fc.Path)
		}
	}
}

func TestLoadDirectoryKeepsExistingIDs(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "sections/cart.liquid", "v1")

	store := testStore(t)
	ctx := context.Background()

	first, err := store.LoadDirectory(ctx, root)
	if err != nil {
		t.Fatal(err)
	}

	writeTestFile(t, root, "sections/cart.liquid", "v2")
	second, err := store.LoadDirectory(ctx, root)
	if err != nil {
		t.Fatal(err)
	}

	if second[0].FileID != first[0].FileID {
		t.Errorf("reload changed the file id: %s vs %s", first[0].FileID, second[0].FileID)
	}
	hydrated := store.Hydrate(ctx, []string{second[0].FileID})
	if hydrated[0].Content != "v2" {
		t.Errorf("expected refreshed content, got %q", hydrated[0].Content)
	}
}

func TestCreateFileDuplicatePath(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateFile(ctx, "assets/theme.css", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateFile(ctx, "assets/theme.css", "b"); err == nil {
		t.Error("expected unique path constraint violation")
	}
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
