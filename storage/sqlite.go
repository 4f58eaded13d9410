// Package storage provides SQLite-backed file persistence.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/stitch/model"
)

// SqliteStore persists project files in a SQLite database. It backs the
// working set: stubs are hydrated from here on demand and every edit is
// written through before memory is updated.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each new connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			file_type TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_files_path
		ON files(path);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateFile inserts a brand-new file and returns its working-set entry.
func (s *SqliteStore) CreateFile(ctx context.Context, path, content string) (model.FileContext, error) {
	fc := model.FileContext{
		FileID:   uuid.New().String(),
		Path:     path,
		FileType: fileTypeOf(path),
		Content:  content,
	}

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, path, file_type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		fc.FileID, fc.Path, fc.FileType, fc.Content, now, now)
	if err != nil {
		return model.FileContext{}, fmt.Errorf("failed to create file: %w", err)
	}
	return fc, nil
}

// Hydrate loads content for the given file ids. Files it cannot load are
// simply absent from the result; the working set keeps their stubs.
func (s *SqliteStore) Hydrate(ctx context.Context, fileIDs []string) []model.FileContext {
	var out []model.FileContext
	for _, id := range fileIDs {
		var fc model.FileContext
		err := s.db.QueryRowContext(ctx,
			"SELECT id, path, file_type, content FROM files WHERE id = ?",
			id).Scan(&fc.FileID, &fc.Path, &fc.FileType, &fc.Content)
		if err != nil {
			continue
		}
		out = append(out, fc)
	}
	return out
}

// WriteContent replaces a file's stored content.
func (s *SqliteStore) WriteContent(ctx context.Context, fileID, newContent string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE files SET content = ?, updated_at = ? WHERE id = ?",
		newContent, time.Now().Unix(), fileID)
	if err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return requireOneRow(res, fileID)
}

// Delete removes a file.
func (s *SqliteStore) Delete(ctx context.Context, fileID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return requireOneRow(res, fileID)
}

// Rename moves a file to a new path.
func (s *SqliteStore) Rename(ctx context.Context, fileID, newPath string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE files SET path = ?, file_type = ?, updated_at = ? WHERE id = ?",
		newPath, fileTypeOf(newPath), time.Now().Unix(), fileID)
	if err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return requireOneRow(res, fileID)
}

// ListFiles returns working-set entries for every stored file, content left
// as stubs so sessions start light and hydrate on demand.
func (s *SqliteStore) ListFiles(ctx context.Context) ([]model.FileContext, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, file_type FROM files ORDER BY path ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := []model.FileContext{}
	for rows.Next() {
		var fc model.FileContext
		if err := rows.Scan(&fc.FileID, &fc.Path, &fc.FileType); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		fc.Content = model.StubContent
		files = append(files, fc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// LoadDirectory walks a project directory on disk and upserts every regular
// file into the store, keyed by its path relative to root. Returns the
// working-set entries for the loaded files.
func (s *SqliteStore) LoadDirectory(ctx context.Context, root string) ([]model.FileContext, error) {
	root = filepath.Clean(root)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (id, path, file_type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			file_type = excluded.file_type,
			updated_at = excluded.updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	var loaded []model.FileContext

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		fc := model.FileContext{
			FileID:   uuid.New().String(),
			Path:     rel,
			FileType: fileTypeOf(rel),
			Content:  string(data),
		}
		if _, err := stmt.ExecContext(ctx, fc.FileID, fc.Path, fc.FileType, fc.Content, now, now); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", rel, err)
		}
		loaded = append(loaded, fc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Upserts on existing paths keep the stored id, so re-read ids for the
	// paths we just loaded.
	for i := range loaded {
		var id string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM files WHERE path = ?", loaded[i].Path).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve id for %s: %w", loaded[i].Path, err)
		}
		loaded[i].FileID = id
	}

	return loaded, nil
}

// requireOneRow errors when a statement touched no rows, so callers learn
// about unknown ids instead of silently succeeding.
func requireOneRow(res sql.Result, fileID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no stored file with id %s", fileID)
	}
	return nil
}

func fileTypeOf(p string) string {
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(ext)
}

// Verify SqliteStore implements the working-set interfaces
var _ model.ContentProvider = (*SqliteStore)(nil)
var _ model.Persistence = (*SqliteStore)(nil)
