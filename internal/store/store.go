// Package store persists the per-file results of indexing a Python project:
// the bindings and imports of each module and the inferred values of its
// exported names.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the index database.
type Store struct {
	db *sql.DB
}

const dsnParams = "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"

// NewStore opens (creating if needed) the index database at dbPath. The
// schema is not applied until Migrate is called.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle so callers can run their own transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate applies the schema. Running it against an existing index is a
// no-op.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  module          TEXT NOT NULL,
  is_package      BOOLEAN DEFAULT FALSE,
  hash            TEXT,
  exports_hash    TEXT,
  line_count      INTEGER,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bindings (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  scope           TEXT NOT NULL,
  line            INTEGER,
  col             INTEGER
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  module          TEXT NOT NULL,
  name            TEXT,
  asname          TEXT,
  level           INTEGER DEFAULT 0,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS exports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  literal         TEXT,
  repr            TEXT NOT NULL,
  origin          TEXT,
  line            INTEGER,
  col             INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_module ON files(module);
CREATE INDEX IF NOT EXISTS idx_bindings_file ON bindings(file_id);
CREATE INDEX IF NOT EXISTS idx_bindings_name ON bindings(name);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_module ON imports(module);
CREATE INDEX IF NOT EXISTS idx_exports_file ON exports(file_id);
CREATE INDEX IF NOT EXISTS idx_exports_name ON exports(name);
`

// DeleteFileData transactionally removes the rows derived from a file,
// keeping the file record itself.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFile removes a file and everything derived from it.
func (s *Store) DeleteFile(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return tx.Commit()
}

func deleteFileDataTx(tx *sql.Tx, fileID int64) error {
	for _, q := range []string{
		"DELETE FROM exports WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
		"DELETE FROM bindings WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return nil
}

// DeleteExportsForFiles removes the export rows of the given files, ahead of
// re-inferring them.
func (s *Store) DeleteExportsForFiles(fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec("DELETE FROM exports WHERE file_id IN ("+placeholderList(len(fileIDs))+")", int64sToArgs(fileIDs)...)
	if err != nil {
		return fmt.Errorf("delete exports: %w", err)
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" if there is none.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}
