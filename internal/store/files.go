package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const fileColumns = "id, path, module, is_package, hash, COALESCE(exports_hash, ''), line_count, last_indexed"

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, module, is_package, hash, exports_hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.Path, f.Module, f.IsPackage, f.Hash, f.ExportsHash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	if err := scanner.Scan(&f.ID, &f.Path, &f.Module, &f.IsPackage, &f.Hash, &f.ExportsHash, &f.LineCount, &f.LastIndexed); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) queryFile(query string, args ...any) (*File, error) {
	f, err := scanFile(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

// FileByPath returns the file recorded for path, or nil.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := s.queryFile("SELECT "+fileColumns+" FROM files WHERE path = ?", path)
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FileByModule returns the file recorded for a dotted module name, or nil.
func (s *Store) FileByModule(module string) (*File, error) {
	f, err := s.queryFile("SELECT "+fileColumns+" FROM files WHERE module = ? ORDER BY path LIMIT 1", module)
	if err != nil {
		return nil, fmt.Errorf("file by module: %w", err)
	}
	return f, nil
}

// Files returns every file ordered by module name.
func (s *Store) Files() ([]*File, error) {
	return s.queryFiles("SELECT " + fileColumns + " FROM files ORDER BY module, path")
}

// FilesByIDs returns the files with the given IDs ordered by module name.
func (s *Store) FilesByIDs(ids []int64) ([]*File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryFiles(
		"SELECT "+fileColumns+" FROM files WHERE id IN ("+placeholderList(len(ids))+") ORDER BY module, path",
		int64sToArgs(ids)...,
	)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SetExportsHash records the fingerprint of a file's export rows.
func (s *Store) SetExportsHash(fileID int64, hash string) error {
	if _, err := s.db.Exec("UPDATE files SET exports_hash = ? WHERE id = ?", hash, fileID); err != nil {
		return fmt.Errorf("set exports hash: %w", err)
	}
	return nil
}

// --- Binding operations ---

func (s *Store) InsertBinding(b *Binding) (int64, error) {
	id, err := insertBinding(s.db, b)
	if err != nil {
		return 0, fmt.Errorf("insert binding: %w", err)
	}
	b.ID = id
	return id, nil
}

func (s *Store) BindingsByFile(fileID int64) ([]*Binding, error) {
	return s.queryBindings("SELECT id, file_id, name, kind, scope, line, col FROM bindings WHERE file_id = ? ORDER BY line, col", fileID)
}

func (s *Store) BindingsByName(name string) ([]*Binding, error) {
	return s.queryBindings("SELECT id, file_id, name, kind, scope, line, col FROM bindings WHERE name = ? ORDER BY file_id, line, col", name)
}

func (s *Store) queryBindings(query string, args ...any) ([]*Binding, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bindings: %w", err)
	}
	defer rows.Close()
	var out []*Binding
	for rows.Next() {
		b := &Binding{}
		if err := rows.Scan(&b.ID, &b.FileID, &b.Name, &b.Kind, &b.Scope, &b.Line, &b.Col); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Import operations ---

func (s *Store) InsertImport(imp *Import) (int64, error) {
	id, err := insertImport(s.db, imp)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	imp.ID = id
	return id, nil
}

func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, module, name, asname, level, line FROM imports WHERE file_id = ? ORDER BY line, id",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Module, &imp.Name, &imp.AsName, &imp.Level, &imp.Line); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// --- Export operations ---

func (s *Store) InsertExport(e *Export) (int64, error) {
	id, err := insertExport(s.db, e)
	if err != nil {
		return 0, fmt.Errorf("insert export: %w", err)
	}
	e.ID = id
	return id, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertBinding(db execer, b *Binding) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO bindings (file_id, name, kind, scope, line, col) VALUES (?, ?, ?, ?, ?, ?)",
		b.FileID, b.Name, b.Kind, b.Scope, b.Line, b.Col,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertImport(db execer, imp *Import) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO imports (file_id, module, name, asname, level, line) VALUES (?, ?, ?, ?, ?, ?)",
		imp.FileID, imp.Module, imp.Name, imp.AsName, imp.Level, imp.Line,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertExport(db execer, e *Export) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO exports (file_id, name, kind, literal, repr, origin, line, col) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.FileID, e.Name, e.Kind, e.Literal, e.Repr, e.Origin, e.Line, e.Col,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
