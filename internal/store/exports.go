package store

import "fmt"

const moduleExportColumns = `e.id, e.file_id, e.name, e.kind, e.literal, e.repr, COALESCE(e.origin, ''), e.line, e.col, f.module, f.path`

func (s *Store) queryExports(query string, args ...any) ([]*ModuleExport, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()
	var out []*ModuleExport
	for rows.Next() {
		e := &ModuleExport{}
		if err := rows.Scan(&e.ID, &e.FileID, &e.Name, &e.Kind, &e.Literal, &e.Repr, &e.Origin,
			&e.Line, &e.Col, &e.Module, &e.Path); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportsByFile returns the export rows of a file in insertion order.
func (s *Store) ExportsByFile(fileID int64) ([]*ModuleExport, error) {
	return s.queryExports(
		`SELECT `+moduleExportColumns+` FROM exports e JOIN files f ON f.id = e.file_id
		 WHERE e.file_id = ? ORDER BY e.id`, fileID)
}

// ExportsByModule returns the export rows of a dotted module name.
func (s *Store) ExportsByModule(module string) ([]*ModuleExport, error) {
	return s.queryExports(
		`SELECT `+moduleExportColumns+` FROM exports e JOIN files f ON f.id = e.file_id
		 WHERE f.module = ? ORDER BY f.path, e.id`, module)
}

// ExportsByName returns every module's export rows for name.
func (s *Store) ExportsByName(name string) ([]*ModuleExport, error) {
	return s.queryExports(
		`SELECT `+moduleExportColumns+` FROM exports e JOIN files f ON f.id = e.file_id
		 WHERE e.name = ? ORDER BY f.module, e.id`, name)
}
