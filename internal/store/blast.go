package store

import "fmt"

// FilesImportingModule returns the IDs of files with an import statement
// naming module, or a submodule of it.
func (s *Store) FilesImportingModule(module string) ([]int64, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT file_id FROM imports WHERE module = ? OR module LIKE ? ESCAPE '\\' ORDER BY file_id",
		module, escapeLike(module)+".%",
	)
	if err != nil {
		return nil, fmt.Errorf("files importing module: %w", err)
	}
	defer rows.Close()
	var fileIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan file id: %w", err)
		}
		fileIDs = append(fileIDs, id)
	}
	return fileIDs, rows.Err()
}

// ImportersClosure returns the files that import module directly or through
// a chain of importing modules. The files of module itself are excluded.
func (s *Store) ImportersClosure(module string) ([]int64, error) {
	seen := make(map[int64]bool)
	visitedModules := map[string]bool{module: true}
	queue := []string{module}
	var out []int64
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		ids, err := s.FilesImportingModule(m)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			var importer string
			if err := s.db.QueryRow("SELECT module FROM files WHERE id = ?", id).Scan(&importer); err != nil {
				return nil, fmt.Errorf("importer module: %w", err)
			}
			if importer == module {
				continue
			}
			out = append(out, id)
			if !visitedModules[importer] {
				visitedModules[importer] = true
				queue = append(queue, importer)
			}
		}
	}
	return out, nil
}
