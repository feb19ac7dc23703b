package store

import "fmt"

// CommitBatch inserts all buffered rows of a BatchedStore within a single
// transaction. Fake IDs are replaced by the IDs SQLite assigns. When
// replaceExports is set, the export rows already stored for the batch's
// files are deleted first.
func (s *Store) CommitBatch(batch *BatchedStore, replaceExports bool) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if replaceExports {
		files := make(map[int64]bool)
		for _, e := range batch.Exports {
			files[e.FileID] = true
		}
		for id := range files {
			if _, err := tx.Exec("DELETE FROM exports WHERE file_id = ?", id); err != nil {
				return fmt.Errorf("commit batch: delete exports: %w", err)
			}
		}
	}

	for i := range batch.Bindings {
		b := &batch.Bindings[i]
		id, err := insertBinding(tx, b)
		if err != nil {
			return fmt.Errorf("commit batch: binding %q: %w", b.Name, err)
		}
		b.ID = id
	}
	for i := range batch.Imports {
		imp := &batch.Imports[i]
		id, err := insertImport(tx, imp)
		if err != nil {
			return fmt.Errorf("commit batch: import %q: %w", imp.Module, err)
		}
		imp.ID = id
	}
	for i := range batch.Exports {
		e := &batch.Exports[i]
		id, err := insertExport(tx, e)
		if err != nil {
			return fmt.Errorf("commit batch: export %q: %w", e.Name, err)
		}
		e.ID = id
	}

	return tx.Commit()
}
