package pyinfer

import (
	"fmt"

	"github.com/jward/pyinfer/internal/store"
)

// QueryBuilder provides read access to an index.
type QueryBuilder struct {
	store *store.Store
}

// Files returns every indexed file ordered by module name.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// File returns the indexed file of a dotted module name, or nil.
func (q *QueryBuilder) File(module string) (*File, error) {
	return q.store.FileByModule(module)
}

// ExportsByName returns the inferred values of name in every module that
// exports it.
func (q *QueryBuilder) ExportsByName(name string) ([]*ModuleExport, error) {
	return q.store.ExportsByName(name)
}

// ExportsByModule returns the inferred values of the names a module exports.
func (q *QueryBuilder) ExportsByModule(module string) ([]*ModuleExport, error) {
	return q.store.ExportsByModule(module)
}

// Bindings returns every binding of name across the index.
func (q *QueryBuilder) Bindings(name string) ([]*Binding, error) {
	return q.store.BindingsByName(name)
}

// Dependencies returns the import rows of a module. It returns nil for a
// module that is not indexed.
func (q *QueryBuilder) Dependencies(module string) ([]*Import, error) {
	f, err := q.store.FileByModule(module)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.ImportsByFile(f.ID)
}

// Dependents returns the files importing a module or one of its
// submodules. With transitive set, files importing those files are
// included too.
func (q *QueryBuilder) Dependents(module string, transitive bool) ([]*File, error) {
	var ids []int64
	var err error
	if transitive {
		ids, err = q.store.ImportersClosure(module)
	} else {
		ids, err = q.store.FilesImportingModule(module)
	}
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	return q.store.FilesByIDs(ids)
}
