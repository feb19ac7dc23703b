package store

// DataStore is the write interface used while extracting a file. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// indexing) implement it.
type DataStore interface {
	InsertBinding(b *Binding) (int64, error)
	InsertImport(imp *Import) (int64, error)
	InsertExport(e *Export) (int64, error)
}

// *Store writes rows directly, outside a batch.
var _ DataStore = (*Store)(nil)
