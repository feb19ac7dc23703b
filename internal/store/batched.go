package store

import "sync"

// BatchedStore buffers the rows of one file in memory using fake (negative)
// IDs, so that workers can extract concurrently while a single goroutine
// writes to SQLite.
type BatchedStore struct {
	mu sync.Mutex

	Bindings []Binding
	Imports  []Import
	Exports  []Export

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertBinding(bd *Binding) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bd.ID = b.allocFakeID()
	b.Bindings = append(b.Bindings, *bd)
	return bd.ID, nil
}

func (b *BatchedStore) InsertImport(imp *Import) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	imp.ID = b.allocFakeID()
	b.Imports = append(b.Imports, *imp)
	return imp.ID, nil
}

func (b *BatchedStore) InsertExport(e *Export) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ID = b.allocFakeID()
	b.Exports = append(b.Exports, *e)
	return e.ID, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Bindings) + len(b.Imports) + len(b.Exports)
}
