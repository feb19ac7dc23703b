package infer

import (
	"sync"

	"github.com/jward/pyinfer/internal/scope"
	"github.com/jward/pyinfer/internal/tree"
)

// Unit is one parsed module together with the data the engine keeps for
// it. A re-parse produces a new Unit; nothing is shared with the old one.
type Unit struct {
	Module *tree.Module
	Index  *scope.Index
	Cache  *Cache
}

// NewUnit returns a unit for m with an empty cache.
func NewUnit(m *tree.Module) *Unit {
	return &Unit{Module: m, Index: scope.New(m), Cache: NewCache()}
}

type cacheKey struct {
	node  tree.Node
	frame string
}

// Cache memoizes fully consumed result sequences per (node, frame key).
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey][]tree.Node
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]tree.Node)}
}

// Get returns the stored results for n under frame.
func (c *Cache) Get(n tree.Node, frame string) ([]tree.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[cacheKey{n, frame}]
	return res, ok
}

// Put stores results for n under frame.
func (c *Cache) Put(n tree.Node, frame string, results []tree.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{n, frame}] = results
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
