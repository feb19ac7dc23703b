package infer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer/internal/parser"
	"github.com/jward/pyinfer/internal/tree"
)

// testRegistry is a minimal Registry over a name -> unit map.
type testRegistry struct {
	mu       sync.Mutex
	units    map[string]*Unit
	imported map[string][]string
}

func newTestRegistry() *testRegistry {
	return &testRegistry{units: make(map[string]*Unit), imported: make(map[string][]string)}
}

func (r *testRegistry) Unit(m *tree.Module) *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.units[m.Name]; u != nil && u.Module == m {
		return u
	}
	return nil
}

func (r *testRegistry) ResolveModule(name string) *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.units[name]
}

func (r *testRegistry) Imported(importer *tree.Module, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported[importer.Name] = append(r.imported[importer.Name], name)
}

func (r *testRegistry) add(t *testing.T, name, src string, opts ...parser.Option) *Unit {
	t.Helper()
	m, err := parser.Parse([]byte(src), name, opts...)
	require.NoError(t, err)
	u := NewUnit(m)
	r.mu.Lock()
	r.units[name] = u
	r.mu.Unlock()
	return u
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *testRegistry) {
	t.Helper()
	reg := newTestRegistry()
	return New(reg, opts...), reg
}

// render unparses each result.
func render(nodes []tree.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = tree.Unparse(n)
	}
	return out
}

// nameAt returns the first Load name ident on line.
func nameAt(t *testing.T, m *tree.Module, ident string, line int) *tree.Name {
	t.Helper()
	for n := range tree.Walk(m) {
		if name, ok := n.(*tree.Name); ok && name.Ident == ident && name.Ctx == tree.Load && name.Pos().Line == line {
			return name
		}
	}
	t.Fatalf("no use of %q on line %d", ident, line)
	return nil
}

// valueOf returns the value expression of the last top-level assignment to
// ident.
func valueOf(t *testing.T, m *tree.Module, ident string) tree.Node {
	t.Helper()
	var out tree.Node
	for _, s := range m.Body {
		if a, ok := s.(*tree.Assign); ok {
			for _, target := range a.Targets {
				if name, ok := target.(*tree.Name); ok && name.Ident == ident {
					out = a.Value
				}
			}
		}
	}
	require.NotNil(t, out, "no assignment to %q", ident)
	return out
}

// inferAtEnd infers ident as seen at the end of the module.
func inferAtEnd(t *testing.T, e *Engine, u *Unit, ident string) []tree.Node {
	t.Helper()
	return collect(e.InferAttr(u.Module, ident, nil))
}
