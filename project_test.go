package pyinfer

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer/internal/config"
	"github.com/jward/pyinfer/internal/loggingtest"
)

func newTestProject(t *testing.T, opts ...Option) *Project {
	t.Helper()
	log := loggingtest.NewTestLogger(t)
	return New(append([]Option{WithLogger(log.Logger)}, opts...)...)
}

func mustParse(t *testing.T, p *Project, modname, src string, opts ...ParseOption) *Module {
	t.Helper()
	m, err := p.Parse([]byte(src), modname, opts...)
	require.NoError(t, err)
	return m
}

// reprs renders each result with Describe.
func reprs(seq iter.Seq[Node]) []string {
	var out []string
	for n := range seq {
		out = append(out, Describe(n).Repr)
	}
	return out
}

// writeTree creates files (slash-separated relative path -> content) under
// root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New()
	require.NotNil(t, p.engine)
	assert.Equal(t, 42, p.Config().MaxInferableValues)
	assert.Empty(t, p.Modules())
}

func TestWithMaxInferableValues(t *testing.T) {
	cfg := config.Default()
	p := newTestProject(t, WithConfig(cfg), WithMaxInferableValues(2))
	assert.Equal(t, 2, p.Config().MaxInferableValues)
	assert.Equal(t, 42, cfg.MaxInferableValues, "the caller's config is not modified")

	m := mustParse(t, p, "mod", "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n")
	assert.Equal(t, []string{"1", "2", "Uninferable"}, reprs(p.InferName(m, "x")))
}

func TestParse_RegistersModule(t *testing.T) {
	p := newTestProject(t)
	b := mustParse(t, p, "b", "x = 1\n")
	a := mustParse(t, p, "a", "y = 2\n", WithPath("/src/a.py"))

	got, err := p.ResolveModule("a")
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, "/src/a.py", got.Path)

	mods := p.Modules()
	require.Len(t, mods, 2)
	assert.Same(t, a, mods[0])
	assert.Same(t, b, mods[1])
}

func TestParse_SyntaxError(t *testing.T) {
	p := newTestProject(t)
	_, err := p.Parse([]byte("def (:\n"), "bad")
	require.ErrorIs(t, err, ErrSyntax)

	_, err = p.ResolveModule("bad")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestRemove(t *testing.T) {
	p := newTestProject(t)
	mustParse(t, p, "a", "x = 1\n")
	b := mustParse(t, p, "b", "from a import x\ny = x\n")
	assert.Equal(t, []string{"1"}, reprs(p.InferName(b, "y")))

	assert.True(t, p.Remove("a"))
	assert.False(t, p.Remove("a"))
	assert.Equal(t, []string{"Uninferable"}, reprs(p.InferName(b, "y")))
}

func TestParse_ReplacesModule(t *testing.T) {
	p := newTestProject(t)
	old := mustParse(t, p, "a", "x = 1\n")
	cur := mustParse(t, p, "a", "x = 2\n")

	got, err := p.ResolveModule("a")
	require.NoError(t, err)
	assert.Same(t, cur, got)
	assert.NotEqual(t, old.Serial(), cur.Serial())
	assert.Nil(t, p.unit(old), "the replaced tree is no longer registered")

	// The old tree still infers, against its own statements.
	assert.Equal(t, []string{"1"}, reprs(p.InferName(old, "x")))
	assert.Equal(t, []string{"2"}, reprs(p.InferName(cur, "x")))
}

func TestParse_InvalidatesImporters(t *testing.T) {
	p := newTestProject(t)
	mustParse(t, p, "a", "x = 1\n")
	b := mustParse(t, p, "b", "from a import x\ny = x\n")
	c := mustParse(t, p, "c", "from b import y\nz = y\n")

	assert.Equal(t, []string{"1"}, reprs(p.InferName(c, "z")))
	assert.Equal(t, []string{"b"}, p.Importers("a"))
	assert.Equal(t, []string{"c"}, p.Importers("b"))
	assert.Positive(t, p.unit(b).Cache.Len())
	assert.Positive(t, p.unit(c).Cache.Len())

	mustParse(t, p, "a", "x = 2\n")
	assert.Zero(t, p.unit(b).Cache.Len())
	assert.Zero(t, p.unit(c).Cache.Len(), "transitive importers are invalidated")

	assert.Equal(t, []string{"2"}, reprs(p.InferName(b, "y")))
	assert.Equal(t, []string{"2"}, reprs(p.InferName(c, "z")))
}

func TestParse_ModuleRegisteredAfterImporter(t *testing.T) {
	p := newTestProject(t)
	b := mustParse(t, p, "b", "from a import x\ny = x\n")
	assert.Equal(t, []string{"Uninferable"}, reprs(p.InferName(b, "y")))
	assert.Equal(t, []string{"b"}, p.Importers("a"))

	mustParse(t, p, "a", "x = 1\n")
	assert.Equal(t, []string{"1"}, reprs(p.InferName(b, "y")))
}

func TestParse_ReparsedImporterForgetsOldImports(t *testing.T) {
	p := newTestProject(t)
	mustParse(t, p, "a", "x = 1\n")
	b := mustParse(t, p, "b", "from a import x\ny = x\n")
	reprs(p.InferName(b, "y"))
	require.Equal(t, []string{"b"}, p.Importers("a"))

	mustParse(t, p, "b", "y = 3\n")
	assert.Empty(t, p.Importers("a"))
}

func TestProject_ConcurrentParseAndInfer(t *testing.T) {
	p := newTestProject(t)
	mustParse(t, p, "base", "x = [1]\n")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("m%d", i)
			m, err := p.Parse([]byte("from base import x\ny = x\n"), name)
			if !assert.NoError(t, err) {
				return
			}
			for range 20 {
				got := reprs(p.InferName(m, "y"))
				assert.Len(t, got, 1)
			}
			if i%2 == 0 {
				_, err := p.Parse([]byte("x = [2]\n"), "base")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, p.Modules(), 9)
	m, err := p.ResolveModule("m0")
	require.NoError(t, err)
	assert.Equal(t, []string{"[2]"}, reprs(p.InferName(m, "y")))
}
