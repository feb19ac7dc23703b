package pyinfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer/internal/config"
)

func testProjectFiles() map[string]string {
	return map[string]string{
		"pkg/__init__.py":  "from .sub import v\n",
		"pkg/sub.py":       "v = [1]\nv.extend([2])\n",
		"main.py":          "import pkg\nfrom pkg import v\nw = v\nu = pkg.sub.v\n",
		".hidden/x.py":     "x = 1\n",
		"__pycache__/c.py": "c = 1\n",
		"build/gen.py":     "g = 1\n",
		"README.md":        "# readme\n",
	}
}

func moduleNames(mods []*Module) []string {
	var out []string
	for _, m := range mods {
		out = append(out, m.Name)
	}
	return out
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, testProjectFiles())

	cfg, err := config.Parse(`exclude = ["build"]`)
	require.NoError(t, err)
	p := newTestProject(t, WithConfig(cfg))

	mods, err := p.LoadDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "pkg", "pkg.sub"}, moduleNames(mods))
	assert.Equal(t, moduleNames(mods), moduleNames(p.Modules()))

	pkg, err := p.ResolveModule("pkg")
	require.NoError(t, err)
	assert.True(t, pkg.Package)
	assert.Equal(t, filepath.Join(root, "pkg", "__init__.py"), pkg.Path)

	mainMod, err := p.ResolveModule("main")
	require.NoError(t, err)
	assert.Equal(t, []string{"[1, 2]"}, reprs(p.InferName(mainMod, "w")))
	assert.Equal(t, []string{"[1, 2]"}, reprs(p.InferName(mainMod, "u")))
}

func TestLoadDirectory_SkipsSyntaxErrors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"bad.py":  "def (:\n",
		"good.py": "x = 1\n",
	})
	p := newTestProject(t)

	mods, err := p.LoadDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, moduleNames(mods))
}

func TestLoadDirectory_MissingRoot(t *testing.T) {
	p := newTestProject(t)
	_, err := p.LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSources(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":            "x = 1\n",
		"a.pyi":           "x: int\n",
		"b.pyi":           "y: int\n",
		"my-scripts/s.py": "s = 1\n",
		"venv/lib/v.py":   "v = 1\n",
	})
	p := newTestProject(t)

	sources, err := p.Sources(root)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, Source{Path: filepath.Join(root, "a.py"), Module: "a"}, sources[0])
	assert.Equal(t, Source{Path: filepath.Join(root, "b.pyi"), Module: "b"}, sources[1])
}

func TestModuleForPath(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		rel  string
		want string
		ok   bool
	}{
		{"a.py", "a", true},
		{"pkg/__init__.py", "pkg", true},
		{"pkg/sub/mod.pyi", "pkg.sub.mod", true},
		{"notes.txt", "", false},
		{"my-dir/x.py", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, ok := ModuleForPath(root, filepath.Join(root, filepath.FromSlash(tt.rel)))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "from a import x\ny = x\n",
	})
	p := newTestProject(t)
	_, err := p.LoadDirectory(context.Background(), root)
	require.NoError(t, err)
	b, err := p.ResolveModule("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, reprs(p.InferName(b, "y")))

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 2\n"), 0o644))
	a, err := p.LoadFile(context.Background(), root, filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, []string{"2"}, reprs(p.InferName(b, "y")))

	_, err = p.LoadFile(context.Background(), root, filepath.Join(root, "notes.txt"))
	assert.Error(t, err)
}
