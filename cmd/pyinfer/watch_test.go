package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/config"
	"github.com/jward/pyinfer/internal/loggingtest"
)

func newTestHandler(t *testing.T, root string, c *config.Config) (*changeHandler, *[]CLIResult) {
	t.Helper()
	log := loggingtest.NewTestLogger(t).Logger
	ix, err := pyinfer.Open(filepath.Join(t.TempDir(), "index.db"), pyinfer.WithConfig(c), pyinfer.WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	require.NoError(t, ix.IndexDirectory(context.Background(), root))

	var printed []CLIResult
	h := &changeHandler{ix: ix, root: root, cfg: c, log: log, out: func(r CLIResult) error {
		printed = append(printed, r)
		return nil
	}}
	return h, &printed
}

func TestChangeHandler_ReindexesChangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "from a import x\ny = x\n",
	})
	h, printed := newTestHandler(t, root, config.Default())
	ctx := context.Background()

	writeFiles(t, root, map[string]string{"a.py": "x = [1]\nx.append(2)\n"})
	require.NoError(t, h.handle(ctx, []string{filepath.Join(root, "a.py")}))

	require.Len(t, *printed, 1)
	exports := (*printed)[0].Results.([]CLIExport)
	require.Len(t, exports, 1)
	assert.Equal(t, "a", exports[0].Module)
	assert.Equal(t, "x", exports[0].Name)
	assert.Equal(t, "[1, 2]", exports[0].Repr)

	rows, err := h.ix.Query().ExportsByModule("b")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "[1, 2]", rows[0].Repr, "importers are re-exported")
}

func TestChangeHandler_RemovedFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "from a import x\ny = x\n",
	})
	h, printed := newTestHandler(t, root, config.Default())

	require.NoError(t, os.Remove(filepath.Join(root, "a.py")))
	require.NoError(t, h.handle(context.Background(), []string{filepath.Join(root, "a.py")}))

	assert.Empty(t, *printed)
	_, err := h.ix.Project().ResolveModule("a")
	assert.ErrorIs(t, err, pyinfer.ErrModuleNotFound)
	rows, err := h.ix.Query().ExportsByModule("b")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Uninferable", rows[0].Repr)
}

func TestChangeHandler_SkipsExcludedAndBrokenFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x = 1\n"})
	c, err := config.Parse("exclude = [\"gen\"]\n")
	require.NoError(t, err)
	h, printed := newTestHandler(t, root, c)

	writeFiles(t, root, map[string]string{
		"gen/out.py": "z = 1\n",
		"bad.py":     "def (:\n",
	})
	require.NoError(t, h.handle(context.Background(), []string{
		filepath.Join(root, "gen", "out.py"),
		filepath.Join(root, "bad.py"),
	}))

	assert.Empty(t, *printed)
	assert.Len(t, h.ix.Project().Modules(), 1)
}

func TestWatcher_DebouncesIntoOneBatch(t *testing.T) {
	var calls [][]string
	w, err := newWatcher(time.Hour, func(paths []string) { calls = append(calls, paths) })
	require.NoError(t, err)
	defer w.Close()

	w.schedule("/r/b.py")
	w.schedule("/r/a.py")
	w.schedule("/r/b.py")
	w.flush()
	w.flush()

	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/r/a.py", "/r/b.py"}, calls[0])
}

func TestWatcher_ReportsPythonFiles(t *testing.T) {
	root := t.TempDir()
	var mu sync.Mutex
	seen := make(map[string]bool)
	w, err := newWatcher(20*time.Millisecond, func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range paths {
			seen[p] = true
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(root))

	writeFiles(t, root, map[string]string{
		"notes.txt": "ignored\n",
		"mod.py":    "x = 1\n",
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg"), 0o755))
	// Give the watcher time to add the new directory before writing into it.
	time.Sleep(50 * time.Millisecond)
	writeFiles(t, root, map[string]string{"pkg/sub.py": "y = 2\n"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[filepath.Join(root, "mod.py")] && seen[filepath.Join(root, "pkg", "sub.py")]
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, seen[filepath.Join(root, "notes.txt")])
}

func TestSkipWatchDir(t *testing.T) {
	for _, name := range []string{".git", ".venv", "__pycache__", "venv", "node_modules"} {
		assert.True(t, skipWatchDir(name), name)
	}
	assert.False(t, skipWatchDir("pkg"))
}
