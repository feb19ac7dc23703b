package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-index Python files as they change",
	Long:  "Indexes path, then watches it for changes. Changed files are re-parsed and re-indexed, the inference caches of their importers are dropped, and the exports of the changed modules are printed.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	ix, err := pyinfer.Open(resolveDBPath(findRepoRoot(targetDir)), projectOptions()...)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer ix.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ix.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	h := &changeHandler{ix: ix, root: targetDir, cfg: cfg, log: logger.Logger.Named("watch"), out: outputResult}
	w, err := newWatcher(cfg.Watch.Debounce, func(paths []string) {
		if err := h.handle(ctx, paths); err != nil {
			h.log.Error("re-index failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Watch(targetDir); err != nil {
		return fmt.Errorf("watching %s: %w", targetDir, err)
	}

	fmt.Fprintf(os.Stderr, "Watching %s\n", targetDir)
	<-ctx.Done()
	return nil
}

// changeHandler re-indexes batches of changed paths.
type changeHandler struct {
	ix   *pyinfer.Indexer
	root string
	cfg  *config.Config
	log  *zap.Logger
	out  func(CLIResult) error
}

func (h *changeHandler) handle(ctx context.Context, paths []string) error {
	var mods []*pyinfer.Module
	var gone []string
	for _, path := range paths {
		rel, err := filepath.Rel(h.root, path)
		if err != nil || h.cfg.Excluded(rel) {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, path)
			continue
		}
		m, err := h.ix.Project().LoadFile(ctx, h.root, path)
		if err != nil {
			h.log.Warn("skipping file", zap.String("path", path), zap.Error(err))
			continue
		}
		mods = append(mods, m)
	}

	if err := h.ix.RemovePaths(ctx, gone); err != nil {
		return err
	}
	if err := h.ix.IndexModules(ctx, mods); err != nil {
		return err
	}
	for _, path := range gone {
		h.log.Info("removed", zap.String("path", path))
	}

	var out []CLIExport
	for _, m := range mods {
		rows, err := h.ix.Query().ExportsByModule(m.Name)
		if err != nil {
			return err
		}
		exps, err := exportsToCLI(rows)
		if err != nil {
			return err
		}
		out = append(out, exps...)
	}
	if len(mods) == 0 {
		return nil
	}
	return h.out(CLIResult{Command: "watch", Results: out})
}

// watcher collects file system events below a root and reports the changed
// Python files in debounced batches.
type watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func([]string)
	// callMu keeps onChange calls from overlapping.
	callMu sync.Mutex

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	done    chan struct{}
}

func newWatcher(debounce time.Duration, onChange func([]string)) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &watcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]bool),
		done:     make(chan struct{}),
	}, nil
}

// Watch adds root and its directories and starts delivering events.
func (w *watcher) Watch(root string) error {
	if err := w.addRecursive(root); err != nil {
		return err
	}
	go w.run()
	return nil
}

func (w *watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipWatchDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func skipWatchDir(name string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains([]string{"__pycache__", "node_modules", "site-packages", "venv"}, name)
}

func isPythonFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".py" || ext == ".pyi"
}

func (w *watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !skipWatchDir(filepath.Base(event.Name)) {
						if err := w.addRecursive(event.Name); err == nil {
							w.enqueueExisting(event.Name)
						}
					}
					continue
				}
			}
			if !isPythonFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(event.Name)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// enqueueExisting schedules the Python files already present in a newly
// created directory, which may have been written before it was watched.
func (w *watcher) enqueueExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && isPythonFile(path) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(paths) > 0 {
		slices.Sort(paths)
		w.callMu.Lock()
		defer w.callMu.Unlock()
		w.onChange(paths)
	}
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	return w.fsw.Close()
}
