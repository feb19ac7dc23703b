package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/pyinfer"
)

// Runtime embeds a Risor VM and exposes a Project's inference operations
// to analysis scripts.
type Runtime struct {
	project    *pyinfer.Project
	query      *pyinfer.QueryBuilder
	log        *zap.Logger
	scriptsDir string
	fsys       fs.FS

	mu      sync.Mutex
	reports []map[string]any
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Import statements are then resolved against the
// same filesystem.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the scripts' log global.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// WithQuery exposes a persistent index to scripts through the indexed_*
// and dependents host functions.
func WithQuery(q *pyinfer.QueryBuilder) RuntimeOption {
	return func(r *Runtime) {
		r.query = q
	}
}

// NewRuntime creates a Runtime over p. Relative script paths and imports
// resolve against scriptsDir. A nil project gets an empty one.
func NewRuntime(p *pyinfer.Project, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		project:    p,
		log:        zap.NewNop(),
		scriptsDir: scriptsDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.project == nil {
		r.project = pyinfer.New(pyinfer.WithLogger(r.log))
	}
	return r
}

// Project returns the project scripts operate on.
func (r *Runtime) Project() *pyinfer.Project {
	return r.project
}

// Reports returns the records scripts passed to report, in call order.
func (r *Runtime) Reports() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.reports...)
}

func (r *Runtime) addReport(rec map[string]any) {
	r.mu.Lock()
	r.reports = append(r.reports, rec)
	r.mu.Unlock()
}

// RunScript runs the script at scriptPath. extraGlobals are added to, and
// take precedence over, the host functions.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, scriptPath, src, extraGlobals)
}

// RunSource is RunScript for script text held in memory.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, "<inline>", source, extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, label, source string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)
	names := slices.Sorted(maps.Keys(globals))

	opts := make([]risor.Option, 0, len(names)+1)
	for _, name := range names {
		opts = append(opts, risor.WithGlobal(name, globals[name]))
	}
	if imp := r.scriptImporter(names); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	r.log.Debug("running script", zap.String("script", label), zap.Int("globals", len(names)))
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// scriptImporter resolves import statements against the configured fs.FS, or
// else the scripts directory. Imported modules see the same global names as
// the importing script. It returns nil when neither is configured.
func (r *Runtime) scriptImporter(globalNames []string) importer.Importer {
	exts := []string{".risor"}
	switch {
	case r.fsys != nil:
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  exts,
		})
	case r.scriptsDir != "":
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  exts,
		})
	}
	return nil
}

// LoadScript returns the source of a .risor file. With an fs.FS configured
// the path is taken relative to the FS root, so a leading slash is ignored.
// Otherwise relative paths are joined to the scripts directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		name := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return "", fmt.Errorf("runtime: load %s from fs: %w", name, err)
		}
		return string(data), nil
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("runtime: load %s: %w", path, err)
	}
	return string(data), nil
}

func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	p := r.project
	globals := map[string]any{
		"modules":   makeModulesFn(p),
		"parse":     makeParseFn(p),
		"parse_src": makeParseSrcFn(p),
		"infer":     makeInferFn(p),
		"literal":   makeLiteralFn(p),
		"unparse":   makeUnparseFn(p),
		"bindings":  makeBindingsFn(p),
		"exports":   makeExportsFn(p),
		"resolve":   makeResolveFn(p),
		"report":    makeReportFn(r.addReport),
		"log":       mustProxy(&logObject{log: r.log.Named("script")}),
	}

	if r.query != nil {
		globals["indexed_exports"] = makeIndexedExportsFn(r.query)
		globals["indexed_bindings"] = makeIndexedBindingsFn(r.query)
		globals["dependents"] = makeDependentsFn(r.query)
	}

	maps.Copy(globals, extra)
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
