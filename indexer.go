package pyinfer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/pyinfer/internal/infer"
	"github.com/jward/pyinfer/internal/store"
	"github.com/jward/pyinfer/internal/tree"
)

// indexVersion is bumped whenever the rows written for a module change
// shape or meaning. An index built by another version is rebuilt.
const indexVersion = "1"

// Indexer persists the bindings, imports and inferred exports of a project
// to SQLite.
type Indexer struct {
	store   *store.Store
	project *Project
	log     *zap.Logger
}

// Open creates an Indexer backed by a SQLite database at dbPath. The options
// configure the Project used for inference.
func Open(dbPath string, opts ...Option) (*Indexer, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("pyinfer: create index directory: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("pyinfer: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("pyinfer: migrate: %w", err)
	}
	p := New(opts...)
	ix := &Indexer{store: s, project: p, log: p.log.Named("index")}
	if err := ix.checkVersion(); err != nil {
		s.Close()
		return nil, err
	}
	return ix, nil
}

// Close releases the Indexer's database resources.
func (ix *Indexer) Close() error {
	return ix.store.Close()
}

// Store returns the underlying Store for direct access.
func (ix *Indexer) Store() *store.Store {
	return ix.store
}

// Project returns the in-memory project the Indexer infers with.
func (ix *Indexer) Project() *Project {
	return ix.project
}

// Query returns a new QueryBuilder over the index.
func (ix *Indexer) Query() *QueryBuilder {
	return &QueryBuilder{store: ix.store}
}

// checkVersion drops every row written by a different index version.
func (ix *Indexer) checkVersion() error {
	stored, err := ix.store.GetMetadata("index_version")
	if err != nil {
		return fmt.Errorf("pyinfer: %w", err)
	}
	if stored == indexVersion {
		return nil
	}
	files, err := ix.store.Files()
	if err != nil {
		return fmt.Errorf("pyinfer: %w", err)
	}
	for _, f := range files {
		if err := ix.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("pyinfer: reset index: %w", err)
		}
	}
	if len(files) > 0 {
		ix.log.Info("index version changed, rebuilding", zap.String("from", stored), zap.String("to", indexVersion))
	}
	return ix.store.SetMetadata("index_version", indexVersion)
}

// workItem holds everything an extraction worker needs.
type workItem struct {
	module *tree.Module
	fileID int64
	batch  *store.BatchedStore

	// existed is set when the file was indexed before; oldExportsHash is the
	// fingerprint of its previous exports.
	existed        bool
	oldExportsHash string
}

// IndexDirectory loads every module under root into the project and
// indexes the files that changed since the last run. Files that
// disappeared from root are dropped from the index.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("pyinfer: index %s: %w", root, err)
	}
	mods, err := ix.project.LoadDirectory(ctx, absRoot)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(mods))
	for _, m := range mods {
		present[m.Path] = true
	}
	var removed []string
	files, err := ix.store.Files()
	if err != nil {
		return fmt.Errorf("pyinfer: %w", err)
	}
	prefix := absRoot + string(filepath.Separator)
	for _, f := range files {
		if strings.HasPrefix(f.Path, prefix) && !present[f.Path] {
			if err := ix.dropFile(f); err != nil {
				return err
			}
			removed = append(removed, f.Module)
		}
	}

	return ix.indexModules(ctx, mods, removed)
}

// RemovePaths drops the files at paths from the index and the project, then
// re-exports their importers. Paths that were never indexed are ignored.
func (ix *Indexer) RemovePaths(ctx context.Context, paths []string) error {
	var removed []string
	for _, path := range paths {
		f, err := ix.store.FileByPath(path)
		if err != nil {
			return fmt.Errorf("pyinfer: %w", err)
		}
		if f == nil {
			continue
		}
		if err := ix.dropFile(f); err != nil {
			return err
		}
		removed = append(removed, f.Module)
	}
	if len(removed) == 0 {
		return nil
	}
	return ix.indexModules(ctx, nil, removed)
}

// dropFile deletes f's rows and unregisters its module when the project
// still holds the tree parsed from f.
func (ix *Indexer) dropFile(f *store.File) error {
	if err := ix.store.DeleteFile(f.ID); err != nil {
		return fmt.Errorf("pyinfer: drop %s: %w", f.Path, err)
	}
	if m, err := ix.project.ResolveModule(f.Module); err == nil && m.Path == f.Path {
		ix.project.Remove(f.Module)
	}
	return nil
}

// IndexModules indexes modules already registered in the Indexer's project.
func (ix *Indexer) IndexModules(ctx context.Context, mods []*Module) error {
	return ix.indexModules(ctx, mods, nil)
}

// indexModules runs the three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete old rows, insert file records.
//	Phase B (parallel): Extract bindings, imports and exports into batches.
//	Phase C (serial):   Commit batches, then re-export the importers of
//	                    modules whose export surface changed.
func (ix *Indexer) indexModules(ctx context.Context, mods []*Module, removed []string) error {
	// ---- Phase A: Serial file preparation ----
	var items []*workItem
	for _, m := range mods {
		item, skip, err := ix.prepareFile(m)
		if err != nil {
			return fmt.Errorf("pyinfer: prepare %s: %w", m.Path, err)
		}
		if !skip {
			items = append(items, item)
		}
	}

	// ---- Phase B: Parallel extraction ----
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return ix.extract(item)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pyinfer: extract: %w", err)
	}

	// ---- Phase C: Serial commit ----
	indexed := make(map[int64]bool, len(items))
	changed := removed
	for _, item := range items {
		if err := ix.store.CommitBatch(item.batch, false); err != nil {
			return fmt.Errorf("pyinfer: commit %s: %w", item.module.Path, err)
		}
		hash, err := ix.recordExportsHash(item.fileID, item.batch)
		if err != nil {
			return err
		}
		indexed[item.fileID] = true
		// A new module may satisfy imports that failed before.
		if !item.existed || hash != item.oldExportsHash {
			changed = append(changed, item.module.Name)
		}
	}

	blast, err := ix.blastRadius(changed, indexed)
	if err != nil {
		return err
	}
	if err := ix.reexport(blast); err != nil {
		return err
	}

	ix.log.Info("indexed",
		zap.Int("modules", len(mods)),
		zap.Int("changed", len(items)),
		zap.Int("reexported", len(blast)),
	)
	return nil
}

// prepareFile does Phase A work for one module. skip is true when the file
// is unchanged since it was last indexed.
func (ix *Indexer) prepareFile(m *tree.Module) (item *workItem, skip bool, err error) {
	content, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := ix.store.FileByPath(m.Path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && existing.Module == m.Name {
		return nil, true, nil
	}

	item = &workItem{module: m, batch: store.NewBatchedStore()}
	if existing != nil {
		item.existed = true
		item.oldExportsHash = existing.ExportsHash
		if err := ix.store.DeleteFile(existing.ID); err != nil {
			return nil, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	item.fileID, err = ix.store.InsertFile(&store.File{
		Path:        m.Path,
		Module:      m.Name,
		IsPackage:   m.Package,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert file: %w", err)
	}
	return item, false, nil
}

// extract fills the item's batch with the module's rows.
func (ix *Indexer) extract(item *workItem) error {
	return ix.extractRows(item.batch, item.fileID, item.module)
}

// extractRows writes the bindings, imports and exports of m to ds.
func (ix *Indexer) extractRows(ds store.DataStore, fileID int64, m *tree.Module) error {
	for n := range tree.Walk(m) {
		if !tree.IsScope(n) {
			continue
		}
		qname := tree.QualifiedName(n)
		for _, name := range ix.project.Names(n) {
			for _, b := range ix.project.BindingsOf(n, name) {
				if _, err := ds.InsertBinding(&store.Binding{
					FileID: fileID,
					Name:   name,
					Kind:   BindingKind(b),
					Scope:  qname,
					Line:   b.Pos().Line,
					Col:    b.Pos().Col,
				}); err != nil {
					return err
				}
			}
		}
	}

	for n := range tree.Walk(m) {
		var imps []*store.Import
		switch n := n.(type) {
		case *tree.Import:
			imps = importRows(n)
		case *tree.ImportFrom:
			imps = importFromRows(n)
		}
		for _, imp := range imps {
			imp.FileID = fileID
			if _, err := ds.InsertImport(imp); err != nil {
				return err
			}
		}
	}

	return ix.extractExports(ds, fileID, m)
}

func (ix *Indexer) extractExports(ds store.DataStore, fileID int64, m *tree.Module) error {
	for _, exp := range ix.project.Exports(m) {
		for _, v := range exp.Values {
			row, err := exportRow(exp, Describe(v))
			if err != nil {
				return fmt.Errorf("export %s.%s: %w", m.Name, exp.Name, err)
			}
			row.FileID = fileID
			if _, err := ds.InsertExport(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func exportRow(exp Export, r Result) (*store.Export, error) {
	row := &store.Export{
		Name:   exp.Name,
		Kind:   r.Kind,
		Repr:   r.Repr,
		Origin: r.Origin,
		Line:   exp.Pos.Line,
		Col:    exp.Pos.Col,
	}
	if r.Kind == "literal" {
		lit, err := store.MarshalLiteral(r.Literal)
		if err != nil {
			return nil, err
		}
		row.Literal = lit
	}
	return row, nil
}

func (ix *Indexer) recordExportsHash(fileID int64, batch *store.BatchedStore) (string, error) {
	hash := store.ComputeExportsHash(batch.Exports)
	if err := ix.store.SetExportsHash(fileID, hash); err != nil {
		return "", fmt.Errorf("pyinfer: %w", err)
	}
	return hash, nil
}

// blastRadius returns the indexed files, other than those in skip, that
// import one of the changed modules directly or transitively.
func (ix *Indexer) blastRadius(changed []string, skip map[int64]bool) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, mod := range changed {
		ids, err := ix.store.ImportersClosure(mod)
		if err != nil {
			return nil, fmt.Errorf("pyinfer: blast radius of %s: %w", mod, err)
		}
		for _, id := range ids {
			if !skip[id] && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// reexport re-infers and replaces the export rows of the given files.
func (ix *Indexer) reexport(fileIDs []int64) error {
	files, err := ix.store.FilesByIDs(fileIDs)
	if err != nil {
		return fmt.Errorf("pyinfer: %w", err)
	}
	for _, f := range files {
		m, err := ix.project.ResolveModule(f.Module)
		if err != nil || m.Path != f.Path {
			// Indexed from another root; nothing to infer with.
			continue
		}
		batch := store.NewBatchedStore()
		if err := ix.extractExports(batch, f.ID, m); err != nil {
			return fmt.Errorf("pyinfer: re-export %s: %w", f.Path, err)
		}
		if len(batch.Exports) == 0 {
			if err := ix.store.DeleteExportsForFiles([]int64{f.ID}); err != nil {
				return fmt.Errorf("pyinfer: re-export %s: %w", f.Path, err)
			}
		} else if err := ix.store.CommitBatch(batch, true); err != nil {
			return fmt.Errorf("pyinfer: re-export %s: %w", f.Path, err)
		}
		if _, err := ix.recordExportsHash(f.ID, batch); err != nil {
			return err
		}
	}
	return nil
}

// BindingKind classifies a binding node: "def", "class", "import", "param",
// "del", "walrus", "comprehension", "augassign", "annassign", "for", "with",
// "except" or "assign".
func BindingKind(b tree.Node) string {
	switch b := b.(type) {
	case *tree.FunctionDef:
		return "def"
	case *tree.ClassDef:
		return "class"
	case *tree.Alias:
		return "import"
	case *tree.Arg:
		return "param"
	case *tree.Name:
		if b.Ctx == tree.Del {
			return "del"
		}
		for p := range tree.Ancestors(b) {
			if tree.IsStatement(p) {
				break
			}
			switch p.(type) {
			case *tree.NamedExpr:
				return "walrus"
			case *tree.Comprehension:
				return "comprehension"
			}
		}
		switch tree.Statement(b).(type) {
		case *tree.AugAssign:
			return "augassign"
		case *tree.AnnAssign:
			return "annassign"
		case *tree.For:
			return "for"
		case *tree.With:
			return "with"
		case *tree.ExceptHandler:
			return "except"
		}
		return "assign"
	}
	return "other"
}

func importRows(n *tree.Import) []*store.Import {
	var out []*store.Import
	for _, a := range n.Names {
		imp := &store.Import{Module: a.Name, Line: a.Pos().Line}
		if a.AsName != "" {
			imp.AsName = &a.AsName
		}
		out = append(out, imp)
	}
	return out
}

func importFromRows(n *tree.ImportFrom) []*store.Import {
	module, err := infer.ImportedModule(n)
	if err != nil {
		module = n.Module
	}
	var out []*store.Import
	for _, a := range n.Names {
		imp := &store.Import{Module: module, Name: &a.Name, Level: n.Level, Line: a.Pos().Line}
		if a.AsName != "" {
			imp.AsName = &a.AsName
		}
		out = append(out, imp)
	}
	return out
}
