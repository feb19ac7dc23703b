package pyinfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/pyinfer/internal/parser"
	"github.com/jward/pyinfer/internal/tree"
)

// skipDirs are never descended into by the filesystem walk.
var skipDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"site-packages": true,
	"venv":          true,
}

// Source is a Python file discovered under a project root.
type Source struct {
	Path    string
	Module  string
	Package bool
}

// Sources lists the Python files under root that are not excluded by the
// configuration. If root is inside a git repository, git ls-files is used
// to respect .gitignore; otherwise the filesystem is walked, skipping hidden
// directories, __pycache__ and virtual environments. When a stub and a
// source file name the same module, the source file wins.
func (p *Project) Sources(root string) ([]Source, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}

	byModule := make(map[string]Source)
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, fmt.Errorf("pyinfer: sources: %w", err)
		}
		if p.cfg.Excluded(rel) {
			continue
		}
		src, ok := sourceFor(rel, path)
		if !ok {
			continue
		}
		if prev, ok := byModule[src.Module]; ok && filepath.Ext(prev.Path) == ".py" {
			continue
		}
		byModule[src.Module] = src
	}

	out := make([]Source, 0, len(byModule))
	for _, s := range byModule {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out, nil
}

// sourceFor derives the module of the file at path, rel being its path
// relative to the project root.
func sourceFor(rel, path string) (Source, bool) {
	if !parser.IsSource(path) {
		return Source{}, false
	}
	name, pkg := parser.ModuleName(rel)
	if name == "" {
		return Source{}, false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || strings.ContainsAny(part, " -") {
			return Source{}, false
		}
	}
	return Source{Path: path, Module: name, Package: pkg}, true
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Python files under root.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if parser.IsSource(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used when git is
// not available.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.IsSource(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pyinfer: walk directory: %w", err)
	}
	return paths, nil
}

// LoadDirectory parses every Python source under root and registers the
// modules. Files are parsed concurrently and registered in module order.
// Files with syntax errors are logged and skipped.
func (p *Project) LoadDirectory(ctx context.Context, root string) ([]*Module, error) {
	sources, err := p.Sources(root)
	if err != nil {
		return nil, err
	}

	parsed := make([]*tree.Module, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, src := range sources {
		g.Go(func() error {
			m, err := parseSource(gctx, src)
			if err != nil {
				if isSyntaxError(err) {
					p.log.Warn("skipping file", zap.String("path", src.Path), zap.Error(err))
					return nil
				}
				return err
			}
			parsed[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pyinfer: load %s: %w", root, err)
	}

	var mods []*Module
	for _, m := range parsed {
		if m == nil {
			continue
		}
		p.register(m)
		mods = append(mods, m)
	}
	p.log.Info("loaded project",
		zap.String("root", root),
		zap.Int("files", len(sources)),
		zap.Int("modules", len(mods)),
	)
	return mods, nil
}

// LoadFile parses and registers the file at path, naming its module
// relative to root.
func (p *Project) LoadFile(ctx context.Context, root, path string) (*Module, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("pyinfer: load %s: %w", path, err)
	}
	src, ok := sourceFor(rel, path)
	if !ok {
		return nil, fmt.Errorf("pyinfer: load %s: not a python module", path)
	}
	m, err := parseSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("pyinfer: load %s: %w", path, err)
	}
	p.register(m)
	return m, nil
}

// ModuleForPath returns the dotted module name of the file at path relative
// to root.
func ModuleForPath(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	src, ok := sourceFor(rel, path)
	return src.Module, ok
}

func isSyntaxError(err error) bool {
	return errors.Is(err, parser.ErrSyntax)
}

func parseSource(ctx context.Context, src Source) (*tree.Module, error) {
	content, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parser.ParseContext(ctx, content, src.Module,
		parser.WithPath(src.Path),
		parser.WithPackage(src.Package),
	)
}
