package pyinfer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/pyinfer/internal/config"
	"github.com/jward/pyinfer/internal/infer"
	"github.com/jward/pyinfer/internal/parser"
	"github.com/jward/pyinfer/internal/tree"
)

var (
	// ErrModuleNotFound is returned for a dotted name with no registered
	// module.
	ErrModuleNotFound = errors.New("module not found")
	// ErrNoNode is returned when a position does not fall inside any node.
	ErrNoNode = errors.New("no node at position")
)

// Project is the registry of parsed modules that inference runs against.
// It is safe for concurrent use: modules may be parsed and registered while
// other goroutines infer.
type Project struct {
	log    *zap.Logger
	cfg    *config.Config
	engine *infer.Engine

	mu    sync.RWMutex
	units map[string]*infer.Unit
	// importers maps a module name to the modules that looked it up while
	// being inferred, whether or not it was registered at the time.
	importers map[string]map[string]bool
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger. Unsupported constructs met during inference
// are reported on its "infer" child at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(p *Project) {
		if l != nil {
			p.log = l
		}
	}
}

// WithConfig applies a loaded pyinfer.toml.
func WithConfig(cfg *config.Config) Option {
	return func(p *Project) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithMaxInferableValues overrides the configured bound on the results of a
// single node.
func WithMaxInferableValues(n int) Option {
	return func(p *Project) {
		if n > 0 {
			cfg := *p.cfg
			cfg.MaxInferableValues = n
			p.cfg = &cfg
		}
	}
}

// New creates an empty Project.
func New(opts ...Option) *Project {
	p := &Project{
		log:       zap.NewNop(),
		cfg:       config.Default(),
		units:     make(map[string]*infer.Unit),
		importers: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.engine = infer.New((*registry)(p),
		infer.WithLogger(p.log.Named("infer")),
		infer.WithMaxInferableValues(p.cfg.MaxInferableValues),
		infer.WithMaxInferred(p.cfg.MaxInferred),
	)
	return p
}

// Config returns the configuration the project was created with.
func (p *Project) Config() *Config {
	return p.cfg
}

// Parse parses source as the module modname and registers it, replacing any
// module previously registered under that name. Cached inference results of
// the replaced module and of every module that imported it are dropped.
func (p *Project) Parse(source []byte, modname string, opts ...ParseOption) (*Module, error) {
	m, err := parser.Parse(source, modname, opts...)
	if err != nil {
		return nil, fmt.Errorf("pyinfer: parse %s: %w", modname, err)
	}
	p.register(m)
	return m, nil
}

func (p *Project) register(m *tree.Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, replaced := p.units[m.Name]
	p.units[m.Name] = infer.NewUnit(m)
	// The new unit records its own imports as it is inferred.
	for _, set := range p.importers {
		delete(set, m.Name)
	}
	stale := p.invalidateLocked(m.Name)
	p.log.Debug("registered module",
		zap.String("module", m.Name),
		zap.String("path", m.Path),
		zap.Bool("replaced", replaced),
		zap.Int("invalidated", stale),
	)
}

// Remove unregisters the module name. It reports whether the module was
// registered.
func (p *Project) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.units[name]; !ok {
		return false
	}
	delete(p.units, name)
	for _, set := range p.importers {
		delete(set, name)
	}
	p.invalidateLocked(name)
	p.log.Debug("removed module", zap.String("module", name))
	return true
}

// invalidateLocked clears the caches of every module that imported name,
// directly or through other importers, and returns how many were cleared.
func (p *Project) invalidateLocked(name string) int {
	seen := map[string]bool{name: true}
	queue := []string{name}
	cleared := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for importer := range p.importers[cur] {
			if seen[importer] {
				continue
			}
			seen[importer] = true
			if u := p.units[importer]; u != nil && u.Cache != nil {
				u.Cache.Clear()
				cleared++
			}
			queue = append(queue, importer)
		}
	}
	return cleared
}

// Importers returns the names of the modules that looked up name while
// being inferred, sorted.
func (p *Project) Importers(name string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.importers[name]))
}

// ResolveModule returns the module registered under a dotted name.
func (p *Project) ResolveModule(name string) (*Module, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.units[name]
	if !ok {
		return nil, fmt.Errorf("pyinfer: %s: %w", name, ErrModuleNotFound)
	}
	return u.Module, nil
}

// Modules returns the registered modules sorted by name.
func (p *Project) Modules() []*Module {
	p.mu.RLock()
	defer p.mu.RUnlock()
	mods := make([]*Module, 0, len(p.units))
	for _, name := range slices.Sorted(maps.Keys(p.units)) {
		mods = append(mods, p.units[name].Module)
	}
	return mods
}

// unit returns the registered unit of m, or nil for a tree that is not (or
// no longer) registered.
func (p *Project) unit(m *tree.Module) *infer.Unit {
	if m == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u := p.units[m.Name]; u != nil && u.Module == m {
		return u
	}
	return nil
}

// registry adapts Project to infer.Registry.
type registry Project

func (r *registry) Unit(m *tree.Module) *infer.Unit {
	return (*Project)(r).unit(m)
}

func (r *registry) ResolveModule(name string) *infer.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.units[name]
}

func (r *registry) Imported(importer *tree.Module, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.importers[name]
	if set == nil {
		set = make(map[string]bool)
		r.importers[name] = set
	}
	set[importer.Name] = true
}
