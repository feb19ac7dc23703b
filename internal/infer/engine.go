// Package infer implements the inference engine: for a node of a parsed
// module it produces the lazy sequence of nodes the expression may evaluate
// to, or tree.Uninferable when no sound answer exists.
//
// Results are deterministic for an unchanged set of registered modules.
// Unsupported constructs degrade to Uninferable and are reported at debug
// level, never returned as errors.
package infer

import (
	"iter"

	"go.uber.org/zap"

	"github.com/jward/pyinfer/internal/tree"
)

// DefaultMaxInferableValues bounds the number of results of a single node.
const DefaultMaxInferableValues = 42

// Registry is the engine's view of the set of parsed modules.
type Registry interface {
	// Unit returns the unit owning m, or nil if m is not the registered
	// tree for its module.
	Unit(m *tree.Module) *Unit
	// ResolveModule returns the unit registered under a dotted module name,
	// or nil.
	ResolveModule(name string) *Unit
	// Imported records that importer looked up the module name while being
	// inferred, whether or not it was found.
	Imported(importer *tree.Module, name string)
}

// Engine infers nodes of the modules known to a Registry.
type Engine struct {
	reg         Registry
	log         *zap.Logger
	maxValues   int
	maxInferred int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for reporting unsupported constructs.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMaxInferableValues bounds the results of a single node. An overflowing
// sequence ends with Uninferable.
func WithMaxInferableValues(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxValues = n
		}
	}
}

// WithMaxInferred bounds the results, beyond the first of each node, that
// one top-level inference may produce.
func WithMaxInferred(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxInferred = n
		}
	}
}

// New returns an engine resolving imports through reg.
func New(reg Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:         reg,
		log:         zap.NewNop(),
		maxValues:   DefaultMaxInferableValues,
		maxInferred: DefaultMaxInferred,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewContext returns a fresh context for a top-level inference.
func (e *Engine) NewContext() *Context {
	return newContext(e.maxInferred)
}

// Infer returns the possible values of n. A nil ctx starts a new top-level
// inference. The sequence may be iterated more than once.
func (e *Engine) Infer(n tree.Node, ctx *Context) iter.Seq[tree.Node] {
	if ctx == nil {
		ctx = e.NewContext()
	}
	return e.infer(n, ctx)
}

// InferAll collects Infer into a slice.
func (e *Engine) InferAll(n tree.Node, ctx *Context) []tree.Node {
	var out []tree.Node
	for r := range e.Infer(n, ctx) {
		out = append(out, r)
	}
	return out
}

// unit returns the unit owning n. Trees unknown to the registry, such as a
// module replaced by a re-parse, get an uncached unit for this inference.
func (e *Engine) unit(n tree.Node, ctx *Context) *Unit {
	m := n.Root()
	if m == nil {
		return nil
	}
	if e.reg != nil {
		if u := e.reg.Unit(m); u != nil {
			return u
		}
	}
	if ctx.sess.transient == nil {
		ctx.sess.transient = make(map[*tree.Module]*Unit)
	}
	u, ok := ctx.sess.transient[m]
	if !ok {
		u = NewUnit(m)
		u.Cache = nil
		ctx.sess.transient[m] = u
	}
	return u
}

// Lookup resolves name at the use site n to its reaching bindings.
func (e *Engine) Lookup(n tree.Node, name string) (tree.Node, []tree.Node) {
	u := e.unit(n, e.NewContext())
	if u == nil {
		return nil, nil
	}
	return u.Index.Lookup(n, name)
}

// infer wraps dispatch with caching, cycle breaking, deduplication and the
// result limits.
func (e *Engine) infer(n tree.Node, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		if n == nil || tree.IsUninferable(n) {
			yield(tree.Uninferable)
			return
		}
		var cache *Cache
		if u := e.unit(n, ctx); u != nil {
			cache = u.Cache
		}
		frame := ctx.FrameKey()
		if cache != nil {
			if res, ok := cache.Get(n, frame); ok {
				for _, r := range res {
					if !yield(r) {
						return
					}
				}
				return
			}
		}

		inner, onPath := ctx.push(n)
		if onPath {
			ctx.sess.cuts++
			return
		}

		cuts := ctx.sess.cuts
		seen := make(map[any]bool)
		var results []tree.Node
		for r := range e.dispatch(n, inner) {
			k := dedupeKey(r)
			if seen[k] {
				continue
			}
			seen[k] = true
			// The first result of a node is free; only fan-out is charged.
			fanout := len(results) > 0
			if len(results) >= e.maxValues || (fanout && ctx.exhausted()) {
				if fanout && ctx.exhausted() {
					ctx.sess.cuts++
				}
				e.report(n, "too many inference results")
				results = append(results, tree.Uninferable)
				yield(tree.Uninferable)
				break
			}
			if fanout {
				ctx.sess.produced++
			}
			results = append(results, r)
			if !yield(r) {
				return
			}
		}
		if cache != nil && ctx.sess.cuts == cuts {
			cache.Put(n, frame, results)
		}
	}
}

// dedupeKey identifies a result for deduplication. Literal results compare
// by their rendering, everything else by identity.
func dedupeKey(n tree.Node) any {
	if tree.IsLiteral(n) {
		return "literal:" + tree.Unparse(n)
	}
	return n
}

func (e *Engine) report(n tree.Node, msg string, fields ...zap.Field) {
	if ce := e.log.Check(zap.DebugLevel, msg); ce != nil {
		fs := []zap.Field{zap.String("kind", n.Kind().String())}
		if m := n.Root(); m != nil {
			fs = append(fs, zap.String("module", m.Name))
		}
		fs = append(fs, zap.Stringer("pos", n.Pos()))
		ce.Write(append(fs, fields...)...)
	}
}

func single(n tree.Node) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) { yield(n) }
}

func (e *Engine) uninferable(n tree.Node, msg string) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		e.report(n, msg)
		yield(tree.Uninferable)
	}
}

func (e *Engine) dispatch(n tree.Node, ctx *Context) iter.Seq[tree.Node] {
	switch n := n.(type) {
	case *tree.Constant, *tree.Module, *tree.FunctionDef, *tree.ClassDef, *tree.Lambda,
		*tree.List, *tree.Tuple, *tree.Set, *tree.Dict:
		return single(n)
	case *tree.Name:
		switch n.Ctx {
		case tree.Load:
			return e.inferName(n, ctx)
		case tree.Store:
			return e.inferAssignName(n, ctx)
		}
		return e.uninferable(n, "deleted name")
	case *tree.Arg:
		return e.inferArg(n, ctx)
	case *tree.Alias:
		return e.inferAlias(n, ctx)
	case *tree.Attribute:
		return e.inferAttribute(n, ctx)
	case *tree.Expr:
		return e.infer(n.Value, ctx)
	case *tree.NamedExpr:
		return e.infer(n.Value, ctx)
	case *tree.AugAssign:
		return e.inferAugAssign(n, ctx)
	case *tree.BinOp:
		return e.inferBinOp(n, ctx)
	case *tree.UnaryOp:
		return e.inferUnaryOp(n, ctx)
	case *tree.BoolOp:
		return e.inferBoolOp(n.Op, n.Values, ctx)
	case *tree.Compare:
		return e.inferCompare(n, ctx)
	case *tree.IfExp:
		return e.inferIfExp(n, ctx)
	case *tree.Subscript:
		return e.inferSubscript(n, ctx)
	case *tree.Call:
		return e.uninferable(n, "call")
	}
	return e.uninferable(n, "no inference for node kind")
}
