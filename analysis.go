package pyinfer

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/jward/pyinfer/internal/filter"
	"github.com/jward/pyinfer/internal/infer"
	"github.com/jward/pyinfer/internal/scope"
	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

// NewContext returns a fresh inference context. Contexts carry the cycle
// path and the result budget of one top-level inference.
func (p *Project) NewContext() *Context {
	return p.engine.NewContext()
}

// DefaultsContext returns a context in which the parameters of the function
// or lambda fn stand for their default values.
func (p *Project) DefaultsContext(fn Node) *Context {
	return p.engine.NewContext().WithFrame(infer.DefaultsFrame(fn))
}

// Infer returns the possible values of n. The sequence is lazy and may be
// iterated more than once.
func (p *Project) Infer(n Node) iter.Seq[Node] {
	return p.engine.Infer(n, nil)
}

// InferWith is Infer under an explicit context.
func (p *Project) InferWith(n Node, ctx *Context) iter.Seq[Node] {
	return p.engine.Infer(n, ctx)
}

// InferAll collects Infer into a slice.
func (p *Project) InferAll(n Node) []Node {
	return p.engine.InferAll(n, nil)
}

// InferName infers the module-level name as seen from the end of m. It
// yields Uninferable when m binds no such name.
func (p *Project) InferName(m *Module, name string) iter.Seq[Node] {
	return p.engine.InferAttr(m, name, nil)
}

// LiteralEval evaluates n to a host value, inferring names and other
// non-literal elements. Each element must infer to exactly one literal.
func (p *Project) LiteralEval(n Node) (Value, error) {
	return p.engine.LiteralEval(n, nil)
}

// Literal evaluates a node that is itself a literal display, without
// inference.
func Literal(n Node) (Value, error) {
	return infer.Literal(n)
}

func (p *Project) index(n Node) *scope.Index {
	m := n.Root()
	if m == nil {
		return nil
	}
	if u := p.unit(m); u != nil {
		return u.Index
	}
	return scope.New(m)
}

// BindingsOf returns the nodes binding name directly in the scope node s,
// in source order.
func (p *Project) BindingsOf(s Node, name string) []Node {
	ix := p.index(s)
	if ix == nil {
		return nil
	}
	return ix.BindingsOf(s, name)
}

// Names returns the names bound in the scope node s, in order of first
// binding.
func (p *Project) Names(s Node) []string {
	ix := p.index(s)
	if ix == nil {
		return nil
	}
	return ix.Names(s)
}

// Filter returns the candidates that can reach the use site. Candidates
// must all be bound in the scope use is looked up in.
func (p *Project) Filter(use Node, candidates []Node) []Node {
	s, offset := scope.EnclosingScope(use)
	if s == nil {
		return nil
	}
	return filter.Filter(use, candidates, s, offset)
}

// Lookup resolves name as used at n. It returns the scope the surviving
// bindings were found in, or nil when the name is unbound.
func (p *Project) Lookup(n Node, name string) (Node, []Node) {
	return p.engine.Lookup(n, name)
}

// QualifiedName returns the dotted path of the frame containing n, n
// included: the module name followed by the enclosing definitions.
func QualifiedName(n Node) string {
	return tree.QualifiedName(n)
}

// NodeAt returns the innermost node of m at line:col (1-based line,
// 0-based column).
func NodeAt(m *Module, line, col int) (Node, error) {
	n := tree.NodeAt(m, line, col)
	if n == nil || n == Node(m) {
		return nil, fmt.Errorf("pyinfer: %s:%d:%d: %w", m.Name, line, col, ErrNoNode)
	}
	return n, nil
}

var callArgs = regexp.MustCompile(`\(.*\)`)

// Resolve expands a dotted name as written at n to its fully qualified
// form: imported names become the module path they came from, classes their
// qualified name, and local variables and parameters are prefixed with the
// qualified name of their scope. Call arguments are replaced by "()".
func (p *Project) Resolve(n Node, dotted string) string {
	full := dotted
	top, _, _ := strings.Cut(callArgs.ReplaceAllString(dotted, ""), ".")
	_, bindings := p.Lookup(n, top)
	for _, b := range bindings {
		var done bool
		switch b := b.(type) {
		case *tree.Alias:
			if name, ok := importName(b); ok {
				full = strings.Replace(dotted, top, name, 1)
			}
			done = true
		case *tree.ClassDef:
			full = tree.QualifiedName(b)
			done = true
		case *tree.Name:
			if b.Ctx == tree.Store {
				full = tree.QualifiedName(b) + "." + b.Ident
			}
		case *tree.Arg:
			full = tree.QualifiedName(b.Parent()) + "." + b.Name
		}
		if done {
			break
		}
	}
	return callArgs.ReplaceAllString(full, "()")
}

// importName is the full dotted name an import alias binds.
func importName(a *tree.Alias) (string, bool) {
	mod, err := infer.ImportedModule(a)
	if err != nil {
		return "", false
	}
	if _, ok := a.Parent().(*tree.ImportFrom); ok {
		return mod + "." + a.Name, true
	}
	return mod, true
}

// Export is a module-level name together with its inferred values.
type Export struct {
	Name string
	// Pos is the position of the first binding of the name.
	Pos    Pos
	Values []Node
}

// Exports infers every name bound at module level in m, in order of first
// binding. Names that are only deleted or only annotated are left out.
func (p *Project) Exports(m *Module) []Export {
	var out []Export
	for _, name := range p.Names(m) {
		if len(p.engine.ModuleAttr(m, name)) == 0 {
			continue
		}
		var vals []Node
		for r := range p.engine.InferAttr(m, name, nil) {
			vals = append(vals, r)
		}
		first := p.BindingsOf(m, name)[0]
		out = append(out, Export{Name: name, Pos: first.Pos(), Values: vals})
	}
	return out
}

// Result describes an inferred node in plain terms.
type Result struct {
	// Kind is "literal", "function", "class", "lambda", "module",
	// "uninferable" or "value".
	Kind string `json:"kind"`
	Repr string `json:"repr"`
	// Origin is the module the node belongs to.
	Origin string `json:"origin,omitempty"`
	Line   int    `json:"line,omitempty"`
	Col    int    `json:"col"`
	// Literal is the Go form of a literal result.
	Literal any `json:"literal,omitempty"`
}

// Describe classifies an inference result.
func Describe(n Node) Result {
	if tree.IsUninferable(n) {
		return Result{Kind: "uninferable", Repr: "Uninferable"}
	}
	r := Result{Line: n.Pos().Line, Col: n.Pos().Col}
	if m := n.Root(); m != nil {
		r.Origin = m.Name
	}
	switch n := n.(type) {
	case *tree.Module:
		r.Kind, r.Repr, r.Origin = "module", n.Name, n.Name
		r.Line, r.Col = 0, 0
	case *tree.FunctionDef:
		r.Kind, r.Repr = "function", tree.QualifiedName(n)
	case *tree.ClassDef:
		r.Kind, r.Repr = "class", tree.QualifiedName(n)
	case *tree.Lambda:
		r.Kind, r.Repr = "lambda", tree.Unparse(n)
	default:
		if v, err := infer.Literal(n); err == nil {
			r.Kind, r.Repr, r.Literal = "literal", value.Repr(v), value.ToGo(v)
		} else {
			r.Kind, r.Repr = "value", tree.Unparse(n)
		}
	}
	return r
}
