// Package scope indexes the names bound in each scope of a module and
// resolves a name at a use site to the binding nodes that can reach it.
package scope

import (
	"sync"

	"github.com/jward/pyinfer/internal/filter"
	"github.com/jward/pyinfer/internal/tree"
)

type declKind int

const (
	declGlobal declKind = iota + 1
	declNonlocal
)

// Index holds the bindings of one module. It is built on first use and is
// read-only afterwards, so it may be shared between goroutines.
type Index struct {
	mod  *tree.Module
	once sync.Once

	locals    map[tree.Node]map[string][]tree.Node
	order     map[tree.Node][]string
	decls     map[tree.Node]map[string]declKind
	wildcards map[tree.Node][]*tree.ImportFrom
}

// New returns an index over m. Nothing is computed until the first query.
func New(m *tree.Module) *Index {
	return &Index{mod: m}
}

// Module returns the indexed module.
func (ix *Index) Module() *tree.Module { return ix.mod }

func (ix *Index) build() {
	ix.locals = make(map[tree.Node]map[string][]tree.Node)
	ix.order = make(map[tree.Node][]string)
	ix.decls = make(map[tree.Node]map[string]declKind)
	ix.wildcards = make(map[tree.Node][]*tree.ImportFrom)

	// Declarations first: a global statement affects bindings that precede it.
	for n := range tree.Walk(ix.mod) {
		switch n := n.(type) {
		case *tree.Global:
			ix.declare(tree.Frame(n), n.Names, declGlobal)
		case *tree.Nonlocal:
			ix.declare(tree.Frame(n), n.Names, declNonlocal)
		}
	}

	for n := range tree.Walk(ix.mod) {
		switch n := n.(type) {
		case *tree.Name:
			if n.Ctx == tree.Load {
				continue
			}
			s, _ := EnclosingScope(n)
			if _, walrus := n.Parent().(*tree.NamedExpr); walrus {
				for s != nil && tree.IsComprehension(s) {
					s, _ = EnclosingScope(s)
				}
			}
			ix.bind(ix.redirect(s, n.Ident), n.Ident, n)
		case *tree.Arg:
			s, _ := EnclosingScope(n)
			ix.bind(s, n.Name, n)
		case *tree.Alias:
			s, _ := EnclosingScope(n)
			if n.Name == "*" {
				if from, ok := n.Parent().(*tree.ImportFrom); ok {
					ix.wildcards[s] = append(ix.wildcards[s], from)
				}
				continue
			}
			name := n.BoundName()
			ix.bind(ix.redirect(s, name), name, n)
		case *tree.FunctionDef:
			s, _ := EnclosingScope(n)
			ix.bind(ix.redirect(s, n.Name), n.Name, n)
		case *tree.ClassDef:
			s, _ := EnclosingScope(n)
			ix.bind(ix.redirect(s, n.Name), n.Name, n)
		}
	}
}

func (ix *Index) declare(frame tree.Node, names []string, kind declKind) {
	m := ix.decls[frame]
	if m == nil {
		m = make(map[string]declKind)
		ix.decls[frame] = m
	}
	for _, name := range names {
		m[name] = kind
	}
}

func (ix *Index) bind(s tree.Node, name string, n tree.Node) {
	if s == nil {
		return
	}
	m := ix.locals[s]
	if m == nil {
		m = make(map[string][]tree.Node)
		ix.locals[s] = m
	}
	if _, seen := m[name]; !seen {
		ix.order[s] = append(ix.order[s], name)
	}
	m[name] = append(m[name], n)
}

// redirect applies global and nonlocal declarations made in s.
func (ix *Index) redirect(s tree.Node, name string) tree.Node {
	if s == nil {
		return nil
	}
	switch ix.decls[s][name] {
	case declGlobal:
		return ix.mod
	case declNonlocal:
		for p := tree.ParentScope(s); p != nil; p = tree.ParentScope(p) {
			switch p.Kind() {
			case tree.KindFunctionDef, tree.KindLambda:
				return p
			}
		}
	}
	return s
}

// BindingsOf returns the nodes binding name directly in scope, in source
// order.
func (ix *Index) BindingsOf(scope tree.Node, name string) []tree.Node {
	ix.once.Do(ix.build)
	return ix.locals[scope][name]
}

// Names returns the names bound in scope, in order of first binding.
func (ix *Index) Names(scope tree.Node) []string {
	ix.once.Do(ix.build)
	return ix.order[scope]
}

// Wildcards returns the `from m import *` statements executed in scope.
func (ix *Index) Wildcards(scope tree.Node) []*tree.ImportFrom {
	ix.once.Do(ix.build)
	return ix.wildcards[scope]
}

// VisibleWildcards returns the wildcard imports of every scope a name used
// at use would be looked up in, innermost first.
func (ix *Index) VisibleWildcards(use tree.Node) []*tree.ImportFrom {
	ix.once.Do(ix.build)
	var out []*tree.ImportFrom
	s, _ := EnclosingScope(use)
	for ; s != nil; s = lookupParent(s) {
		out = append(out, ix.wildcards[s]...)
	}
	return out
}

// Lookup resolves name as used at use. It returns the scope the bindings
// were found in and the bindings that survive the statement filter. Both
// are nil when the name is not bound anywhere on the scope chain.
func (ix *Index) Lookup(use tree.Node, name string) (tree.Node, []tree.Node) {
	ix.once.Do(ix.build)
	s, offset := EnclosingScope(use)
	if s == nil {
		return nil, nil
	}
	s = ix.redirect(s, name)
	for ; s != nil; s = lookupParent(s) {
		if cands := ix.locals[s][name]; len(cands) > 0 {
			if got := filter.Filter(use, cands, s, offset); len(got) > 0 {
				return s, got
			}
		}
		offset = 0
	}
	return nil, nil
}

// lookupParent returns the next scope searched after s. Class bodies are
// not visible from the scopes nested in them.
func lookupParent(s tree.Node) tree.Node {
	p := tree.ParentScope(s)
	for p != nil && p.Kind() == tree.KindClassDef {
		p = tree.ParentScope(p)
	}
	return p
}

// EnclosingScope returns the scope in which a name at n is bound or looked
// up, together with the line offset the statement filter applies there.
//
// Names in decorators resolve in the scope around the definition. Names in
// class bases and keywords, parameter defaults and annotations, and return
// annotations resolve there too, against the statements before the
// definition (offset -1). The first iterable of a comprehension is
// evaluated in the enclosing scope.
func EnclosingScope(n tree.Node) (tree.Node, int) {
	offset := 0
	child := n
	var grandchild tree.Node
	for p := range tree.Ancestors(n) {
		field := tree.FieldOf(child)
		switch p := p.(type) {
		case *tree.Module:
			return p, offset
		case *tree.FunctionDef, *tree.Lambda:
			switch field {
			case "body":
				return p, offset
			case "args":
				if n.Kind() == tree.KindArg && n.Parent() == child {
					return p, offset
				}
				offset = -1
			case "returns":
				offset = -1
			}
		case *tree.ClassDef:
			switch field {
			case "body":
				return p, offset
			case "bases", "keywords":
				offset = -1
			}
		case *tree.ListComp, *tree.SetComp, *tree.GeneratorExp, *tree.DictComp:
			if field != "generators" || !isFirstIter(p, child, grandchild) {
				return p, offset
			}
		}
		grandchild = child
		child = p
	}
	return nil, offset
}

func isFirstIter(comp, gen, from tree.Node) bool {
	if from == nil || tree.FieldOf(from) != "iter" {
		return false
	}
	_, nodes, _ := tree.LocateChild(comp, gen)
	return len(nodes) > 0 && nodes[0] == gen
}
