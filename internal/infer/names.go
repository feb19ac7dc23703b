package infer

import (
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/pyinfer/internal/tree"
)

// inferBindings infers each binding node in order. A binding that yields
// nothing, because every path through it was cut as a cycle, contributes
// Uninferable.
func (e *Engine) inferBindings(bindings []tree.Node, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		for _, b := range bindings {
			found := false
			for r := range e.infer(b, ctx) {
				found = true
				if !yield(r) {
					return
				}
			}
			if !found && !yield(tree.Uninferable) {
				return
			}
		}
	}
}

func (e *Engine) inferName(n *tree.Name, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		if sub, ok := ctx.Substitute(n); ok {
			for r := range e.infer(sub, ctx) {
				if !yield(r) {
					return
				}
			}
			return
		}
		u := e.unit(n, ctx)
		_, bindings := u.Index.Lookup(n, n.Ident)
		if len(bindings) == 0 {
			bindings = e.wildcardBindings(u, n, n.Ident, ctx)
		}
		if len(bindings) == 0 {
			e.report(n, "name not found", zap.String("name", n.Ident))
			yield(tree.Uninferable)
			return
		}
		for r := range e.inferBindings(bindings, ctx) {
			if !yield(r) {
				return
			}
		}
	}
}

// wildcardBindings looks name up in the modules star-imported by the scopes
// visible from use.
func (e *Engine) wildcardBindings(u *Unit, use tree.Node, name string, ctx *Context) []tree.Node {
	for _, from := range u.Index.VisibleWildcards(use) {
		modname, err := ImportedModule(from)
		if err != nil {
			continue
		}
		target := e.resolveModule(from.Root(), modname)
		if target == nil || target.Module == from.Root() {
			continue
		}
		if b := e.moduleAttr(target, name, false, ctx); len(b) > 0 {
			return b
		}
	}
	return nil
}

func (e *Engine) inferArg(n *tree.Arg, ctx *Context) iter.Seq[tree.Node] {
	if sub, ok := ctx.Substitute(n); ok {
		return e.infer(sub, ctx)
	}
	return e.uninferable(n, "parameter without a frame")
}

// inferAssignName infers the value a binding name receives.
func (e *Engine) inferAssignName(n *tree.Name, ctx *Context) iter.Seq[tree.Node] {
	if sub, ok := ctx.Substitute(n); ok {
		return e.infer(sub, ctx)
	}
	if aug, ok := n.Parent().(*tree.AugAssign); ok {
		return e.infer(aug, ctx)
	}
	return e.assigned(n, ctx)
}

// assigned walks up from a binding target to the statement assigning it,
// recording the unpacking indices on the way, then resolves the assigned
// value along that path.
func (e *Engine) assigned(target tree.Node, ctx *Context) iter.Seq[tree.Node] {
	var path []int
	child := target
	for p := target.Parent(); p != nil; child, p = p, p.Parent() {
		switch p := p.(type) {
		case *tree.Tuple, *tree.List:
			i := indexOf(elts(p), child)
			if i < 0 {
				return e.uninferable(target, "target not found in sequence")
			}
			path = append([]int{i}, path...)
			continue
		case *tree.Starred:
			return e.uninferable(target, "starred assignment target")
		case *tree.Assign:
			return e.resolveParts(p.Value, path, ctx)
		case *tree.AnnAssign:
			if p.Value == nil {
				return e.uninferable(target, "annotation without value")
			}
			return e.resolveParts(p.Value, path, ctx)
		case *tree.NamedExpr:
			return e.resolveParts(p.Value, path, ctx)
		case *tree.For:
			if p.Async {
				return e.uninferable(target, "async for target")
			}
			return e.iterated(target, p.Iter, path, ctx)
		case *tree.Comprehension:
			if p.Async {
				return e.uninferable(target, "async comprehension target")
			}
			return e.iterated(target, p.Iter, path, ctx)
		case *tree.WithItem:
			return e.uninferable(target, "with item target")
		case *tree.ExceptHandler:
			return e.uninferable(target, "exception handler name")
		}
		break
	}
	return e.uninferable(target, "unsupported assignment target")
}

// iterated infers a loop target: the elements of every literal list or
// tuple the iterable infers to.
func (e *Engine) iterated(target, iterable tree.Node, path []int, ctx *Context) iter.Seq[tree.Node] {
	if len(path) > 0 {
		return e.uninferable(target, "unpacking loop target")
	}
	return func(yield func(tree.Node) bool) {
		found := false
		for seq := range e.infer(iterable, ctx) {
			if tree.IsUninferable(seq) {
				continue
			}
			for _, elt := range elts(seq) {
				for r := range e.infer(elt, ctx) {
					found = true
					if !yield(r) {
						return
					}
				}
			}
		}
		if !found {
			e.report(target, "loop iterable is not a literal sequence")
			yield(tree.Uninferable)
		}
	}
}

// resolveParts follows an unpacking path into value. List and tuple
// displays are indexed directly, without inferring their other elements.
func (e *Engine) resolveParts(value tree.Node, path []int, ctx *Context) iter.Seq[tree.Node] {
	if len(path) == 0 {
		return e.infer(value, ctx)
	}
	return func(yield func(tree.Node) bool) {
		var parts iter.Seq[tree.Node]
		if isSequence(value) && !hasStarred(elts(value)) {
			parts = single(value)
		} else {
			parts = e.infer(value, ctx)
		}
		for part := range parts {
			if !isSequence(part) || hasStarred(elts(part)) {
				continue
			}
			xs := elts(part)
			if path[0] >= len(xs) {
				continue
			}
			for r := range e.resolveParts(xs[path[0]], path[1:], ctx) {
				if !yield(r) {
					return
				}
			}
		}
	}
}

func isSequence(n tree.Node) bool {
	switch n.(type) {
	case *tree.List, *tree.Tuple:
		return true
	}
	return false
}

func elts(n tree.Node) []tree.Node {
	switch n := n.(type) {
	case *tree.List:
		return n.Elts
	case *tree.Tuple:
		return n.Elts
	case *tree.Set:
		return n.Elts
	}
	return nil
}

func hasStarred(xs []tree.Node) bool {
	for _, x := range xs {
		if x.Kind() == tree.KindStarred {
			return true
		}
	}
	return false
}

func indexOf(xs []tree.Node, n tree.Node) int {
	for i, x := range xs {
		if x == n {
			return i
		}
	}
	return -1
}

// ImportedModule returns the absolute dotted name of the module an import
// statement or alias refers to. For a plain `import a.b` it is the top
// package "a" unless the import is aliased.
func ImportedModule(n tree.Node) (string, error) {
	switch n := n.(type) {
	case *tree.Alias:
		if from, ok := n.Parent().(*tree.ImportFrom); ok {
			return ImportedModule(from)
		}
		if n.AsName == "" {
			name, _, _ := strings.Cut(n.Name, ".")
			return name, nil
		}
		return n.Name, nil
	case *tree.ImportFrom:
		if n.Level == 0 {
			return n.Module, nil
		}
		return relativeModule(n)
	}
	return "", fmt.Errorf("infer: imported module: %s is not an import", n.Kind())
}

func relativeModule(from *tree.ImportFrom) (string, error) {
	root := from.Root()
	if root == nil {
		return "", fmt.Errorf("infer: relative import: detached node")
	}
	parts := strings.Split(root.Name, ".")
	up := from.Level
	if root.Package {
		up--
	}
	if up >= len(parts) {
		return "", fmt.Errorf("infer: relative import beyond top-level package in %s", root.Name)
	}
	base := strings.Join(parts[:len(parts)-up], ".")
	if from.Module == "" {
		return base, nil
	}
	return base + "." + from.Module, nil
}

func (e *Engine) resolveModule(importer *tree.Module, name string) *Unit {
	if e.reg == nil {
		return nil
	}
	if importer != nil {
		e.reg.Imported(importer, name)
	}
	return e.reg.ResolveModule(name)
}

func (e *Engine) inferAlias(n *tree.Alias, ctx *Context) iter.Seq[tree.Node] {
	modname, err := ImportedModule(n)
	if err != nil {
		return e.uninferable(n, "unresolvable relative import")
	}
	target := e.resolveModule(n.Root(), modname)
	if target == nil {
		return func(yield func(tree.Node) bool) {
			e.report(n, "module not found", zap.String("module", modname))
			yield(tree.Uninferable)
		}
	}
	if _, ok := n.Parent().(*tree.ImportFrom); !ok {
		return single(target.Module)
	}
	return func(yield func(tree.Node) bool) {
		bindings := e.moduleAttr(target, n.Name, target.Module == n.Root(), ctx)
		if len(bindings) == 0 {
			e.report(n, "name not found in module", zap.String("module", modname), zap.String("name", n.Name))
			yield(tree.Uninferable)
			return
		}
		for r := range e.inferBindings(bindings, ctx) {
			if !yield(r) {
				return
			}
		}
	}
}

func (e *Engine) inferAttribute(n *tree.Attribute, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		for owner := range e.infer(n.Value, ctx) {
			mod, ok := owner.(*tree.Module)
			if !ok {
				e.report(n, "attribute of a non-module", zap.String("attr", n.Attr))
				if !yield(tree.Uninferable) {
					return
				}
				continue
			}
			u := e.unit(mod, ctx)
			bindings := e.moduleAttr(u, n.Attr, false, ctx)
			if len(bindings) == 0 {
				e.report(n, "name not found in module", zap.String("module", mod.Name), zap.String("name", n.Attr))
				if !yield(tree.Uninferable) {
					return
				}
				continue
			}
			for r := range e.inferBindings(bindings, ctx) {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// ModuleAttr returns the bindings of name visible at the end of module m,
// the submodule m.name for a package, or nil.
func (e *Engine) ModuleAttr(m *tree.Module, name string) []tree.Node {
	ctx := e.NewContext()
	return e.moduleAttr(e.unit(m, ctx), name, false, ctx)
}

// InferAttr infers the module-level name as seen from the end of m. It
// yields Uninferable when m binds no such name.
func (e *Engine) InferAttr(m *tree.Module, name string, ctx *Context) iter.Seq[tree.Node] {
	if ctx == nil {
		ctx = e.NewContext()
	}
	return func(yield func(tree.Node) bool) {
		bindings := e.moduleAttr(e.unit(m, ctx), name, false, ctx)
		if len(bindings) == 0 {
			yield(tree.Uninferable)
			return
		}
		seen := make(map[any]bool)
		for r := range e.inferBindings(bindings, ctx) {
			if k := dedupeKey(r); !seen[k] {
				seen[k] = true
				if !yield(r) {
					return
				}
			}
		}
	}
}

func (e *Engine) moduleAttr(u *Unit, name string, ignoreLocals bool, ctx *Context) []tree.Node {
	if u == nil || name == "" {
		return nil
	}
	m := u.Module
	var bindings []tree.Node
	if !ignoreLocals {
		if eof := tree.EndOf(m); eof != nil {
			_, bindings = u.Index.Lookup(eof, name)
			if len(bindings) == 0 {
				bindings = e.wildcardBindings(u, eof, name, ctx)
			}
		}
	}
	if len(bindings) == 0 && m.Package {
		if sub := e.resolveModule(m, m.Name+"."+name); sub != nil {
			return []tree.Node{sub.Module}
		}
	}
	out := bindings[:0:0]
	for _, b := range bindings {
		if !isDelName(b) && !isBareAnnotation(b) {
			out = append(out, b)
		}
	}
	return out
}

func isDelName(n tree.Node) bool {
	name, ok := n.(*tree.Name)
	return ok && name.Ctx == tree.Del
}

// isBareAnnotation reports whether n is the target of `x: T` with no value.
func isBareAnnotation(n tree.Node) bool {
	name, ok := n.(*tree.Name)
	if !ok || name.Ctx != tree.Store {
		return false
	}
	ann, ok := tree.Statement(n).(*tree.AnnAssign)
	return ok && ann.Value == nil
}
