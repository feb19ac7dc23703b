package tree

import (
	"iter"
	"strings"
)

// IsStatement reports whether n is a statement node.
func IsStatement(n Node) bool {
	switch n.Kind() {
	case KindExpr, KindAssign, KindAugAssign, KindAnnAssign, KindImport,
		KindImportFrom, KindFunctionDef, KindClassDef, KindIf, KindFor,
		KindWhile, KindTry, KindExceptHandler, KindWith, KindReturn,
		KindDelete, KindGlobal, KindNonlocal, KindPass, KindBreak,
		KindContinue, KindRaise, KindAssert, KindEndOfFrame:
		return true
	}
	return false
}

// IsFrame reports whether n opens a frame: a module, function, class or
// lambda.
func IsFrame(n Node) bool {
	switch n.Kind() {
	case KindModule, KindFunctionDef, KindClassDef, KindLambda:
		return true
	}
	return false
}

// IsComprehension reports whether n is one of the comprehension expressions.
func IsComprehension(n Node) bool {
	switch n.Kind() {
	case KindListComp, KindSetComp, KindGeneratorExp, KindDictComp:
		return true
	}
	return false
}

// IsScope reports whether n owns a name scope.
func IsScope(n Node) bool { return IsFrame(n) || IsComprehension(n) }

// Ancestors yields the strict ancestors of n, nearest first.
func Ancestors(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if !yield(p) {
				return
			}
		}
	}
}

// IsParentOf reports whether a is a strict ancestor of b.
func IsParentOf(a, b Node) bool {
	for p := range Ancestors(b) {
		if p == a {
			return true
		}
	}
	return false
}

// Statement returns the nearest statement containing n, n included. A
// Module is its own statement.
func Statement(n Node) Node {
	for c := n; c != nil; c = c.Parent() {
		if IsStatement(c) || c.Kind() == KindModule {
			return c
		}
	}
	return nil
}

// Frame returns the nearest frame containing n, n included.
func Frame(n Node) Node {
	for c := n; c != nil; c = c.Parent() {
		if IsFrame(c) {
			return c
		}
	}
	return nil
}

// ParentFrame returns the frame enclosing frame f, or nil for a Module.
func ParentFrame(f Node) Node {
	if p := f.Parent(); p != nil {
		return Frame(p)
	}
	return nil
}

// Scope returns the nearest scope containing n, n included.
func Scope(n Node) Node {
	for c := n; c != nil; c = c.Parent() {
		if IsScope(c) {
			return c
		}
	}
	return nil
}

// ParentScope returns the scope lexically enclosing scope s, or nil for a
// Module.
func ParentScope(s Node) Node {
	if p := s.Parent(); p != nil {
		return Scope(p)
	}
	return nil
}

// Body returns the statement list of a frame or block node.
func Body(n Node) []Node {
	switch n := n.(type) {
	case *Module:
		return n.Body
	case *FunctionDef:
		return n.Body
	case *ClassDef:
		return n.Body
	case *If:
		return n.Body
	case *For:
		return n.Body
	case *While:
		return n.Body
	case *Try:
		return n.Body
	case *ExceptHandler:
		return n.Body
	case *With:
		return n.Body
	}
	return nil
}

// EndOf returns the EndOfFrame sentinel closing a Module, FunctionDef or
// ClassDef body, or nil if the frame has none.
func EndOf(frame Node) *EndOfFrame {
	body := Body(frame)
	if len(body) == 0 {
		return nil
	}
	eof, _ := body[len(body)-1].(*EndOfFrame)
	return eof
}

// IsFromDecorator reports whether n sits inside a decorator expression.
func IsFromDecorator(n Node) bool {
	child := n
	for p := range Ancestors(n) {
		switch p.(type) {
		case *FunctionDef, *ClassDef:
			if FieldOf(child) == "decorators" {
				return true
			}
		}
		child = p
	}
	return false
}

// DefName returns the name bound by a FunctionDef or ClassDef.
func DefName(n Node) string {
	switch n := n.(type) {
	case *FunctionDef:
		return n.Name
	case *ClassDef:
		return n.Name
	}
	return ""
}

// QualifiedName returns the dotted path of a frame: the module name followed
// by the names of the enclosing definitions.
func QualifiedName(n Node) string {
	var parts []string
	for f := Frame(n); f != nil; f = ParentFrame(f) {
		switch f := f.(type) {
		case *Module:
			parts = append(parts, f.Name)
		case *Lambda:
			parts = append(parts, "<lambda>")
		default:
			parts = append(parts, DefName(f))
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// NodeAt returns the innermost node of m whose source span contains line:col,
// or nil when no node does.
func NodeAt(m *Module, line, col int) Node {
	p := Pos{Line: line, Col: col}
	var best Node
	var visit func(n Node)
	visit = func(n Node) {
		if n.Kind() == KindEndOfFrame {
			return
		}
		if contains(n, p) {
			best = n
		}
		for _, c := range Children(n) {
			visit(c)
		}
	}
	visit(m)
	return best
}

func contains(n Node, p Pos) bool {
	if n.Kind() == KindModule {
		return true
	}
	return !p.Before(n.Pos()) && p.Before(n.End())
}
