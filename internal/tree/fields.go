package tree

import "iter"

// Field is a named child slot of a node. Nodes holds the non-nil children
// in the slot, in order.
type Field struct {
	Name  string
	Nodes []Node
}

func one(name string, n Node) Field {
	if n == nil {
		return Field{Name: name}
	}
	return Field{Name: name, Nodes: []Node{n}}
}

func many[T Node](name string, xs []T) Field {
	out := make([]Node, 0, len(xs))
	for _, x := range xs {
		if Node(x) != nil {
			out = append(out, x)
		}
	}
	return Field{Name: name, Nodes: out}
}

func nameField(name string, n *Name) Field {
	if n == nil {
		return Field{Name: name}
	}
	return one(name, n)
}

func argsField(a *Arguments) Field {
	if a == nil {
		return Field{Name: "args"}
	}
	return one("args", a)
}

// Fields returns the child slots of n in source order.
func Fields(n Node) []Field {
	switch n := n.(type) {
	case *Module:
		return []Field{many("body", n.Body)}
	case *Attribute:
		return []Field{one("value", n.Value)}
	case *Subscript:
		return []Field{one("value", n.Value), one("slice", n.Slice)}
	case *Starred:
		return []Field{one("value", n.Value)}
	case *Call:
		return []Field{one("func", n.Func), many("args", n.Args), many("keywords", n.Keywords)}
	case *Keyword:
		return []Field{one("value", n.Value)}
	case *List:
		return []Field{many("elts", n.Elts)}
	case *Tuple:
		return []Field{many("elts", n.Elts)}
	case *Set:
		return []Field{many("elts", n.Elts)}
	case *Dict:
		return []Field{many("keys", n.Keys), many("values", n.Values)}
	case *BinOp:
		return []Field{one("left", n.Left), one("right", n.Right)}
	case *BoolOp:
		return []Field{many("values", n.Values)}
	case *UnaryOp:
		return []Field{one("operand", n.Operand)}
	case *Compare:
		return []Field{one("left", n.Left), many("comparators", n.Comparators)}
	case *IfExp:
		return []Field{one("body", n.Body), one("test", n.Test), one("orelse", n.OrElse)}
	case *NamedExpr:
		return []Field{nameField("target", n.Target), one("value", n.Value)}
	case *Lambda:
		return []Field{argsField(n.Args), one("body", n.Body)}
	case *ListComp:
		return []Field{one("elt", n.Elt), many("generators", n.Generators)}
	case *SetComp:
		return []Field{one("elt", n.Elt), many("generators", n.Generators)}
	case *GeneratorExp:
		return []Field{one("elt", n.Elt), many("generators", n.Generators)}
	case *DictComp:
		return []Field{one("key", n.Key), one("value", n.Value), many("generators", n.Generators)}
	case *Comprehension:
		return []Field{one("target", n.Target), one("iter", n.Iter), many("ifs", n.Ifs)}
	case *Expr:
		return []Field{one("value", n.Value)}
	case *Assign:
		return []Field{many("targets", n.Targets), one("value", n.Value)}
	case *AugAssign:
		return []Field{one("target", n.Target), one("value", n.Value)}
	case *AnnAssign:
		return []Field{one("target", n.Target), one("annotation", n.Annotation), one("value", n.Value)}
	case *Import:
		return []Field{many("names", n.Names)}
	case *ImportFrom:
		return []Field{many("names", n.Names)}
	case *FunctionDef:
		return []Field{many("decorators", n.Decorators), argsField(n.Args), one("returns", n.Returns), many("body", n.Body)}
	case *ClassDef:
		return []Field{many("decorators", n.Decorators), many("bases", n.Bases), many("keywords", n.Keywords), many("body", n.Body)}
	case *Arguments:
		return []Field{many("params", n.Params)}
	case *Arg:
		return []Field{one("annotation", n.Annotation), one("default", n.Default)}
	case *If:
		return []Field{one("test", n.Test), many("body", n.Body), many("orelse", n.OrElse)}
	case *For:
		return []Field{one("target", n.Target), one("iter", n.Iter), many("body", n.Body), many("orelse", n.OrElse)}
	case *While:
		return []Field{one("test", n.Test), many("body", n.Body), many("orelse", n.OrElse)}
	case *Try:
		return []Field{many("body", n.Body), many("handlers", n.Handlers), many("orelse", n.OrElse), many("finalbody", n.FinalBody)}
	case *ExceptHandler:
		return []Field{one("type", n.Type), nameField("name", n.Name), many("body", n.Body)}
	case *With:
		return []Field{many("items", n.Items), many("body", n.Body)}
	case *WithItem:
		return []Field{one("context_expr", n.ContextExpr), one("optional_vars", n.OptionalVars)}
	case *Return:
		return []Field{one("value", n.Value)}
	case *Delete:
		return []Field{many("targets", n.Targets)}
	case *Raise:
		return []Field{one("exc", n.Exc), one("cause", n.Cause)}
	case *Assert:
		return []Field{one("test", n.Test), one("msg", n.Msg)}
	}
	return nil
}

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	if d, ok := n.(*Dict); ok {
		out := make([]Node, 0, 2*len(d.Values))
		for i, v := range d.Values {
			if i < len(d.Keys) && d.Keys[i] != nil {
				out = append(out, d.Keys[i])
			}
			out = append(out, v)
		}
		return out
	}
	var out []Node
	for _, f := range Fields(n) {
		out = append(out, f.Nodes...)
	}
	return out
}

// LocateChild returns the name of the field of parent that holds child and
// the full contents of that field. ok is false when child is not a direct
// child of parent.
func LocateChild(parent, child Node) (field string, nodes []Node, ok bool) {
	for _, f := range Fields(parent) {
		for _, n := range f.Nodes {
			if n == child {
				return f.Name, f.Nodes, true
			}
		}
	}
	return "", nil, false
}

// FieldOf is LocateChild reduced to the field name.
func FieldOf(child Node) string {
	p := child.Parent()
	if p == nil {
		return ""
	}
	f, _, _ := LocateChild(p, child)
	return f
}

// Walk yields n and all of its descendants in pre-order.
func Walk(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walk(n, yield)
	}
}

func walk(n Node, yield func(Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range Children(n) {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// Finish links every node of m to its parent and root, numbers nodes in
// pre-order and stamps m with a fresh serial. Builders call it once the tree
// is complete.
func Finish(m *Module) *Module {
	m.root = m
	m.parent = nil
	next := 0
	var link func(n, parent Node)
	link = func(n, parent Node) {
		b := n.base()
		b.parent = parent
		b.root = m
		b.id = next
		next++
		for _, c := range Children(n) {
			link(c, n)
		}
	}
	link(m, nil)
	m.size = next
	m.serial = moduleSerial.Add(1)
	return m
}

// Attach links a synthesized subtree under parent. The nodes get negative
// IDs so they never collide with parsed nodes.
func Attach(n, parent Node) Node {
	var root *Module
	if parent != nil {
		root = parent.Root()
	}
	var link func(n, parent Node)
	link = func(n, parent Node) {
		b := n.base()
		b.parent = parent
		b.root = root
		b.id = -int(synthesizedNext.Add(1))
		for _, c := range Children(n) {
			link(c, n)
		}
	}
	link(n, parent)
	return n
}
