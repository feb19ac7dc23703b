package tree

import (
	"strings"

	"github.com/jward/pyinfer/internal/value"
)

// Unparse renders n as Python source. Expressions round-trip; compound
// statements render their header only. The output is canonical: two
// structurally identical expressions always render the same text.
func Unparse(n Node) string {
	var b strings.Builder
	unparse(&b, n)
	return b.String()
}

func unparse(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
	case *uninferable:
		b.WriteString("Uninferable")
	case *Module:
		b.WriteString("<module " + n.Name + ">")
	case *Name:
		b.WriteString(n.Ident)
	case *Attribute:
		operand(b, n.Value)
		b.WriteString("." + n.Attr)
	case *Subscript:
		operand(b, n.Value)
		b.WriteString("[")
		if t, ok := n.Slice.(*Tuple); ok && len(t.Elts) > 0 {
			joinNodes(b, t.Elts)
			if len(t.Elts) == 1 {
				b.WriteString(",")
			}
		} else {
			unparse(b, n.Slice)
		}
		b.WriteString("]")
	case *Starred:
		b.WriteString("*")
		operand(b, n.Value)
	case *Call:
		operand(b, n.Func)
		b.WriteString("(")
		joinNodes(b, n.Args)
		for i, k := range n.Keywords {
			if i > 0 || len(n.Args) > 0 {
				b.WriteString(", ")
			}
			unparse(b, k)
		}
		b.WriteString(")")
	case *Keyword:
		if n.Arg == "" {
			b.WriteString("**")
		} else {
			b.WriteString(n.Arg + "=")
		}
		unparse(b, n.Value)
	case *Constant:
		b.WriteString(value.Repr(n.Value))
	case *List:
		b.WriteString("[")
		joinNodes(b, n.Elts)
		b.WriteString("]")
	case *Tuple:
		b.WriteString("(")
		joinNodes(b, n.Elts)
		if len(n.Elts) == 1 {
			b.WriteString(",")
		}
		b.WriteString(")")
	case *Set:
		if len(n.Elts) == 0 {
			b.WriteString("set()")
			return
		}
		b.WriteString("{")
		joinNodes(b, n.Elts)
		b.WriteString("}")
	case *Dict:
		b.WriteString("{")
		for i, v := range n.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			if i >= len(n.Keys) || n.Keys[i] == nil {
				b.WriteString("**")
				operand(b, v)
				continue
			}
			unparse(b, n.Keys[i])
			b.WriteString(": ")
			unparse(b, v)
		}
		b.WriteString("}")
	case *BinOp:
		operand(b, n.Left)
		b.WriteString(" " + n.Op.String() + " ")
		operand(b, n.Right)
	case *BoolOp:
		for i, v := range n.Values {
			if i > 0 {
				b.WriteString(" " + n.Op.String() + " ")
			}
			operand(b, v)
		}
	case *UnaryOp:
		b.WriteString(n.Op.String())
		operand(b, n.Operand)
	case *Compare:
		operand(b, n.Left)
		for i, op := range n.Ops {
			b.WriteString(" " + op.String() + " ")
			if i < len(n.Comparators) {
				operand(b, n.Comparators[i])
			}
		}
	case *IfExp:
		operand(b, n.Body)
		b.WriteString(" if ")
		operand(b, n.Test)
		b.WriteString(" else ")
		operand(b, n.OrElse)
	case *NamedExpr:
		b.WriteString("(")
		unparse(b, n.Target)
		b.WriteString(" := ")
		unparse(b, n.Value)
		b.WriteString(")")
	case *Lambda:
		b.WriteString("lambda")
		if n.Args != nil && len(n.Args.Params) > 0 {
			b.WriteString(" ")
			unparse(b, n.Args)
		}
		b.WriteString(": ")
		unparse(b, n.Body)
	case *ListComp:
		b.WriteString("[")
		unparse(b, n.Elt)
		generators(b, n.Generators)
		b.WriteString("]")
	case *SetComp:
		b.WriteString("{")
		unparse(b, n.Elt)
		generators(b, n.Generators)
		b.WriteString("}")
	case *GeneratorExp:
		b.WriteString("(")
		unparse(b, n.Elt)
		generators(b, n.Generators)
		b.WriteString(")")
	case *DictComp:
		b.WriteString("{")
		unparse(b, n.Key)
		b.WriteString(": ")
		unparse(b, n.Value)
		generators(b, n.Generators)
		b.WriteString("}")
	case *Comprehension:
		generators(b, []*Comprehension{n})
	case *Unknown:
		b.WriteString(n.Text)
	case *Arguments:
		for i, a := range n.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			unparse(b, a)
		}
	case *Arg:
		switch n.ParamKind {
		case VarPositional:
			b.WriteString("*")
		case VarKeyword:
			b.WriteString("**")
		}
		b.WriteString(n.Name)
		if n.Annotation != nil {
			b.WriteString(": ")
			unparse(b, n.Annotation)
		}
		if n.Default != nil {
			if n.Annotation != nil {
				b.WriteString(" = ")
			} else {
				b.WriteString("=")
			}
			unparse(b, n.Default)
		}
	case *Alias:
		b.WriteString(n.Name)
		if n.AsName != "" {
			b.WriteString(" as " + n.AsName)
		}
	case *Expr:
		unparse(b, n.Value)
	case *Assign:
		for _, t := range n.Targets {
			unparse(b, t)
			b.WriteString(" = ")
		}
		unparse(b, n.Value)
	case *AugAssign:
		unparse(b, n.Target)
		b.WriteString(" " + n.Op.String() + "= ")
		unparse(b, n.Value)
	case *AnnAssign:
		unparse(b, n.Target)
		b.WriteString(": ")
		unparse(b, n.Annotation)
		if n.Value != nil {
			b.WriteString(" = ")
			unparse(b, n.Value)
		}
	case *Import:
		b.WriteString("import ")
		for i, a := range n.Names {
			if i > 0 {
				b.WriteString(", ")
			}
			unparse(b, a)
		}
	case *ImportFrom:
		b.WriteString("from " + strings.Repeat(".", n.Level) + n.Module + " import ")
		for i, a := range n.Names {
			if i > 0 {
				b.WriteString(", ")
			}
			unparse(b, a)
		}
	case *FunctionDef:
		if n.Async {
			b.WriteString("async ")
		}
		b.WriteString("def " + n.Name + "(")
		if n.Args != nil {
			unparse(b, n.Args)
		}
		b.WriteString(")")
	case *ClassDef:
		b.WriteString("class " + n.Name)
		if len(n.Bases) > 0 || len(n.Keywords) > 0 {
			b.WriteString("(")
			joinNodes(b, n.Bases)
			for i, k := range n.Keywords {
				if i > 0 || len(n.Bases) > 0 {
					b.WriteString(", ")
				}
				unparse(b, k)
			}
			b.WriteString(")")
		}
	case *If:
		b.WriteString("if ")
		unparse(b, n.Test)
	case *For:
		b.WriteString("for ")
		unparse(b, n.Target)
		b.WriteString(" in ")
		unparse(b, n.Iter)
	case *While:
		b.WriteString("while ")
		unparse(b, n.Test)
	case *Try:
		b.WriteString("try")
	case *ExceptHandler:
		b.WriteString("except")
		if n.Type != nil {
			b.WriteString(" ")
			unparse(b, n.Type)
		}
		if n.Name != nil {
			b.WriteString(" as " + n.Name.Ident)
		}
	case *With:
		b.WriteString("with ")
		for i, it := range n.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			unparse(b, it)
		}
	case *WithItem:
		unparse(b, n.ContextExpr)
		if n.OptionalVars != nil {
			b.WriteString(" as ")
			unparse(b, n.OptionalVars)
		}
	case *Return:
		b.WriteString("return")
		if n.Value != nil {
			b.WriteString(" ")
			unparse(b, n.Value)
		}
	case *Delete:
		b.WriteString("del ")
		joinNodes(b, n.Targets)
	case *Global:
		b.WriteString("global " + strings.Join(n.Names, ", "))
	case *Nonlocal:
		b.WriteString("nonlocal " + strings.Join(n.Names, ", "))
	case *Pass:
		b.WriteString("pass")
	case *Break:
		b.WriteString("break")
	case *Continue:
		b.WriteString("continue")
	case *Raise:
		b.WriteString("raise")
		if n.Exc != nil {
			b.WriteString(" ")
			unparse(b, n.Exc)
		}
	case *Assert:
		b.WriteString("assert ")
		unparse(b, n.Test)
	case *EndOfFrame:
	}
}

// operand renders n, parenthesized when it binds looser than a primary.
func operand(b *strings.Builder, n Node) {
	switch n.(type) {
	case *BinOp, *BoolOp, *UnaryOp, *Compare, *IfExp, *Lambda:
		b.WriteString("(")
		unparse(b, n)
		b.WriteString(")")
	default:
		unparse(b, n)
	}
}

func joinNodes(b *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		unparse(b, n)
	}
}

func generators(b *strings.Builder, gens []*Comprehension) {
	for _, g := range gens {
		if g.Async {
			b.WriteString(" async")
		}
		b.WriteString(" for ")
		unparse(b, g.Target)
		b.WriteString(" in ")
		operand(b, g.Iter)
		for _, c := range g.Ifs {
			b.WriteString(" if ")
			operand(b, c)
		}
	}
}
