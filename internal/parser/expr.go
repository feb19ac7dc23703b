package parser

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

// exprList builds an expression that may be a bare comma list.
func (b *builder) exprList(n *sitter.Node) tree.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "expression_list" {
		return &tree.Tuple{Base: b.span(n), Elts: b.exprs(named(n))}
	}
	return b.expr(n)
}

func (b *builder) exprs(nodes []*sitter.Node) []tree.Node {
	out := make([]tree.Node, len(nodes))
	for i, c := range nodes {
		out[i] = b.expr(c)
	}
	return out
}

func (b *builder) unknown(n *sitter.Node) tree.Node {
	return &tree.Unknown{Base: b.span(n), Text: firstLine(b.text(n))}
}

func (b *builder) expr(n *sitter.Node) tree.Node {
	if n == nil {
		return nil
	}
	base := b.span(n)
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return &tree.Name{Base: base, Ident: b.text(n)}
	case "type", "parenthesized_expression", "as_pattern":
		kids := named(n)
		if len(kids) == 0 {
			return b.unknown(n)
		}
		if kids[0].Type() == "yield" {
			return b.unknown(kids[0])
		}
		return b.expr(kids[0])
	case "true":
		return &tree.Constant{Base: base, Value: value.Bool(true)}
	case "false":
		return &tree.Constant{Base: base, Value: value.Bool(false)}
	case "none":
		return &tree.Constant{Base: base, Value: value.None{}}
	case "ellipsis":
		return &tree.Constant{Base: base, Value: value.Ellipsis{}}
	case "integer":
		v, ok := parseInt(b.text(n))
		if !ok {
			return b.unknown(n)
		}
		return &tree.Constant{Base: base, Value: v}
	case "float":
		v, ok := parseFloat(b.text(n))
		if !ok {
			return b.unknown(n)
		}
		return &tree.Constant{Base: base, Value: v}
	case "string":
		v, err := decodeString(b.text(n))
		if err != nil {
			return b.unknown(n)
		}
		return &tree.Constant{Base: base, Value: v}
	case "concatenated_string":
		return b.concatenated(n)
	case "attribute":
		return &tree.Attribute{
			Base:  base,
			Value: b.expr(n.ChildByFieldName("object")),
			Attr:  b.text(n.ChildByFieldName("attribute")),
		}
	case "subscript":
		kids := named(n)
		sub := &tree.Subscript{Base: base, Value: b.expr(kids[0])}
		switch idx := kids[1:]; len(idx) {
		case 0:
			sub.Slice = b.unknown(n)
		case 1:
			sub.Slice = b.expr(idx[0])
		default:
			sub.Slice = &tree.Tuple{Base: b.spanFrom(idx[0], idx[len(idx)-1]), Elts: b.exprs(idx)}
		}
		return sub
	case "call":
		call := &tree.Call{Base: base, Func: b.expr(n.ChildByFieldName("function"))}
		if args := n.ChildByFieldName("arguments"); args != nil {
			if args.Type() == "generator_expression" {
				call.Args = []tree.Node{b.expr(args)}
			} else {
				call.Args, call.Keywords = b.arguments(args)
			}
		}
		return call
	case "list_splat", "parenthesized_list_splat":
		kids := named(n)
		if len(kids) == 0 {
			return b.unknown(n)
		}
		return &tree.Starred{Base: base, Value: b.expr(kids[0])}
	case "list":
		return &tree.List{Base: base, Elts: b.exprs(named(n))}
	case "tuple", "expression_list":
		return &tree.Tuple{Base: base, Elts: b.exprs(named(n))}
	case "set":
		return &tree.Set{Base: base, Elts: b.exprs(named(n))}
	case "dictionary":
		d := &tree.Dict{Base: base}
		for _, c := range named(n) {
			switch c.Type() {
			case "pair":
				d.Keys = append(d.Keys, b.expr(c.ChildByFieldName("key")))
				d.Values = append(d.Values, b.expr(c.ChildByFieldName("value")))
			case "dictionary_splat":
				d.Keys = append(d.Keys, nil)
				d.Values = append(d.Values, b.expr(named(c)[0]))
			}
		}
		return d
	case "binary_operator":
		op, ok := value.BinaryOpFromSymbol(b.text(n.ChildByFieldName("operator")))
		if !ok {
			return b.unknown(n)
		}
		return &tree.BinOp{
			Base:  base,
			Left:  b.expr(n.ChildByFieldName("left")),
			Op:    op,
			Right: b.expr(n.ChildByFieldName("right")),
		}
	case "unary_operator":
		var op value.UnaryOp
		switch b.text(n.ChildByFieldName("operator")) {
		case "-":
			op = value.USub
		case "+":
			op = value.UAdd
		case "~":
			op = value.Invert
		default:
			return b.unknown(n)
		}
		return &tree.UnaryOp{Base: base, Op: op, Operand: b.expr(n.ChildByFieldName("argument"))}
	case "not_operator":
		return &tree.UnaryOp{Base: base, Op: value.Not, Operand: b.expr(n.ChildByFieldName("argument"))}
	case "boolean_operator":
		return b.boolOp(n)
	case "comparison_operator":
		return b.compare(n)
	case "conditional_expression":
		kids := named(n)
		if len(kids) != 3 {
			return b.unknown(n)
		}
		return &tree.IfExp{Base: base, Body: b.expr(kids[0]), Test: b.expr(kids[1]), OrElse: b.expr(kids[2])}
	case "named_expression":
		name := n.ChildByFieldName("name")
		return &tree.NamedExpr{
			Base:   base,
			Target: &tree.Name{Base: b.span(name), Ident: b.text(name), Ctx: tree.Store},
			Value:  b.expr(n.ChildByFieldName("value")),
		}
	case "lambda":
		return &tree.Lambda{
			Base: base,
			Args: b.parameters(n.ChildByFieldName("parameters"), n),
			Body: b.expr(n.ChildByFieldName("body")),
		}
	case "list_comprehension":
		return &tree.ListComp{Base: base, Elt: b.expr(n.ChildByFieldName("body")), Generators: b.generators(n)}
	case "set_comprehension":
		return &tree.SetComp{Base: base, Elt: b.expr(n.ChildByFieldName("body")), Generators: b.generators(n)}
	case "generator_expression":
		return &tree.GeneratorExp{Base: base, Elt: b.expr(n.ChildByFieldName("body")), Generators: b.generators(n)}
	case "dictionary_comprehension":
		pair := n.ChildByFieldName("body")
		return &tree.DictComp{
			Base:       base,
			Key:        b.expr(pair.ChildByFieldName("key")),
			Value:      b.expr(pair.ChildByFieldName("value")),
			Generators: b.generators(n),
		}
	}
	return b.unknown(n)
}

func (b *builder) concatenated(n *sitter.Node) tree.Node {
	var acc value.Value
	for _, c := range named(n) {
		v, err := decodeString(b.text(c))
		if err != nil {
			return b.unknown(n)
		}
		if acc == nil {
			acc = v
			continue
		}
		if acc, err = value.Binary(value.Add, acc, v); err != nil {
			return b.unknown(n)
		}
	}
	if acc == nil {
		return b.unknown(n)
	}
	return &tree.Constant{Base: b.span(n), Value: acc}
}

// boolOp flattens left-nested chains of the same operator the way Python's
// own parser does.
func (b *builder) boolOp(n *sitter.Node) tree.Node {
	opText := b.text(n.ChildByFieldName("operator"))
	op := value.And
	if opText == "or" {
		op = value.Or
	}
	var values []tree.Node
	var collect func(c *sitter.Node)
	collect = func(c *sitter.Node) {
		if c.Type() == "boolean_operator" && b.text(c.ChildByFieldName("operator")) == opText {
			collect(c.ChildByFieldName("left"))
			collect(c.ChildByFieldName("right"))
			return
		}
		values = append(values, b.expr(c))
	}
	collect(n.ChildByFieldName("left"))
	collect(n.ChildByFieldName("right"))
	return &tree.BoolOp{Base: b.span(n), Op: op, Values: values}
}

func (b *builder) compare(n *sitter.Node) tree.Node {
	c := &tree.Compare{Base: b.span(n)}
	var pending string
	first := true
	for i := 0; i < int(n.ChildCount()); i++ {
		k := n.Child(i)
		if k.Type() == "comment" {
			continue
		}
		if k.IsNamed() {
			if first {
				c.Left = b.expr(k)
				first = false
				continue
			}
			c.Comparators = append(c.Comparators, b.expr(k))
			continue
		}
		tok := strings.Join(strings.Fields(b.text(k)), " ")
		switch {
		case pending == "" && (tok == "not" || tok == "is"):
			pending = tok
			// "is" alone and "not in" are resolved by the next token.
			if tok == "is" && !b.nextIsNot(n, i) {
				c.Ops = append(c.Ops, value.Is)
				pending = ""
			}
		case pending != "":
			op, ok := value.CmpOpFromSymbol(pending + " " + tok)
			if !ok {
				return b.unknown(n)
			}
			c.Ops = append(c.Ops, op)
			pending = ""
		default:
			op, ok := value.CmpOpFromSymbol(tok)
			if !ok {
				return b.unknown(n)
			}
			c.Ops = append(c.Ops, op)
		}
	}
	if len(c.Ops) != len(c.Comparators) || c.Left == nil {
		return b.unknown(n)
	}
	return c
}

func (b *builder) nextIsNot(n *sitter.Node, i int) bool {
	if i+1 >= int(n.ChildCount()) {
		return false
	}
	k := n.Child(i + 1)
	return !k.IsNamed() && b.text(k) == "not"
}

func (b *builder) generators(n *sitter.Node) []*tree.Comprehension {
	var gens []*tree.Comprehension
	for _, c := range named(n) {
		switch c.Type() {
		case "for_in_clause":
			gens = append(gens, &tree.Comprehension{
				Base:   b.span(c),
				Target: b.target(c.ChildByFieldName("left"), tree.Store),
				Iter:   b.exprList(c.ChildByFieldName("right")),
				Async:  hasToken(c, "async"),
			})
		case "if_clause":
			if len(gens) == 0 {
				continue
			}
			g := gens[len(gens)-1]
			if kids := named(c); len(kids) > 0 {
				g.Ifs = append(g.Ifs, b.expr(kids[0]))
			}
		}
	}
	return gens
}

// target builds an assignment target with the given context.
func (b *builder) target(n *sitter.Node, ctx tree.Ctx) tree.Node {
	if n == nil {
		return nil
	}
	base := b.span(n)
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return &tree.Name{Base: base, Ident: b.text(n), Ctx: ctx}
	case "attribute":
		return &tree.Attribute{
			Base:  base,
			Value: b.expr(n.ChildByFieldName("object")),
			Attr:  b.text(n.ChildByFieldName("attribute")),
			Ctx:   ctx,
		}
	case "subscript":
		sub := b.expr(n).(*tree.Subscript)
		sub.Ctx = ctx
		return sub
	case "pattern_list", "tuple_pattern", "expression_list", "tuple":
		return &tree.Tuple{Base: base, Elts: b.targets(named(n), ctx), Ctx: ctx}
	case "list_pattern", "list":
		return &tree.List{Base: base, Elts: b.targets(named(n), ctx), Ctx: ctx}
	case "list_splat_pattern", "list_splat":
		kids := named(n)
		if len(kids) == 0 {
			return b.unknown(n)
		}
		return &tree.Starred{Base: base, Value: b.target(kids[0], ctx), Ctx: ctx}
	case "parenthesized_expression":
		if kids := named(n); len(kids) == 1 {
			return b.target(kids[0], ctx)
		}
	}
	return b.unknown(n)
}

func (b *builder) targets(nodes []*sitter.Node, ctx tree.Ctx) []tree.Node {
	out := make([]tree.Node, len(nodes))
	for i, c := range nodes {
		out[i] = b.target(c, ctx)
	}
	return out
}

func parseInt(s string) (value.Value, bool) {
	s = strings.ToLower(strings.ReplaceAll(s, "_", ""))
	if strings.HasSuffix(s, "j") {
		return nil, false
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0o"):
		base, s = 8, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, s = 2, s[2:]
	}
	if i, err := strconv.ParseInt(s, base, 64); err == nil {
		return value.Int(i), true
	}
	i, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, false
	}
	v, err := value.NewInt(i)
	if err != nil {
		return nil, false
	}
	return v, true
}

func parseFloat(s string) (value.Value, bool) {
	s = strings.ToLower(strings.ReplaceAll(s, "_", ""))
	if strings.HasSuffix(s, "j") {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, false
	}
	return value.Float(f), true
}
