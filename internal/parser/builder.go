package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

type builder struct {
	src     []byte
	rewrite bool
}

func (b *builder) span(n *sitter.Node) tree.Base {
	s, e := n.StartPoint(), n.EndPoint()
	return tree.Span(
		tree.Pos{Line: int(s.Row) + 1, Col: int(s.Column)},
		tree.Pos{Line: int(e.Row) + 1, Col: int(e.Column)},
	)
}

func (b *builder) spanFrom(start, end *sitter.Node) tree.Base {
	s, e := start.StartPoint(), end.EndPoint()
	return tree.Span(
		tree.Pos{Line: int(s.Row) + 1, Col: int(s.Column)},
		tree.Pos{Line: int(e.Row) + 1, Col: int(e.Column)},
	)
}

func (b *builder) text(n *sitter.Node) string { return n.Content(b.src) }

func (b *builder) endOfFrame(n *sitter.Node) tree.Node {
	e := n.EndPoint()
	return &tree.EndOfFrame{Base: tree.At(int(e.Row)+1, int(e.Column))}
}

// named returns the named children of n, comments excluded.
func named(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hasToken reports whether n has an anonymous child with the given text as
// its type, such as "async".
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

// block builds the statements of a module or block node.
func (b *builder) block(n *sitter.Node) []tree.Node {
	if n == nil {
		return nil
	}
	var out []tree.Node
	for _, c := range named(n) {
		out = append(out, b.stmt(c)...)
	}
	return out
}

// frameBody is block for function and class bodies: the body is closed by
// an EndOfFrame sentinel positioned at the end of the definition.
func (b *builder) frameBody(body, def *sitter.Node) []tree.Node {
	return append(b.block(body), b.endOfFrame(def))
}

func (b *builder) stmt(n *sitter.Node) []tree.Node {
	base := b.span(n)
	switch n.Type() {
	case "expression_statement":
		return []tree.Node{b.expressionStatement(n)}
	case "return_statement":
		ret := &tree.Return{Base: base}
		if kids := named(n); len(kids) > 0 {
			ret.Value = b.exprList(kids[0])
		}
		return []tree.Node{ret}
	case "delete_statement":
		del := &tree.Delete{Base: base}
		for _, c := range named(n) {
			if c.Type() == "expression_list" {
				for _, t := range named(c) {
					del.Targets = append(del.Targets, b.target(t, tree.Del))
				}
				continue
			}
			del.Targets = append(del.Targets, b.target(c, tree.Del))
		}
		return []tree.Node{del}
	case "pass_statement":
		return []tree.Node{&tree.Pass{Base: base}}
	case "break_statement":
		return []tree.Node{&tree.Break{Base: base}}
	case "continue_statement":
		return []tree.Node{&tree.Continue{Base: base}}
	case "raise_statement":
		r := &tree.Raise{Base: base}
		if kids := named(n); len(kids) > 0 {
			r.Exc = b.exprList(kids[0])
		}
		if c := n.ChildByFieldName("cause"); c != nil {
			r.Cause = b.expr(c)
		}
		return []tree.Node{r}
	case "assert_statement":
		a := &tree.Assert{Base: base}
		kids := named(n)
		if len(kids) > 0 {
			a.Test = b.expr(kids[0])
		}
		if len(kids) > 1 {
			a.Msg = b.expr(kids[1])
		}
		return []tree.Node{a}
	case "global_statement":
		return []tree.Node{&tree.Global{Base: base, Names: b.identifiers(n)}}
	case "nonlocal_statement":
		return []tree.Node{&tree.Nonlocal{Base: base, Names: b.identifiers(n)}}
	case "import_statement":
		imp := &tree.Import{Base: base}
		for _, c := range named(n) {
			imp.Names = append(imp.Names, b.alias(c))
		}
		return []tree.Node{imp}
	case "import_from_statement":
		return []tree.Node{b.importFrom(n)}
	case "future_import_statement":
		imp := &tree.ImportFrom{Base: base, Module: "__future__"}
		for _, c := range named(n) {
			imp.Names = append(imp.Names, b.alias(c))
		}
		return []tree.Node{imp}
	case "if_statement":
		return []tree.Node{b.ifStatement(n)}
	case "for_statement":
		return []tree.Node{&tree.For{
			Base:   base,
			Target: b.target(n.ChildByFieldName("left"), tree.Store),
			Iter:   b.exprList(n.ChildByFieldName("right")),
			Body:   b.block(n.ChildByFieldName("body")),
			OrElse: b.elseBody(n.ChildByFieldName("alternative")),
			Async:  hasToken(n, "async"),
		}}
	case "while_statement":
		return []tree.Node{&tree.While{
			Base:   base,
			Test:   b.expr(n.ChildByFieldName("condition")),
			Body:   b.block(n.ChildByFieldName("body")),
			OrElse: b.elseBody(n.ChildByFieldName("alternative")),
		}}
	case "try_statement":
		return []tree.Node{b.tryStatement(n)}
	case "with_statement":
		return []tree.Node{b.withStatement(n)}
	case "function_definition":
		return []tree.Node{b.functionDef(n, nil)}
	case "class_definition":
		return []tree.Node{b.classDef(n, nil)}
	case "decorated_definition":
		var decorators []tree.Node
		for _, c := range named(n) {
			if c.Type() == "decorator" {
				if kids := named(c); len(kids) > 0 {
					decorators = append(decorators, b.expr(kids[0]))
				}
			}
		}
		def := n.ChildByFieldName("definition")
		if def == nil {
			return nil
		}
		if def.Type() == "class_definition" {
			return []tree.Node{b.classDef(def, decorators)}
		}
		return []tree.Node{b.functionDef(def, decorators)}
	}
	// match, type aliases, print/exec and anything newer: opaque.
	return []tree.Node{&tree.Expr{Base: base, Value: &tree.Unknown{Base: base, Text: firstLine(b.text(n))}}}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (b *builder) identifiers(n *sitter.Node) []string {
	var names []string
	for _, c := range named(n) {
		names = append(names, b.text(c))
	}
	return names
}

func dotted(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func (b *builder) alias(n *sitter.Node) *tree.Alias {
	a := &tree.Alias{Base: b.span(n)}
	switch n.Type() {
	case "aliased_import":
		a.Name = dotted(b.text(n.ChildByFieldName("name")))
		a.AsName = b.text(n.ChildByFieldName("alias"))
	case "wildcard_import":
		a.Name = "*"
	default:
		a.Name = dotted(b.text(n))
	}
	return a
}

func (b *builder) importFrom(n *sitter.Node) tree.Node {
	imp := &tree.ImportFrom{Base: b.span(n)}
	kids := named(n)
	if len(kids) == 0 {
		return imp
	}
	mod := kids[0]
	if mod.Type() == "relative_import" {
		for _, c := range named(mod) {
			switch c.Type() {
			case "import_prefix":
				imp.Level = strings.Count(b.text(c), ".")
			default:
				imp.Module = dotted(b.text(c))
			}
		}
	} else {
		imp.Module = dotted(b.text(mod))
	}
	for _, c := range kids[1:] {
		imp.Names = append(imp.Names, b.alias(c))
	}
	return imp
}

func (b *builder) elseBody(n *sitter.Node) []tree.Node {
	if n == nil {
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return b.block(body)
	}
	kids := named(n)
	if len(kids) == 0 {
		return nil
	}
	return b.block(kids[len(kids)-1])
}

func (b *builder) ifStatement(n *sitter.Node) tree.Node {
	var elifs []*sitter.Node
	var orelse []tree.Node
	for _, c := range named(n) {
		switch c.Type() {
		case "elif_clause":
			elifs = append(elifs, c)
		case "else_clause":
			orelse = b.elseBody(c)
		}
	}
	for i := len(elifs) - 1; i >= 0; i-- {
		c := elifs[i]
		orelse = []tree.Node{&tree.If{
			Base:   b.spanFrom(c, n),
			Test:   b.expr(c.ChildByFieldName("condition")),
			Body:   b.block(c.ChildByFieldName("consequence")),
			OrElse: orelse,
		}}
	}
	return &tree.If{
		Base:   b.span(n),
		Test:   b.expr(n.ChildByFieldName("condition")),
		Body:   b.block(n.ChildByFieldName("consequence")),
		OrElse: orelse,
	}
}

func (b *builder) tryStatement(n *sitter.Node) tree.Node {
	t := &tree.Try{Base: b.span(n), Body: b.block(n.ChildByFieldName("body"))}
	for _, c := range named(n) {
		switch c.Type() {
		case "except_clause", "except_group_clause":
			t.Handlers = append(t.Handlers, b.exceptHandler(c))
		case "else_clause":
			t.OrElse = b.elseBody(c)
		case "finally_clause":
			t.FinalBody = b.elseBody(c)
		}
	}
	return t
}

func (b *builder) exceptHandler(n *sitter.Node) *tree.ExceptHandler {
	h := &tree.ExceptHandler{Base: b.span(n)}
	var exprs []*sitter.Node
	for _, c := range named(n) {
		if c.Type() == "block" {
			h.Body = b.block(c)
			continue
		}
		exprs = append(exprs, c)
	}
	if len(exprs) == 1 && exprs[0].Type() == "as_pattern" {
		pat := exprs[0]
		exprs = named(pat)
		if alias := pat.ChildByFieldName("alias"); alias != nil {
			exprs = []*sitter.Node{exprs[0], alias}
		}
	}
	if len(exprs) > 0 {
		h.Type = b.expr(exprs[0])
	}
	if len(exprs) > 1 {
		id := exprs[1]
		if id.Type() == "as_pattern_target" {
			if kids := named(id); len(kids) > 0 {
				id = kids[0]
			}
		}
		h.Name = &tree.Name{Base: b.span(id), Ident: b.text(id), Ctx: tree.Store}
	}
	return h
}

func (b *builder) withStatement(n *sitter.Node) tree.Node {
	w := &tree.With{
		Base:  b.span(n),
		Body:  b.block(n.ChildByFieldName("body")),
		Async: hasToken(n, "async"),
	}
	var items func(c *sitter.Node)
	items = func(c *sitter.Node) {
		switch c.Type() {
		case "with_clause", "parenthesized_expression":
			for _, k := range named(c) {
				items(k)
			}
		case "with_item":
			w.Items = append(w.Items, b.withItem(c))
		}
	}
	for _, c := range named(n) {
		if c.Type() != "block" {
			items(c)
		}
	}
	return w
}

func (b *builder) withItem(n *sitter.Node) *tree.WithItem {
	item := &tree.WithItem{Base: b.span(n)}
	v := n.ChildByFieldName("value")
	if v == nil {
		if kids := named(n); len(kids) > 0 {
			v = kids[0]
		}
	}
	if v == nil {
		return item
	}
	if v.Type() == "as_pattern" {
		kids := named(v)
		item.ContextExpr = b.expr(kids[0])
		if alias := v.ChildByFieldName("alias"); alias != nil {
			target := alias
			if k := named(alias); alias.Type() == "as_pattern_target" && len(k) > 0 {
				target = k[0]
			}
			item.OptionalVars = b.target(target, tree.Store)
		}
		return item
	}
	item.ContextExpr = b.expr(v)
	if alias := n.ChildByFieldName("alias"); alias != nil {
		item.OptionalVars = b.target(alias, tree.Store)
	}
	return item
}

func (b *builder) functionDef(n *sitter.Node, decorators []tree.Node) tree.Node {
	fn := &tree.FunctionDef{
		Base:       b.span(n),
		Name:       b.text(n.ChildByFieldName("name")),
		Decorators: decorators,
		Args:       b.parameters(n.ChildByFieldName("parameters"), n),
		Async:      hasToken(n, "async"),
	}
	if r := n.ChildByFieldName("return_type"); r != nil {
		fn.Returns = b.expr(r)
	}
	fn.Body = b.frameBody(n.ChildByFieldName("body"), n)
	return fn
}

func (b *builder) classDef(n *sitter.Node, decorators []tree.Node) tree.Node {
	cls := &tree.ClassDef{
		Base:       b.span(n),
		Name:       b.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		cls.Bases, cls.Keywords = b.arguments(sup)
	}
	cls.Body = b.frameBody(n.ChildByFieldName("body"), n)
	return cls
}

// parameters builds the Arguments of a def or lambda. owner positions an
// empty parameter list.
func (b *builder) parameters(n, owner *sitter.Node) *tree.Arguments {
	if n == nil {
		s := owner.StartPoint()
		return &tree.Arguments{Base: tree.At(int(s.Row)+1, int(s.Column))}
	}
	args := &tree.Arguments{Base: b.span(n)}
	kind := tree.Positional
	for _, c := range named(n) {
		arg := &tree.Arg{Base: b.span(c), ParamKind: kind}
		switch c.Type() {
		case "identifier":
			arg.Name = b.text(c)
		case "default_parameter":
			arg.Name = b.text(c.ChildByFieldName("name"))
			arg.Default = b.expr(c.ChildByFieldName("value"))
		case "typed_default_parameter":
			arg.Name = b.text(c.ChildByFieldName("name"))
			arg.Annotation = b.expr(c.ChildByFieldName("type"))
			arg.Default = b.expr(c.ChildByFieldName("value"))
		case "typed_parameter":
			inner := named(c)[0]
			arg.Annotation = b.expr(c.ChildByFieldName("type"))
			switch inner.Type() {
			case "list_splat_pattern":
				arg.ParamKind = tree.VarPositional
				kind = tree.KeywordOnly
				arg.Name = b.splatName(inner)
			case "dictionary_splat_pattern":
				arg.ParamKind = tree.VarKeyword
				arg.Name = b.splatName(inner)
			default:
				arg.Name = b.text(inner)
			}
		case "list_splat_pattern":
			arg.ParamKind = tree.VarPositional
			arg.Name = b.splatName(c)
			kind = tree.KeywordOnly
		case "dictionary_splat_pattern":
			arg.ParamKind = tree.VarKeyword
			arg.Name = b.splatName(c)
		case "keyword_separator":
			kind = tree.KeywordOnly
			continue
		case "positional_separator":
			for _, p := range args.Params {
				if p.ParamKind == tree.Positional {
					p.ParamKind = tree.PositionalOnly
				}
			}
			continue
		default:
			continue
		}
		args.Params = append(args.Params, arg)
	}
	return args
}

func (b *builder) splatName(n *sitter.Node) string {
	if kids := named(n); len(kids) > 0 {
		return b.text(kids[0])
	}
	return strings.TrimLeft(b.text(n), "*")
}

// arguments splits an argument_list into positional arguments and keywords.
func (b *builder) arguments(n *sitter.Node) ([]tree.Node, []*tree.Keyword) {
	var args []tree.Node
	var kws []*tree.Keyword
	for _, c := range named(n) {
		switch c.Type() {
		case "keyword_argument":
			kws = append(kws, &tree.Keyword{
				Base:  b.span(c),
				Arg:   b.text(c.ChildByFieldName("name")),
				Value: b.expr(c.ChildByFieldName("value")),
			})
		case "dictionary_splat":
			kws = append(kws, &tree.Keyword{Base: b.span(c), Value: b.expr(named(c)[0])})
		default:
			args = append(args, b.expr(c))
		}
	}
	return args, kws
}

func (b *builder) expressionStatement(n *sitter.Node) tree.Node {
	base := b.span(n)
	kids := named(n)
	if len(kids) == 1 {
		switch kids[0].Type() {
		case "assignment":
			return b.assignment(kids[0], base)
		case "augmented_assignment":
			c := kids[0]
			op, _ := value.BinaryOpFromSymbol(b.text(c.ChildByFieldName("operator")))
			return &tree.AugAssign{
				Base:   base,
				Target: b.target(c.ChildByFieldName("left"), tree.Store),
				Op:     op,
				Value:  b.exprList(c.ChildByFieldName("right")),
			}
		}
	}
	var e tree.Node
	if len(kids) == 1 {
		e = b.expr(kids[0])
	} else {
		elts := make([]tree.Node, len(kids))
		for i, k := range kids {
			elts[i] = b.expr(k)
		}
		e = &tree.Tuple{Base: base, Elts: elts}
	}
	if b.rewrite {
		if aug := mutationRewrite(e, base); aug != nil {
			return aug
		}
	}
	return &tree.Expr{Base: base, Value: e}
}

// mutationRewrite turns NAME.append(x) into NAME += [x] and NAME.extend(x)
// into NAME += x.
func mutationRewrite(e tree.Node, base tree.Base) tree.Node {
	call, ok := e.(*tree.Call)
	if !ok || len(call.Args) != 1 || len(call.Keywords) != 0 {
		return nil
	}
	attr, ok := call.Func.(*tree.Attribute)
	if !ok {
		return nil
	}
	name, ok := attr.Value.(*tree.Name)
	if !ok {
		return nil
	}
	arg := call.Args[0]
	if _, starred := arg.(*tree.Starred); starred {
		return nil
	}
	var rhs tree.Node
	switch attr.Attr {
	case "append":
		rhs = &tree.List{Base: tree.Span(arg.Pos(), arg.End()), Elts: []tree.Node{arg}}
	case "extend":
		rhs = arg
	default:
		return nil
	}
	name.Ctx = tree.Store
	return &tree.AugAssign{Base: base, Target: name, Op: value.Add, Value: rhs}
}

func (b *builder) assignment(n *sitter.Node, base tree.Base) tree.Node {
	if typ := n.ChildByFieldName("type"); typ != nil {
		ann := &tree.AnnAssign{
			Base:       base,
			Target:     b.target(n.ChildByFieldName("left"), tree.Store),
			Annotation: b.expr(typ),
		}
		if r := n.ChildByFieldName("right"); r != nil {
			ann.Value = b.exprList(r)
		}
		return ann
	}
	a := &tree.Assign{Base: base}
	cur := n
	for {
		a.Targets = append(a.Targets, b.target(cur.ChildByFieldName("left"), tree.Store))
		right := cur.ChildByFieldName("right")
		if right != nil && right.Type() == "assignment" && right.ChildByFieldName("type") == nil {
			cur = right
			continue
		}
		if right != nil {
			a.Value = b.exprList(right)
		} else {
			a.Value = &tree.Unknown{Base: base}
		}
		return a
	}
}
