package infer

import (
	"iter"

	"go.uber.org/zap"

	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

func collect(seq iter.Seq[tree.Node]) []tree.Node {
	var out []tree.Node
	for n := range seq {
		out = append(out, n)
	}
	return out
}

// fold synthesizes the literal result of an operation node.
func fold(op tree.Node, v value.Value) tree.Node {
	return tree.FromValue(v, op.Parent(), op.Pos())
}

// binary folds every pair of lhs and rhs results with apply. An
// Uninferable operand ends the sequence with Uninferable.
func (e *Engine) binary(n tree.Node, lhs, rhs iter.Seq[tree.Node], ctx *Context,
	apply func(a, b value.Value) (value.Value, error)) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		var right []tree.Node
		loaded, yielded := false, false
		emit := func(r tree.Node) bool {
			yielded = true
			return yield(r)
		}
		for l := range lhs {
			if !loaded {
				right = collect(rhs)
				loaded = true
			}
			for _, r := range right {
				if tree.IsUninferable(l) || tree.IsUninferable(r) {
					e.report(n, "uninferable operand")
					emit(tree.Uninferable)
					return
				}
				lv, err := e.deepLiteral(l, ctx, 0)
				if err == nil {
					var rv value.Value
					if rv, err = e.deepLiteral(r, ctx, 0); err == nil {
						var v value.Value
						if v, err = apply(lv, rv); err == nil {
							if !emit(fold(n, v)) {
								return
							}
							continue
						}
					}
				}
				e.report(n, "operation not folded", zap.Error(err))
				if !emit(tree.Uninferable) {
					return
				}
			}
		}
		if !yielded {
			yield(tree.Uninferable)
		}
	}
}

func (e *Engine) inferBinOp(n *tree.BinOp, ctx *Context) iter.Seq[tree.Node] {
	return e.binary(n, e.infer(n.Left, ctx), e.infer(n.Right, ctx), ctx, func(a, b value.Value) (value.Value, error) {
		return value.Binary(n.Op, a, b)
	})
}

// inferAugAssign folds the values the target held before the statement
// with the right-hand side, using in-place operator semantics.
func (e *Engine) inferAugAssign(n *tree.AugAssign, ctx *Context) iter.Seq[tree.Node] {
	return e.binary(n, e.priorValues(n.Target, ctx), e.infer(n.Value, ctx), ctx, func(a, b value.Value) (value.Value, error) {
		return value.InPlace(n.Op, a, b)
	})
}

// priorValues infers the bindings of an augmented assignment target that
// reach the statement.
func (e *Engine) priorValues(target tree.Node, ctx *Context) iter.Seq[tree.Node] {
	name, ok := target.(*tree.Name)
	if !ok {
		return e.uninferable(target, "augmented assignment to a non-name")
	}
	return func(yield func(tree.Node) bool) {
		u := e.unit(name, ctx)
		_, bindings := u.Index.Lookup(name, name.Ident)
		if len(bindings) == 0 {
			e.report(name, "augmented name has no prior value", zap.String("name", name.Ident))
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

// truth returns the truth value of an inferred result, if known.
func (e *Engine) truth(n tree.Node, ctx *Context) (bool, bool) {
	switch n.(type) {
	case *tree.Module, *tree.FunctionDef, *tree.ClassDef, *tree.Lambda:
		return true, true
	}
	if tree.IsUninferable(n) {
		return false, false
	}
	v, err := e.deepLiteral(n, ctx, 0)
	if err != nil {
		return false, false
	}
	return value.Truthy(v), true
}

func (e *Engine) inferUnaryOp(n *tree.UnaryOp, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		for r := range e.infer(n.Operand, ctx) {
			out := tree.Uninferable
			if n.Op == value.Not {
				if t, ok := e.truth(r, ctx); ok {
					out = fold(n, value.Bool(!t))
				}
			} else if v, err := e.deepLiteral(r, ctx, 0); err == nil {
				if folded, err := value.Unary(n.Op, v); err == nil {
					out = fold(n, folded)
				}
			}
			if tree.IsUninferable(out) {
				e.report(n, "unary operation not folded")
			}
			if !yield(out) {
				return
			}
		}
	}
}

// inferBoolOp yields the operand results `and`/`or` would return. An
// operand whose truth cannot be decided makes that path Uninferable.
func (e *Engine) inferBoolOp(op value.BoolOpKind, values []tree.Node, ctx *Context) iter.Seq[tree.Node] {
	if len(values) == 1 {
		return e.infer(values[0], ctx)
	}
	return func(yield func(tree.Node) bool) {
		for r := range e.infer(values[0], ctx) {
			t, ok := e.truth(r, ctx)
			if !ok {
				if !yield(tree.Uninferable) {
					return
				}
				continue
			}
			if t == (op == value.Or) {
				if !yield(r) {
					return
				}
				continue
			}
			for rest := range e.inferBoolOp(op, values[1:], ctx) {
				if !yield(rest) {
					return
				}
			}
		}
	}
}

func (e *Engine) inferCompare(n *tree.Compare, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		operands := append([]tree.Node{n.Left}, n.Comparators...)
		options := make([][]tree.Node, len(operands))
		for i, o := range operands {
			options[i] = collect(e.infer(o, ctx))
			if len(options[i]) == 0 {
				yield(tree.Uninferable)
				return
			}
		}
		combo := make([]value.Value, len(operands))
		var walk func(i int) bool
		walk = func(i int) bool {
			if i == len(operands) {
				result := true
				for j, op := range n.Ops {
					ok, err := value.Compare(op, combo[j], combo[j+1])
					if err != nil {
						e.report(n, "comparison not folded", zap.Error(err))
						return yield(tree.Uninferable)
					}
					if !ok {
						result = false
						break
					}
				}
				return yield(fold(n, value.Bool(result)))
			}
			for _, r := range options[i] {
				v, err := e.deepLiteral(r, ctx, 0)
				if err != nil {
					e.report(n, "comparison operand is not a literal")
					return yield(tree.Uninferable)
				}
				combo[i] = v
				if !walk(i + 1) {
					return false
				}
			}
			return true
		}
		walk(0)
	}
}

// inferIfExp picks the branch selected by a test of known truth, and both
// branches otherwise.
func (e *Engine) inferIfExp(n *tree.IfExp, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		body, orelse := false, false
		for r := range e.infer(n.Test, ctx) {
			t, ok := e.truth(r, ctx)
			switch {
			case !ok:
				body, orelse = true, true
			case t:
				body = true
			default:
				orelse = true
			}
		}
		if !body && !orelse {
			body, orelse = true, true
		}
		if body {
			for r := range e.infer(n.Body, ctx) {
				if !yield(r) {
					return
				}
			}
		}
		if orelse {
			for r := range e.infer(n.OrElse, ctx) {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// inferSubscript indexes literal lists, tuples, strings and dicts with a
// literal index or key. Slices are not supported.
func (e *Engine) inferSubscript(n *tree.Subscript, ctx *Context) iter.Seq[tree.Node] {
	return func(yield func(tree.Node) bool) {
		indices := collect(e.infer(n.Slice, ctx))
		for container := range e.infer(n.Value, ctx) {
			for _, index := range indices {
				var results iter.Seq[tree.Node]
				if !tree.IsUninferable(container) && !tree.IsUninferable(index) {
					results = e.subscript(n, container, index, ctx)
				}
				if results == nil {
					e.report(n, "subscript not resolved")
					results = single(tree.Uninferable)
				}
				for r := range results {
					if !yield(r) {
						return
					}
				}
			}
		}
	}
}

func (e *Engine) subscript(n *tree.Subscript, container, index tree.Node, ctx *Context) iter.Seq[tree.Node] {
	key, err := e.deepLiteral(index, ctx, 0)
	if err != nil {
		return nil
	}
	switch c := container.(type) {
	case *tree.List, *tree.Tuple:
		xs := elts(c)
		if hasStarred(xs) {
			return nil
		}
		i, ok := seqIndex(key, len(xs))
		if !ok {
			return nil
		}
		return e.infer(xs[i], ctx)
	case *tree.Dict:
		var match tree.Node
		for i, k := range c.Keys {
			if k == nil {
				return nil
			}
			kv, err := e.deepLiteral(k, ctx, 0)
			if err != nil {
				return nil
			}
			if value.Hashable(kv) && value.Equal(kv, key) {
				match = c.Values[i]
			}
		}
		if match == nil {
			return nil
		}
		return e.infer(match, ctx)
	case *tree.Constant:
		switch s := c.Value.(type) {
		case value.Str:
			rs := []rune(string(s))
			i, ok := seqIndex(key, len(rs))
			if !ok {
				return nil
			}
			return single(fold(n, value.Str(string(rs[i]))))
		case value.Bytes:
			i, ok := seqIndex(key, len(s))
			if !ok {
				return nil
			}
			return single(fold(n, value.Int(s[i])))
		}
	}
	return nil
}

// seqIndex normalizes a Python index into a sequence of length n.
func seqIndex(key value.Value, n int) (int, bool) {
	var i int64
	switch k := key.(type) {
	case value.Int:
		i = int64(k)
	case value.Bool:
		if k {
			i = 1
		}
	default:
		return 0, false
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}
