package infer

import (
	"errors"
	"fmt"

	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

// ErrNotALiteral is returned (wrapped) when a node cannot be reduced to a
// host value.
var ErrNotALiteral = errors.New("not a literal")

// maxLiteralDepth bounds the nesting followed by deep literal evaluation.
// It matches CPython's default recursion limit.
const maxLiteralDepth = 1000

func notLiteral(n tree.Node) error {
	if tree.IsUninferable(n) {
		return fmt.Errorf("%w: uninferable", ErrNotALiteral)
	}
	return fmt.Errorf("%w: %s at %s", ErrNotALiteral, n.Kind(), n.Pos())
}

// Literal evaluates a constant or a display of constants without any
// inference, like Python's ast.literal_eval. Starred elements and dict
// spreads of literal displays are spliced.
func Literal(n tree.Node) (value.Value, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil node", ErrNotALiteral)
	}
	return evalLiteral(n, Literal)
}

// LiteralEval evaluates n to a host value, inferring every element that is
// not itself a literal. Each such element must infer to exactly one result.
func (e *Engine) LiteralEval(n tree.Node, ctx *Context) (value.Value, error) {
	if ctx == nil {
		ctx = e.NewContext()
	}
	return e.deepLiteral(n, ctx, 0)
}

func (e *Engine) deepLiteral(n tree.Node, ctx *Context, depth int) (value.Value, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil node", ErrNotALiteral)
	}
	if depth > maxLiteralDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrNotALiteral)
	}
	switch n.(type) {
	case *tree.Constant, *tree.List, *tree.Tuple, *tree.Set, *tree.Dict:
		return evalLiteral(n, func(x tree.Node) (value.Value, error) {
			return e.deepLiteral(x, ctx, depth+1)
		})
	}
	if tree.IsUninferable(n) {
		return nil, notLiteral(n)
	}

	var only tree.Node
	count := 0
	for r := range e.infer(n, ctx) {
		count++
		if count > 1 {
			break
		}
		only = r
	}
	switch {
	case count == 0:
		return nil, notLiteral(tree.Uninferable)
	case count > 1:
		return nil, fmt.Errorf("%w: %s at %s is ambiguous", ErrNotALiteral, n.Kind(), n.Pos())
	case only == n:
		return nil, notLiteral(n)
	}
	return e.deepLiteral(only, ctx, depth+1)
}

// evalLiteral evaluates the literal node kinds, using sub for their
// elements.
func evalLiteral(n tree.Node, sub func(tree.Node) (value.Value, error)) (value.Value, error) {
	switch n := n.(type) {
	case *tree.Constant:
		return n.Value, nil
	case *tree.List:
		xs, err := evalElts(n.Elts, sub)
		if err != nil {
			return nil, err
		}
		return value.List(xs), nil
	case *tree.Tuple:
		xs, err := evalElts(n.Elts, sub)
		if err != nil {
			return nil, err
		}
		return value.Tuple(xs), nil
	case *tree.Set:
		xs, err := evalElts(n.Elts, sub)
		if err != nil {
			return nil, err
		}
		s, err := value.NewSet(xs...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotALiteral, err)
		}
		return s, nil
	case *tree.Dict:
		return evalDict(n, sub)
	case *tree.UnaryOp:
		if n.Op != value.USub && n.Op != value.UAdd {
			break
		}
		v, err := sub(n.Operand)
		if err != nil {
			return nil, err
		}
		out, err := value.Unary(n.Op, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotALiteral, err)
		}
		return out, nil
	}
	return nil, notLiteral(n)
}

func evalElts(elts []tree.Node, sub func(tree.Node) (value.Value, error)) ([]value.Value, error) {
	out := make([]value.Value, 0, len(elts))
	for _, x := range elts {
		if s, ok := x.(*tree.Starred); ok {
			v, err := sub(s.Value)
			if err != nil {
				return nil, err
			}
			items, err := value.Iterate(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotALiteral, err)
			}
			out = append(out, items...)
			continue
		}
		v, err := sub(x)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func evalDict(d *tree.Dict, sub func(tree.Node) (value.Value, error)) (value.Value, error) {
	var pairs []value.Pair
	for i, vn := range d.Values {
		var k tree.Node
		if i < len(d.Keys) {
			k = d.Keys[i]
		}
		v, err := sub(vn)
		if err != nil {
			return nil, err
		}
		if k == nil {
			spread, ok := v.(value.Dict)
			if !ok {
				return nil, fmt.Errorf("%w: ** of %s", ErrNotALiteral, v.TypeName())
			}
			pairs = append(pairs, spread...)
			continue
		}
		kv, err := sub(k)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, value.Pair{Key: kv, Value: v})
	}
	out, err := value.NewDict(pairs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotALiteral, err)
	}
	return out, nil
}
