package tree

import "github.com/jward/pyinfer/internal/value"

// FromValue synthesizes the literal node for v and links it under parent at
// pos. Scalars become Constants; containers become displays of Constants.
func FromValue(v value.Value, parent Node, pos Pos) Node {
	n := build(v, pos)
	return Attach(n, parent)
}

func build(v value.Value, pos Pos) Node {
	base := Base{pos: pos, end: pos}
	elems := func(vs []value.Value) []Node {
		out := make([]Node, len(vs))
		for i, e := range vs {
			out[i] = build(e, pos)
		}
		return out
	}
	switch v := v.(type) {
	case value.List:
		return &List{Base: base, Elts: elems(v)}
	case value.Tuple:
		return &Tuple{Base: base, Elts: elems(v)}
	case value.Set:
		return &Set{Base: base, Elts: elems(v)}
	case value.Dict:
		d := &Dict{Base: base, Keys: make([]Node, len(v)), Values: make([]Node, len(v))}
		for i, p := range v {
			d.Keys[i] = build(p.Key, pos)
			d.Values[i] = build(p.Value, pos)
		}
		return d
	}
	return &Constant{Base: base, Value: v}
}

// IsLiteral reports whether n is a Constant or a display made only of
// literals, without starred elements or dict spreads.
func IsLiteral(n Node) bool {
	switch n := n.(type) {
	case *Constant:
		return true
	case *List:
		return allLiteral(n.Elts)
	case *Tuple:
		return allLiteral(n.Elts)
	case *Set:
		return allLiteral(n.Elts)
	case *Dict:
		for _, k := range n.Keys {
			if k == nil || !IsLiteral(k) {
				return false
			}
		}
		return allLiteral(n.Values)
	}
	return false
}

func allLiteral(nodes []Node) bool {
	for _, n := range nodes {
		if !IsLiteral(n) {
			return false
		}
	}
	return true
}
