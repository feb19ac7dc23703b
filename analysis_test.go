package pyinfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

// assigned returns the value of the last top-level assignment to ident.
func assigned(t *testing.T, m *Module, ident string) Node {
	t.Helper()
	var out Node
	for _, s := range m.Body {
		if a, ok := s.(*tree.Assign); ok {
			for _, target := range a.Targets {
				if name, ok := target.(*tree.Name); ok && name.Ident == ident {
					out = a.Value
				}
			}
		}
	}
	require.NotNil(t, out, "no assignment to %q", ident)
	return out
}

func TestInferName_MutationFolding(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "l = ['f']\nl.append('k')\nl.extend(['i', 'j'])\n")
	assert.Equal(t, []string{"['f', 'k', 'i', 'j']"}, reprs(p.InferName(m, "l")))
	assert.Equal(t, []string{"Uninferable"}, reprs(p.InferName(m, "missing")))
}

func TestInfer_AtUseSite(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "x = 1\ny = x\nx = 2\n")

	use := assigned(t, m, "y")
	assert.Equal(t, []string{"1"}, reprs(p.Infer(use)))
	assert.Len(t, p.InferAll(use), 1)
	assert.Equal(t, []string{"1"}, reprs(p.InferWith(use, p.NewContext())))
}

func TestDefaultsContext(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "def f(a=3):\n    b = a\n    return b\n")
	fn := m.Body[0].(*tree.FunctionDef)
	use := fn.Body[0].(*tree.Assign).Value

	assert.Equal(t, []string{"Uninferable"}, reprs(p.Infer(use)))
	assert.Equal(t, []string{"3"}, reprs(p.InferWith(use, p.DefaultsContext(fn))))
}

func TestLiteralEval(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "a = 1\nb = [a, 'two']\nc = f()\n")

	got, err := p.LiteralEval(assigned(t, m, "b"))
	require.NoError(t, err)
	assert.Equal(t, value.List{value.Int(1), value.Str("two")}, got)

	_, err = p.LiteralEval(assigned(t, m, "c"))
	assert.ErrorIs(t, err, ErrNotALiteral)

	_, err = Literal(assigned(t, m, "b"))
	assert.ErrorIs(t, err, ErrNotALiteral, "Literal does not infer names")
	lit, err := Literal(assigned(t, m, "a"))
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), lit)
}

func TestBindingsOfAndFilter(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "x = 1\nif c:\n    x = 2\nx = 3\nprint(x)\n")

	assert.Equal(t, []string{"x"}, p.Names(m))
	cands := p.BindingsOf(m, "x")
	require.Len(t, cands, 3)

	use, err := NodeAt(m, 5, 6)
	require.NoError(t, err)
	require.Equal(t, tree.KindName, use.Kind())

	kept := p.Filter(use, cands)
	require.Len(t, kept, 1)
	assert.Equal(t, 4, kept[0].Pos().Line)

	s, bindings := p.Lookup(use, "x")
	assert.Same(t, m, s)
	assert.Equal(t, kept, bindings)
}

func TestBindingsOf_UnregisteredTree(t *testing.T) {
	p := newTestProject(t)
	old := mustParse(t, p, "mod", "x = 1\n")
	mustParse(t, p, "mod", "y = 1\n")

	assert.Len(t, p.BindingsOf(old, "x"), 1)
	assert.Empty(t, p.BindingsOf(old, "y"))
}

func TestNodeAt(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "x = 1\ny = x\n")

	n, err := NodeAt(m, 2, 4)
	require.NoError(t, err)
	name, ok := n.(*tree.Name)
	require.True(t, ok)
	assert.Equal(t, "x", name.Ident)
	assert.Equal(t, tree.Load, name.Ctx)

	_, err = NodeAt(m, 10, 0)
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestResolve(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", `import os.path as osp
import json
from pkg import mod as m
class C:
    pass
def f(a):
    v = 1
    return v
x = 1
`)
	end := tree.EndOf(m)

	tests := []struct {
		dotted string
		want   string
	}{
		{"osp.join", "os.path.join"},
		{"json.dumps", "json.dumps"},
		{"m.func(1, 2)", "pkg.mod.func()"},
		{"C", "mod.C"},
		{"x", "mod.x"},
		{"unknown.y", "unknown.y"},
		{"unknown(3).y", "unknown().y"},
	}
	for _, tt := range tests {
		t.Run(tt.dotted, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Resolve(end, tt.dotted))
		})
	}

	ret := m.Body[4].(*tree.FunctionDef).Body[1].(*tree.Return)
	assert.Equal(t, "mod.f.v", p.Resolve(ret.Value, "v"))
	assert.Equal(t, "mod.f.a", p.Resolve(ret.Value, "a"))
}

func TestQualifiedName(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "pkg.mod", "class C:\n    def meth(self):\n        pass\n")
	cls := m.Body[0].(*tree.ClassDef)
	meth := cls.Body[0].(*tree.FunctionDef)

	assert.Equal(t, "pkg.mod", QualifiedName(m))
	assert.Equal(t, "pkg.mod.C", QualifiedName(cls))
	assert.Equal(t, "pkg.mod.C.meth", QualifiedName(meth))
}

func TestExports(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", `a = 1
def f():
    pass
class K:
    pass
gone = 1
del gone
ann: int
l = [1]
l.append(2)
if c:
    b = 'x'
else:
    b = None
`)

	exports := p.Exports(m)
	var names []string
	got := make(map[string][]Result)
	for _, e := range exports {
		names = append(names, e.Name)
		for _, v := range e.Values {
			got[e.Name] = append(got[e.Name], Describe(v))
		}
	}
	assert.Equal(t, []string{"a", "f", "K", "l", "b"}, names)

	assert.Equal(t, "literal", got["a"][0].Kind)
	assert.Equal(t, int64(1), got["a"][0].Literal)
	assert.Equal(t, "function", got["f"][0].Kind)
	assert.Equal(t, "mod.f", got["f"][0].Repr)
	assert.Equal(t, "class", got["K"][0].Kind)
	assert.Equal(t, "mod.K", got["K"][0].Repr)
	assert.Equal(t, "[1, 2]", got["l"][0].Repr)
	assert.Equal(t, []any{int64(1), int64(2)}, got["l"][0].Literal)
	require.Len(t, got["b"], 2)
	assert.Equal(t, "'x'", got["b"][0].Repr)
	assert.Equal(t, "None", got["b"][1].Repr)

	assert.Equal(t, 1, exports[0].Pos.Line)
	assert.Equal(t, 9, exports[3].Pos.Line)
}

func TestDescribe(t *testing.T) {
	p := newTestProject(t)
	m := mustParse(t, p, "mod", "g = lambda: 1\nc = f()\n")

	assert.Equal(t, Result{Kind: "uninferable", Repr: "Uninferable"}, Describe(Uninferable))

	mod := Describe(m)
	assert.Equal(t, "module", mod.Kind)
	assert.Equal(t, "mod", mod.Repr)

	lam := Describe(assigned(t, m, "g"))
	assert.Equal(t, "lambda", lam.Kind)
	assert.Equal(t, "mod", lam.Origin)
	assert.Equal(t, 1, lam.Line)

	call := Describe(assigned(t, m, "c"))
	assert.Equal(t, "value", call.Kind)
	assert.Equal(t, "f()", call.Repr)
}
