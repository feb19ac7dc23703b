package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer/internal/parser"
	"github.com/jward/pyinfer/internal/tree"
)

func newTestIndex(t *testing.T, src string) *Index {
	t.Helper()
	m, err := parser.Parse([]byte(src), "mod", parser.WithPath("mod.py"))
	require.NoError(t, err)
	return New(m)
}

// use returns the first Load name ident on line.
func use(t *testing.T, ix *Index, ident string, line int) *tree.Name {
	t.Helper()
	for n := range tree.Walk(ix.Module()) {
		if name, ok := n.(*tree.Name); ok && name.Ident == ident && name.Ctx == tree.Load && name.Pos().Line == line {
			return name
		}
	}
	t.Fatalf("no use of %q on line %d", ident, line)
	return nil
}

func lines(nodes []tree.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.Pos().Line
	}
	return out
}

func TestLookup_Shadowing(t *testing.T) {
	ix := newTestIndex(t, "x = 1\nx = 2\nprint(x)\n")

	s, got := ix.Lookup(use(t, ix, "x", 3), "x")
	assert.Same(t, ix.Module(), s)
	assert.Equal(t, []int{2}, lines(got))
	assert.Len(t, ix.BindingsOf(ix.Module(), "x"), 2)
}

func TestLookup_BranchUnion(t *testing.T) {
	ix := newTestIndex(t, "if c:\n    x = 1\nelse:\n    x = 2\nprint(x)\n")

	_, got := ix.Lookup(use(t, ix, "x", 5), "x")
	assert.Equal(t, []int{2, 4}, lines(got))
}

func TestLookup_ShadowInsideBranch(t *testing.T) {
	ix := newTestIndex(t, "x = 1\nif c:\n    x = 2\nprint(x)\n")

	_, got := ix.Lookup(use(t, ix, "x", 4), "x")
	assert.Equal(t, []int{1, 3}, lines(got))
}

func TestLookup_ExceptHandlerName(t *testing.T) {
	ix := newTestIndex(t, "try:\n    pass\nexcept ValueError as e:\n    print(e)\nexcept KeyError as e:\n    pass\n")

	_, got := ix.Lookup(use(t, ix, "e", 4), "e")
	require.Len(t, got, 1)
	assert.Equal(t, 3, tree.Statement(got[0]).Pos().Line)
}

func TestLookup_Del(t *testing.T) {
	ix := newTestIndex(t, "x = 1\ndel x\nprint(x)\n")

	s, got := ix.Lookup(use(t, ix, "x", 3), "x")
	assert.Nil(t, s)
	assert.Empty(t, got)
}

func TestLookup_ClassBaseResolvesBeforeClass(t *testing.T) {
	ix := newTestIndex(t, "class A:\n    pass\nclass A(A):\n    pass\n")

	_, got := ix.Lookup(use(t, ix, "A", 3), "A")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Pos().Line)
	assert.IsType(t, &tree.ClassDef{}, got[0])
}

func TestLookup_DefaultResolvesOutside(t *testing.T) {
	ix := newTestIndex(t, "x = 1\ndef f(a=x):\n    x = 2\n    return a\n")

	s, got := ix.Lookup(use(t, ix, "x", 2), "x")
	assert.Same(t, ix.Module(), s)
	assert.Equal(t, []int{1}, lines(got))
}

func TestLookup_ParameterInBody(t *testing.T) {
	ix := newTestIndex(t, "a = 1\ndef f(a):\n    return a\n")

	s, got := ix.Lookup(use(t, ix, "a", 3), "a")
	require.Len(t, got, 1)
	assert.IsType(t, &tree.FunctionDef{}, s)
	assert.IsType(t, &tree.Arg{}, got[0])
}

func TestLookup_ClassShadowsImport(t *testing.T) {
	ix := newTestIndex(t, "from os import path\nclass path:\n    pass\n")

	_, got := ix.Lookup(tree.EndOf(ix.Module()), "path")
	require.Len(t, got, 1)
	assert.IsType(t, &tree.ClassDef{}, got[0])
}

func TestLookup_LoopVariable(t *testing.T) {
	ix := newTestIndex(t, "x = 0\nfor x in y:\n    print(x)\nprint(x)\n")

	_, inside := ix.Lookup(use(t, ix, "x", 3), "x")
	assert.Equal(t, []int{2}, lines(inside))

	_, after := ix.Lookup(use(t, ix, "x", 4), "x")
	assert.Equal(t, []int{1, 2}, lines(after))
}

func TestLookup_HoistsLaterDefinitions(t *testing.T) {
	ix := newTestIndex(t, "print(f)\ndef f():\n    pass\n")

	_, got := ix.Lookup(use(t, ix, "f", 1), "f")
	require.Len(t, got, 1)
	assert.IsType(t, &tree.FunctionDef{}, got[0])
}

func TestLookup_DoesNotHoistAssignments(t *testing.T) {
	ix := newTestIndex(t, "print(x)\nx = 1\n")

	_, got := ix.Lookup(use(t, ix, "x", 1), "x")
	assert.Empty(t, got)
}

func TestLookup_OuterFunctionScope(t *testing.T) {
	ix := newTestIndex(t, "def g():\n    return h\ndef h():\n    pass\n")

	s, got := ix.Lookup(use(t, ix, "h", 2), "h")
	assert.Same(t, ix.Module(), s)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Pos().Line)
}

func TestLookup_ClassScopeSkipped(t *testing.T) {
	ix := newTestIndex(t, "class C:\n    x = 1\n    def m(self):\n        return x\n")

	s, got := ix.Lookup(use(t, ix, "x", 4), "x")
	assert.Nil(t, s)
	assert.Empty(t, got)
}

func TestLookup_Global(t *testing.T) {
	ix := newTestIndex(t, "def f():\n    global x\n    x = 1\nprint(x)\n")

	assert.Len(t, ix.BindingsOf(ix.Module(), "x"), 1)

	_, got := ix.Lookup(use(t, ix, "x", 4), "x")
	assert.Equal(t, []int{3}, lines(got))
}

func TestLookup_Nonlocal(t *testing.T) {
	ix := newTestIndex(t, "def outer():\n    x = 1\n    def inner():\n        nonlocal x\n        x = 2\n    return x\n")

	outer := ix.Module().Body[0]
	assert.Len(t, ix.BindingsOf(outer, "x"), 2)

	_, got := ix.Lookup(use(t, ix, "x", 6), "x")
	assert.Equal(t, []int{2, 5}, lines(got))
}

func TestLookup_Comprehension(t *testing.T) {
	ix := newTestIndex(t, "xs = [1]\nys = [x for x in xs]\n")

	comp := ix.Module().Body[1].(*tree.Assign).Value
	s, got := ix.Lookup(use(t, ix, "x", 2), "x")
	assert.Same(t, comp, s)
	require.Len(t, got, 1)
	assert.Equal(t, tree.Store, got[0].(*tree.Name).Ctx)

	s, got = ix.Lookup(use(t, ix, "xs", 2), "xs")
	assert.Same(t, ix.Module(), s)
	assert.Equal(t, []int{1}, lines(got))
}

func TestLookup_WalrusBindsOutsideComprehension(t *testing.T) {
	ix := newTestIndex(t, "ys = [(y := v) for v in vs]\nprint(y)\n")

	assert.Len(t, ix.BindingsOf(ix.Module(), "y"), 1)
	_, got := ix.Lookup(use(t, ix, "y", 2), "y")
	assert.Len(t, got, 1)
}

func TestIndex_NamesAndWildcards(t *testing.T) {
	ix := newTestIndex(t, "import os.path\nfrom m import *\nb = 1\ndef f(p):\n    from n import *\n    return p\nb = 2\n")

	assert.Equal(t, []string{"os", "b", "f"}, ix.Names(ix.Module()))
	assert.Len(t, ix.Wildcards(ix.Module()), 1)

	f := ix.Module().Body[3]
	assert.Equal(t, []string{"p"}, ix.Names(f))
	assert.Len(t, ix.Wildcards(f), 1)
	assert.Len(t, ix.VisibleWildcards(use(t, ix, "p", 6)), 2)
}

func TestEnclosingScope(t *testing.T) {
	ix := newTestIndex(t, "@dec\ndef f(a: T = d) -> R:\n    return a\nclass C(B, metaclass=M):\n    y = [z for z in w]\n")
	m := ix.Module()

	tests := []struct {
		ident  string
		line   int
		scope  tree.Node
		offset int
	}{
		{"dec", 1, m, 0},
		{"T", 2, m, -1},
		{"d", 2, m, -1},
		{"R", 2, m, -1},
		{"a", 3, m.Body[0], 0},
		{"B", 4, m, -1},
		{"M", 4, m, -1},
		{"w", 5, m.Body[1], 0},
	}
	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			s, off := EnclosingScope(use(t, ix, tt.ident, tt.line))
			assert.Same(t, tt.scope, s)
			assert.Equal(t, tt.offset, off)
		})
	}

	s, _ := EnclosingScope(use(t, ix, "z", 5))
	assert.Equal(t, tree.KindListComp, s.Kind())
}
