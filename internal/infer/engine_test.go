package infer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/pyinfer/internal/parser"
	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

func TestInfer_Shadowing(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "x = 1\nx = 2\nuse(x)\n")

	got := e.InferAll(nameAt(t, u.Module, "x", 3), nil)
	assert.Equal(t, []string{"2"}, render(got))
}

func TestInfer_BranchUnion(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "if c:\n    x = 1\nelse:\n    x = 2\nuse(x)\n")

	got := e.InferAll(nameAt(t, u.Module, "x", 5), nil)
	assert.Equal(t, []string{"1", "2"}, render(got))
}

func TestInfer_Determinism(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "if a:\n    x = [1]\nelif b:\n    x = (2, 'z')\nelse:\n    x = {3: None}\ny = x\n")

	first := render(inferAtEnd(t, e, u, "y"))
	second := render(inferAtEnd(t, e, u, "y"))
	assert.Equal(t, []string{"[1]", "(2, 'z')", "{3: None}"}, first)
	assert.Equal(t, first, second)
}

func TestInfer_MutationFolding(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "l = ['f', 'k']\nl.extend(['i', 'j'])\n")

	got := inferAtEnd(t, e, u, "l")
	require.Len(t, got, 1)

	v, err := e.LiteralEval(got[0], nil)
	require.NoError(t, err)
	assert.Equal(t, value.List{value.Str("f"), value.Str("k"), value.Str("i"), value.Str("j")}, v)
}

func TestInfer_AppendInProgramOrder(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "l = []\nl.append(1)\nl.append('two')\nprint(l)\n")

	got := e.InferAll(nameAt(t, u.Module, "l", 4), nil)
	assert.Equal(t, []string{"[1, 'two']"}, render(got))
}

func TestInfer_LongAppendChain(t *testing.T) {
	e, reg := newTestEngine(t)
	var src strings.Builder
	src.WriteString("__all__ = []\n")
	want := make(value.List, 0, 150)
	for i := range 150 {
		fmt.Fprintf(&src, "__all__.append('n%d')\n", i)
		want = append(want, value.Str(fmt.Sprintf("n%d", i)))
	}
	u := reg.add(t, "mod", src.String())

	// The second pass reads the cached results.
	for range 2 {
		got := inferAtEnd(t, e, u, "__all__")
		require.Len(t, got, 1)
		require.False(t, tree.IsUninferable(got[0]))
		v, err := e.LiteralEval(got[0], nil)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestInfer_ExtendInBranches(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "l = [1]\nif c:\n    l.extend([2])\nprint(l)\n")

	got := e.InferAll(nameAt(t, u.Module, "l", 4), nil)
	assert.Equal(t, []string{"[1]", "[1, 2]"}, render(got))
}

func TestInfer_UnsupportedMutation(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "l = [1, 2]\nx = l.pop()\n")

	got := inferAtEnd(t, e, u, "x")
	assert.Equal(t, []tree.Node{tree.Uninferable}, got)
}

func TestInfer_CrossUnit(t *testing.T) {
	e, reg := newTestEngine(t)
	reg.add(t, "B", "l = ('i', 'j')\n")
	a := reg.add(t, "A", "from B import l as _l\nprint(_l)\n")

	got := e.InferAll(nameAt(t, a.Module, "_l", 2), nil)
	assert.Equal(t, []string{"('i', 'j')"}, render(got))
	assert.Contains(t, reg.imported["A"], "B")
}

func TestInfer_UnknownModule(t *testing.T) {
	e, reg := newTestEngine(t)
	a := reg.add(t, "A", "import missing\nfrom other import thing\nx = missing\ny = thing\n")

	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, a, "x"))
	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, a, "y"))
	assert.Contains(t, reg.imported["A"], "missing")
	assert.Contains(t, reg.imported["A"], "other")
}

func TestInfer_ModuleAttributes(t *testing.T) {
	e, reg := newTestEngine(t)
	reg.add(t, "pkg", "VERSION = '1'\n", parser.WithPackage(true))
	reg.add(t, "pkg.sub", "X = 3\ndel_me = 1\ndel del_me\nbare: int\n")
	m := reg.add(t, "main", "import pkg\nimport pkg.sub\nimport pkg.sub as s\na = pkg.VERSION\nb = pkg.sub.X\nc = s.X\nd = s.del_me\ne = s.bare\nf = pkg\n")

	assert.Equal(t, []string{"'1'"}, render(inferAtEnd(t, e, m, "a")))
	assert.Equal(t, []string{"3"}, render(inferAtEnd(t, e, m, "b")))
	assert.Equal(t, []string{"3"}, render(inferAtEnd(t, e, m, "c")))
	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, m, "d"))
	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, m, "e"))

	f := inferAtEnd(t, e, m, "f")
	require.Len(t, f, 1)
	assert.Same(t, reg.units["pkg"].Module, f[0])
}

func TestInfer_RelativeImports(t *testing.T) {
	e, reg := newTestEngine(t)
	reg.add(t, "pkg", "from . import sub\nfrom .sub import X\n", parser.WithPackage(true))
	reg.add(t, "pkg.sub", "X = 3\n")
	mod := reg.add(t, "pkg.mod", "from .sub import X as Y\nfrom . import sub\nfrom .. import nothing\n")

	assert.Equal(t, []string{"3"}, render(inferAtEnd(t, e, mod, "Y")))

	sub := inferAtEnd(t, e, mod, "sub")
	require.Len(t, sub, 1)
	assert.Same(t, reg.units["pkg.sub"].Module, sub[0])

	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, mod, "nothing"))

	pkg := reg.units["pkg"]
	assert.Equal(t, []string{"3"}, render(inferAtEnd(t, e, pkg, "X")))
	sub = inferAtEnd(t, e, pkg, "sub")
	require.Len(t, sub, 1)
	assert.Same(t, reg.units["pkg.sub"].Module, sub[0])
}

func TestImportedModule(t *testing.T) {
	reg := newTestRegistry()
	pkg := reg.add(t, "a.b", "from . import x\nfrom .c import y\nfrom ..d import z\nimport e.f\nimport e.f as g\n", parser.WithPackage(true))
	mod := reg.add(t, "a.b.m", "from . import x\nfrom .c import y\nfrom ... import z\n")

	alias := func(m *tree.Module, i int) *tree.Alias {
		switch s := m.Body[i].(type) {
		case *tree.ImportFrom:
			return s.Names[0]
		case *tree.Import:
			return s.Names[0]
		}
		t.Fatalf("statement %d is not an import", i)
		return nil
	}

	tests := []struct {
		m    *tree.Module
		i    int
		want string
	}{
		{pkg.Module, 0, "a.b"},
		{pkg.Module, 1, "a.b.c"},
		{pkg.Module, 2, "a.d"},
		{pkg.Module, 3, "e"},
		{pkg.Module, 4, "e.f"},
		{mod.Module, 0, "a.b"},
		{mod.Module, 1, "a.b.c"},
	}
	for _, tt := range tests {
		got, err := ImportedModule(alias(tt.m, tt.i))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ImportedModule(alias(mod.Module, 2))
	assert.Error(t, err)
}

func TestInfer_Wildcard(t *testing.T) {
	e, reg := newTestEngine(t)
	reg.add(t, "m", "X = 5\n")
	u := reg.add(t, "main", "from m import *\ny = X\n")

	assert.Equal(t, []string{"5"}, render(inferAtEnd(t, e, u, "y")))
	assert.Equal(t, []string{"5"}, render(inferAtEnd(t, e, u, "X")))
}

func TestInfer_CycleSafety(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "a = b\nb = a\n")

	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, u, "a"))
	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, u, "b"))
}

func TestInfer_CrossUnitCycle(t *testing.T) {
	e, reg := newTestEngine(t)
	a := reg.add(t, "a", "from b import x as y\nx = y\n")
	reg.add(t, "b", "from a import x\n")

	got := inferAtEnd(t, e, a, "x")
	assert.Equal(t, []tree.Node{tree.Uninferable}, got)
	assert.Zero(t, a.Cache.Len()+reg.units["b"].Cache.Len(), "results cut by a cycle are not cached")
}

func TestInfer_Unpacking(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "a, (b, c) = 1, (2, [3])\nd, e = t\nfor i in [4, 'five']:\n    pass\nfor j in k:\n    pass\n")

	assert.Equal(t, []string{"1"}, render(inferAtEnd(t, e, u, "a")))
	assert.Equal(t, []string{"2"}, render(inferAtEnd(t, e, u, "b")))
	assert.Equal(t, []string{"[3]"}, render(inferAtEnd(t, e, u, "c")))
	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, u, "d"))
	assert.Equal(t, []string{"4", "'five'"}, render(inferAtEnd(t, e, u, "i")))
	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, u, "j"))
}

func TestInfer_Comprehension(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "ys = [x for x in (1, 2)]\n")

	comp := valueOf(t, u.Module, "ys").(*tree.ListComp)
	got := e.InferAll(comp.Elt, nil)
	assert.Equal(t, []string{"1", "2"}, render(got))
	assert.Equal(t, []tree.Node{tree.Uninferable}, e.InferAll(comp, nil))
}

func TestInfer_Definitions(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "print(f)\ndef f():\n    pass\nclass C:\n    pass\ng = lambda: 1\nh = f()\n")

	got := e.InferAll(nameAt(t, u.Module, "f", 1), nil)
	require.Len(t, got, 1)
	assert.IsType(t, &tree.FunctionDef{}, got[0])

	got = inferAtEnd(t, e, u, "C")
	require.Len(t, got, 1)
	assert.IsType(t, &tree.ClassDef{}, got[0])

	got = inferAtEnd(t, e, u, "g")
	require.Len(t, got, 1)
	assert.IsType(t, &tree.Lambda{}, got[0])

	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, u, "h"))
}

func TestInfer_Operators(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"r = 1 + 2", []string{"3"}},
		{"x = 2\nr = x ** 3 - 1", []string{"7"}},
		{"r = 'ab' * 2", []string{"'abab'"}},
		{"r = [1] + [2]", []string{"[1, 2]"}},
		{"r = 7 // 2", []string{"3"}},
		{"r = -7 % 3", []string{"2"}},
		{"r = 1 / 0", []string{"Uninferable"}},
		{"r = 1 + 'a'", []string{"Uninferable"}},
		{"r = -5", []string{"-5"}},
		{"r = not []", []string{"True"}},
		{"def f():\n    pass\nr = not f", []string{"False"}},
		{"r = 1 < 2 < 3", []string{"True"}},
		{"r = 1 < 2 > 3", []string{"False"}},
		{"r = 'a' in ['a', 'b']", []string{"True"}},
		{"r = None is None", []string{"True"}},
		{"r = 0 or 'x'", []string{"'x'"}},
		{"r = None and 1", []string{"None"}},
		{"r = 1 and 2 and 3", []string{"3"}},
		{"r = unknown or 1", []string{"Uninferable"}},
		{"r = 1 if True else 2", []string{"1"}},
		{"r = 1 if [] else 2", []string{"2"}},
		{"r = 1 if c else 2", []string{"1", "2"}},
		{"r = [10, 20][-1]", []string{"20"}},
		{"r = (10, 20)[True]", []string{"20"}},
		{"r = {'a': 1, 'b': 2}['b']", []string{"2"}},
		{"r = 'abc'[1]", []string{"'b'"}},
		{"r = [1, 2][5]", []string{"Uninferable"}},
		{"r = [1, 2][0:1]", []string{"Uninferable"}},
		{"if c:\n    x = 1\nelse:\n    x = 2\nr = x + 10", []string{"11", "12"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, reg := newTestEngine(t)
			u := reg.add(t, "mod", tt.src+"\n")
			assert.Equal(t, tt.want, render(inferAtEnd(t, e, u, "r")))
		})
	}
}

func TestInfer_DefaultsFrame(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "def f(a=1, b=[2], c=x):\n    return a, b\n")
	fn := u.Module.Body[0].(*tree.FunctionDef)
	ret := fn.Body[0].(*tree.Return).Value.(*tree.Tuple)

	assert.Equal(t, []tree.Node{tree.Uninferable}, e.InferAll(ret.Elts[0], nil))

	ctx := e.NewContext().WithFrame(DefaultsFrame(fn))
	assert.Equal(t, []string{"1"}, render(e.InferAll(ret.Elts[0], ctx)))
	assert.Equal(t, []string{"[2]"}, render(e.InferAll(ret.Elts[1], ctx)))

	v, err := e.LiteralEval(ret, ctx)
	require.NoError(t, err)
	assert.Equal(t, value.Tuple{value.Int(1), value.List{value.Int(2)}}, v)
	assert.Len(t, DefaultsFrame(fn), 3)
}

func TestInfer_MaxInferableValues(t *testing.T) {
	e, reg := newTestEngine(t, WithMaxInferableValues(2))
	u := reg.add(t, "mod", "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\nprint(x)\n")

	got := e.InferAll(nameAt(t, u.Module, "x", 7), nil)
	assert.Equal(t, []string{"1", "2", "Uninferable"}, render(got))
}

func TestInfer_StructuralDedupe(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "if a:\n    x = 1\nelse:\n    x = 1\nprint(x)\n")

	got := e.InferAll(nameAt(t, u.Module, "x", 5), nil)
	assert.Equal(t, []string{"1"}, render(got))
}

func TestInfer_StopEarly(t *testing.T) {
	e, reg := newTestEngine(t)
	u := reg.add(t, "mod", "if a:\n    x = 1\nelse:\n    x = 2\nprint(x)\n")
	use := nameAt(t, u.Module, "x", 5)

	for r := range e.Infer(use, nil) {
		assert.Equal(t, "1", tree.Unparse(r))
		break
	}
	_, cached := u.Cache.Get(use, "")
	assert.False(t, cached, "a partially consumed sequence is not cached")

	assert.Equal(t, []string{"1", "2"}, render(e.InferAll(use, nil)))
	_, cached = u.Cache.Get(use, "")
	assert.True(t, cached)
}

func TestInfer_CacheConsistency(t *testing.T) {
	e, reg := newTestEngine(t)
	old := reg.add(t, "mod", "x = 1\nprint(x)\n")
	oldUse := nameAt(t, old.Module, "x", 2)
	assert.Equal(t, []string{"1"}, render(e.InferAll(oldUse, nil)))
	assert.Positive(t, old.Cache.Len())

	fresh := reg.add(t, "mod", "x = 2\nprint(x)\n")
	assert.Zero(t, fresh.Cache.Len())
	assert.Equal(t, []string{"2"}, render(e.InferAll(nameAt(t, fresh.Module, "x", 2), nil)))

	// The replaced tree is still inferable, without touching any cache.
	before := old.Cache.Len()
	assert.Equal(t, []string{"1"}, render(e.InferAll(oldUse, nil)))
	assert.Equal(t, before, old.Cache.Len())
}

func TestInfer_ReportsUnsupported(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e, reg := newTestEngine(t, WithLogger(zap.New(core)))
	u := reg.add(t, "mod", "x = f()\n")

	assert.Equal(t, []tree.Node{tree.Uninferable}, inferAtEnd(t, e, u, "x"))

	calls := logs.FilterMessage("call").All()
	require.Len(t, calls, 1)
	assert.Equal(t, "mod", calls[0].ContextMap()["module"])
	assert.Equal(t, "1:4", calls[0].ContextMap()["pos"])
}
