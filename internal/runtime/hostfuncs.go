package runtime

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/store"
	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

// makeModulesFn creates the "modules" host function.
//
// modules() → list of registered module names
func makeModulesFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("modules", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("modules", 0, len(args))
		}
		names := []object.Object{}
		for _, m := range p.Modules() {
			names = append(names, object.NewString(m.Name))
		}
		return object.NewList(names)
	})
}

// makeParseFn creates the "parse" host function.
//
// parse(path, modname) → modname
func makeParseFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse", 2, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse: path: %v", err)
		}
		modname, err := toString(args[1])
		if err != nil {
			return object.Errorf("parse: modname: %v", err)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse: %v", err)
		}
		return parseModule(p, src, modname, pyinfer.WithPath(path))
	})
}

// makeParseSrcFn creates the "parse_src" host function.
//
// parse_src(src, modname) → modname
func makeParseSrcFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_src: source: %v", err)
		}
		modname, err := toString(args[1])
		if err != nil {
			return object.Errorf("parse_src: modname: %v", err)
		}
		return parseModule(p, []byte(src), modname)
	})
}

// parseModule is the shared implementation for parse and parse_src.
func parseModule(p *pyinfer.Project, src []byte, modname string, opts ...pyinfer.ParseOption) object.Object {
	m, err := p.Parse(src, modname, opts...)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	return object.NewString(m.Name)
}

// makeInferFn creates the "infer" host function.
//
// infer(modname, line, col) → list of result maps with kind, repr, origin,
// line, col and, for literals, literal.
func makeInferFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("infer", func(ctx context.Context, args ...object.Object) object.Object {
		n, errObj := nodeArg(p, "infer", args)
		if errObj != nil {
			return errObj
		}
		return resultsToList(p.Infer(n))
	})
}

// makeLiteralFn creates the "literal" host function.
//
// literal(modname, line, col) → the value of the expression at line:col
func makeLiteralFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("literal", func(ctx context.Context, args ...object.Object) object.Object {
		n, errObj := nodeArg(p, "literal", args)
		if errObj != nil {
			return errObj
		}
		v, err := p.LiteralEval(n)
		if err != nil {
			return object.Errorf("literal: %v", err)
		}
		return goToObject(value.ToGo(v))
	})
}

// makeUnparseFn creates the "unparse" host function.
//
// unparse(modname, line, col) → source text of the node at line:col
func makeUnparseFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("unparse", func(ctx context.Context, args ...object.Object) object.Object {
		n, errObj := nodeArg(p, "unparse", args)
		if errObj != nil {
			return errObj
		}
		return object.NewString(tree.Unparse(n))
	})
}

// makeResolveFn creates the "resolve" host function.
//
// resolve(modname, line, col, dotted) → fully qualified dotted name
func makeResolveFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 4 {
			return object.NewArgsError("resolve", 4, len(args))
		}
		n, errObj := nodeArg(p, "resolve", args[:3])
		if errObj != nil {
			return errObj
		}
		dotted, err := toString(args[3])
		if err != nil {
			return object.Errorf("resolve: dotted: %v", err)
		}
		return object.NewString(p.Resolve(n, dotted))
	})
}

// makeBindingsFn creates the "bindings" host function.
//
// bindings(modname, name) → list of the module-level bindings of name, in
// source order, as maps with kind, line, col and text.
func makeBindingsFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("bindings", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("bindings", 2, len(args))
		}
		m, errObj := moduleArg(p, "bindings", args[0])
		if errObj != nil {
			return errObj
		}
		name, err := toString(args[1])
		if err != nil {
			return object.Errorf("bindings: name: %v", err)
		}
		results := []object.Object{}
		for _, b := range p.BindingsOf(m, name) {
			results = append(results, object.NewMap(map[string]object.Object{
				"kind": object.NewString(pyinfer.BindingKind(b)),
				"line": object.NewInt(int64(b.Pos().Line)),
				"col":  object.NewInt(int64(b.Pos().Col)),
				"text": object.NewString(tree.Unparse(tree.Statement(b))),
			}))
		}
		return object.NewList(results)
	})
}

// makeExportsFn creates the "exports" host function.
//
// exports(modname) → list of maps with name, line, col and values, where
// values is a list of result maps.
func makeExportsFn(p *pyinfer.Project) *object.Builtin {
	return object.NewBuiltin("exports", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("exports", 1, len(args))
		}
		m, errObj := moduleArg(p, "exports", args[0])
		if errObj != nil {
			return errObj
		}
		results := []object.Object{}
		for _, exp := range p.Exports(m) {
			results = append(results, object.NewMap(map[string]object.Object{
				"name":   object.NewString(exp.Name),
				"line":   object.NewInt(int64(exp.Pos.Line)),
				"col":    object.NewInt(int64(exp.Pos.Col)),
				"values": resultsToList(slices.Values(exp.Values)),
			}))
		}
		return object.NewList(results)
	})
}

// makeReportFn creates the "report" host function. Scripts use it to hand
// findings back to the caller.
//
// report(map)
func makeReportFn(add func(map[string]any)) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("report: expected map, got %s", args[0].Type())
		}
		rec := make(map[string]any, len(m.Value()))
		for k, v := range m.Value() {
			rec[k] = v.Interface()
		}
		add(rec)
		return object.Nil
	})
}

// --- Persistent index functions ---

// makeIndexedExportsFn creates "indexed_exports".
//
// indexed_exports(name) → export rows of name across all indexed modules
func makeIndexedExportsFn(q *pyinfer.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("indexed_exports", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("indexed_exports", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("indexed_exports: %v", err)
		}
		exps, err := q.ExportsByName(name)
		if err != nil {
			return object.Errorf("indexed_exports: %v", err)
		}
		results := []object.Object{}
		for _, e := range exps {
			m := map[string]object.Object{
				"module": object.NewString(e.Module),
				"name":   object.NewString(e.Name),
				"kind":   object.NewString(e.Kind),
				"repr":   object.NewString(e.Repr),
				"origin": object.NewString(e.Origin),
				"line":   object.NewInt(int64(e.Line)),
				"col":    object.NewInt(int64(e.Col)),
			}
			if e.Literal != nil {
				lit, err := store.UnmarshalLiteral(e.Literal)
				if err != nil {
					return object.Errorf("indexed_exports: %v", err)
				}
				m["literal"] = goToObject(lit)
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// makeIndexedBindingsFn creates "indexed_bindings".
//
// indexed_bindings(name) → binding rows of name in every scope
func makeIndexedBindingsFn(q *pyinfer.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("indexed_bindings", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("indexed_bindings", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("indexed_bindings: %v", err)
		}
		bindings, err := q.Bindings(name)
		if err != nil {
			return object.Errorf("indexed_bindings: %v", err)
		}
		results := []object.Object{}
		for _, b := range bindings {
			results = append(results, object.NewMap(map[string]object.Object{
				"file_id": object.NewInt(b.FileID),
				"name":    object.NewString(b.Name),
				"kind":    object.NewString(b.Kind),
				"scope":   object.NewString(b.Scope),
				"line":    object.NewInt(int64(b.Line)),
				"col":     object.NewInt(int64(b.Col)),
			}))
		}
		return object.NewList(results)
	})
}

// makeDependentsFn creates "dependents".
//
// dependents(module, transitive) → names of the indexed modules importing
// module
func makeDependentsFn(q *pyinfer.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("dependents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.NewArgsError("dependents", 1, len(args))
		}
		module, err := toString(args[0])
		if err != nil {
			return object.Errorf("dependents: %v", err)
		}
		transitive := false
		if len(args) == 2 {
			b, ok := args[1].(*object.Bool)
			if !ok {
				return object.Errorf("dependents: transitive must be a bool, got %s", args[1].Type())
			}
			transitive = b.Value()
		}
		files, err := q.Dependents(module, transitive)
		if err != nil {
			return object.Errorf("dependents: %v", err)
		}
		results := []object.Object{}
		for _, f := range files {
			results = append(results, object.NewString(f.Module))
		}
		return object.NewList(results)
	})
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	log *zap.Logger
}

func (l *logObject) Debug(msg string) {
	l.log.Debug(msg)
}

func (l *logObject) Info(msg string) {
	l.log.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.log.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.log.Error(msg)
}

// --- Argument helpers ---

func moduleArg(p *pyinfer.Project, fn string, arg object.Object) (*pyinfer.Module, *object.Error) {
	name, err := toString(arg)
	if err != nil {
		return nil, object.Errorf("%s: modname: %v", fn, err)
	}
	m, err := p.ResolveModule(name)
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	return m, nil
}

// nodeArg resolves (modname, line, col) arguments to the innermost node at
// that position.
func nodeArg(p *pyinfer.Project, fn string, args []object.Object) (pyinfer.Node, *object.Error) {
	if len(args) != 3 {
		return nil, object.NewArgsError(fn, 3, len(args))
	}
	m, errObj := moduleArg(p, fn, args[0])
	if errObj != nil {
		return nil, errObj
	}
	line, err := toInt64(args[1])
	if err != nil {
		return nil, object.Errorf("%s: line: %v", fn, err)
	}
	col, err := toInt64(args[2])
	if err != nil {
		return nil, object.Errorf("%s: col: %v", fn, err)
	}
	n, err := pyinfer.NodeAt(m, int(line), int(col))
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	return n, nil
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
