package runtime

import (
	"fmt"
	"iter"
	"math/big"

	"github.com/risor-io/risor/object"

	"github.com/jward/pyinfer"
)

// resultsToList converts inference results to a Risor list of result maps.
func resultsToList(results iter.Seq[pyinfer.Node]) object.Object {
	out := []object.Object{}
	for n := range results {
		out = append(out, resultToObject(pyinfer.Describe(n)))
	}
	return object.NewList(out)
}

func resultToObject(r pyinfer.Result) object.Object {
	m := map[string]object.Object{
		"kind":   object.NewString(r.Kind),
		"repr":   object.NewString(r.Repr),
		"origin": object.NewString(r.Origin),
		"line":   object.NewInt(int64(r.Line)),
		"col":    object.NewInt(int64(r.Col)),
	}
	if r.Kind == "literal" {
		m["literal"] = goToObject(r.Literal)
	}
	return object.NewMap(m)
}

// goToObject converts the plain Go values produced by value.ToGo and by
// decoding literal JSON to Risor objects.
func goToObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case bool:
		return object.NewBool(val)
	case int:
		return object.NewInt(int64(val))
	case int64:
		return object.NewInt(val)
	case *big.Int:
		// Risor ints are 64-bit; keep the digits exact.
		return object.NewString(val.String())
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case []any:
		items := make([]object.Object, len(val))
		for i, item := range val {
			items[i] = goToObject(item)
		}
		return object.NewList(items)
	case map[string]any:
		m := make(map[string]object.Object, len(val))
		for k, item := range val {
			m[k] = goToObject(item)
		}
		return object.NewMap(m)
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
