// Package value implements the host-level literal domain produced by the
// literal evaluator: Python scalars and containers with Python operator
// semantics.
package value

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Sentinel errors returned (wrapped) by operations on values.
var (
	ErrUnsupported  = errors.New("unsupported operation")
	ErrType         = errors.New("unsupported operand type")
	ErrOverflow     = errors.New("integer overflow")
	ErrZeroDivision = errors.New("division by zero")
)

// Kind discriminates the concrete value types.
type Kind int

const (
	NoneKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	StrKind
	BytesKind
	EllipsisKind
	ListKind
	TupleKind
	SetKind
	DictKind
)

// Value is a host-level Python literal.
type Value interface {
	Kind() Kind
	// TypeName returns the Python type name (int, str, list, ...).
	TypeName() string
}

type (
	None     struct{}
	Bool     bool
	Int      int64
	Float    float64
	Str      string
	Bytes    string
	Ellipsis struct{}
	// BigInt is an int outside the int64 range. Build it with NewInt so
	// that values which fit stay Int.
	BigInt struct{ n *big.Int }
	List   []Value
	Tuple  []Value
	// Set keeps insertion order; elements are unique under Equal.
	Set []Value
	// Dict keeps insertion order; keys are unique under Equal.
	Dict []Pair
)

// Pair is a single dict entry.
type Pair struct {
	Key   Value
	Value Value
}

func (None) Kind() Kind     { return NoneKind }
func (Bool) Kind() Kind     { return BoolKind }
func (Int) Kind() Kind      { return IntKind }
func (BigInt) Kind() Kind   { return IntKind }
func (Float) Kind() Kind    { return FloatKind }
func (Str) Kind() Kind      { return StrKind }
func (Bytes) Kind() Kind    { return BytesKind }
func (Ellipsis) Kind() Kind { return EllipsisKind }
func (List) Kind() Kind     { return ListKind }
func (Tuple) Kind() Kind    { return TupleKind }
func (Set) Kind() Kind      { return SetKind }
func (Dict) Kind() Kind     { return DictKind }

func (None) TypeName() string     { return "NoneType" }
func (Bool) TypeName() string     { return "bool" }
func (Int) TypeName() string      { return "int" }
func (BigInt) TypeName() string   { return "int" }
func (Float) TypeName() string    { return "float" }
func (Str) TypeName() string      { return "str" }
func (Bytes) TypeName() string    { return "bytes" }
func (Ellipsis) TypeName() string { return "ellipsis" }
func (List) TypeName() string     { return "list" }
func (Tuple) TypeName() string    { return "tuple" }
func (Set) TypeName() string      { return "set" }
func (Dict) TypeName() string     { return "dict" }

// maxIntBits bounds the size of integer results so that `2 ** 10 ** 9`
// fails with ErrOverflow instead of allocating.
const maxIntBits = 1 << 16

// NewInt returns i as an Int when it fits in int64 and as a BigInt
// otherwise. i is not retained.
func NewInt(i *big.Int) (Value, error) {
	if i.IsInt64() {
		return Int(i.Int64()), nil
	}
	if i.BitLen() > maxIntBits {
		return nil, ErrOverflow
	}
	return BigInt{n: new(big.Int).Set(i)}, nil
}

// Big returns a copy of the integer.
func (v BigInt) Big() *big.Int { return new(big.Int).Set(v.n) }

func (v BigInt) String() string { return v.n.String() }

// NewSet builds a set from elems, dropping duplicates. Unhashable elements
// are rejected the way Python rejects them.
func NewSet(elems ...Value) (Set, error) {
	out := make(Set, 0, len(elems))
	seen := make(map[string]bool, len(elems))
	for _, e := range elems {
		k, err := hashKey(e)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out, nil
}

// NewDict builds a dict from pairs. A repeated key keeps its first position
// and takes the last value.
func NewDict(pairs ...Pair) (Dict, error) {
	out := make(Dict, 0, len(pairs))
	index := make(map[string]int, len(pairs))
	for _, p := range pairs {
		k, err := hashKey(p.Key)
		if err != nil {
			return nil, err
		}
		if i, ok := index[k]; ok {
			out[i].Value = p.Value
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out, nil
}

// Lookup returns the value stored under key.
func (d Dict) Lookup(key Value) (Value, bool) {
	for _, p := range d {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// hashKey returns a canonical string such that Equal values share a key.
func hashKey(v Value) (string, error) {
	switch v := v.(type) {
	case None:
		return "N", nil
	case Ellipsis:
		return "E", nil
	case Bool:
		if v {
			return "n:1", nil
		}
		return "n:0", nil
	case Int:
		return "n:" + strconv.FormatInt(int64(v), 10), nil
	case BigInt:
		return "n:" + v.n.String(), nil
	case Float:
		f := float64(v)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			i, _ := big.NewFloat(f).Int(nil)
			return "n:" + i.String(), nil
		}
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64), nil
	case Str:
		return "s:" + string(v), nil
	case Bytes:
		return "b:" + string(v), nil
	case Tuple:
		parts := make([]string, len(v))
		for i, e := range v {
			k, err := hashKey(e)
			if err != nil {
				return "", err
			}
			parts[i] = strconv.Quote(k)
		}
		return "t(" + strings.Join(parts, ",") + ")", nil
	default:
		return "", fmt.Errorf("%w: unhashable type %q", ErrType, v.TypeName())
	}
}

// Hashable reports whether v may be used as a set element or dict key.
func Hashable(v Value) bool {
	_, err := hashKey(v)
	return err == nil
}

// Equal implements Python ==.
func Equal(a, b Value) bool {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return numEqual(x, y)
		}
		return false
	}
	switch a := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Ellipsis:
		_, ok := b.(Ellipsis)
		return ok
	case Str:
		y, ok := b.(Str)
		return ok && a == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && a == y
	case List:
		y, ok := b.(List)
		return ok && seqEqual(a, y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && seqEqual(a, y)
	case Set:
		y, ok := b.(Set)
		if !ok || len(a) != len(y) {
			return false
		}
		for _, e := range a {
			if !contains(y, e) {
				return false
			}
		}
		return true
	case Dict:
		y, ok := b.(Dict)
		if !ok || len(a) != len(y) {
			return false
		}
		for _, p := range a {
			v, ok := y.Lookup(p.Key)
			if !ok || !Equal(p.Value, v) {
				return false
			}
		}
		return true
	}
	return false
}

func seqEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func contains(elems []Value, v Value) bool {
	for _, e := range elems {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Truthy implements Python truth testing.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case None:
		return false
	case Bool:
		return bool(v)
	case Int:
		return v != 0
	case BigInt:
		return v.n.Sign() != 0
	case Float:
		return v != 0
	case Str:
		return len(v) > 0
	case Bytes:
		return len(v) > 0
	case List:
		return len(v) > 0
	case Tuple:
		return len(v) > 0
	case Set:
		return len(v) > 0
	case Dict:
		return len(v) > 0
	}
	return true
}

// Iterate returns the elements produced by iterating v in Python, or an
// error if v is not iterable.
func Iterate(v Value) ([]Value, error) {
	switch v := v.(type) {
	case List:
		return []Value(v), nil
	case Tuple:
		return []Value(v), nil
	case Set:
		return []Value(v), nil
	case Dict:
		keys := make([]Value, len(v))
		for i, p := range v {
			keys[i] = p.Key
		}
		return keys, nil
	case Str:
		out := make([]Value, 0, len(v))
		for _, r := range string(v) {
			out = append(out, Str(string(r)))
		}
		return out, nil
	case Bytes:
		out := make([]Value, len(v))
		for i := 0; i < len(v); i++ {
			out[i] = Int(v[i])
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q object is not iterable", ErrType, v.TypeName())
}
