package value

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// BinaryOp is a Python binary (or augmented) arithmetic operator.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mult
	MatMult
	Div
	FloorDiv
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
)

var binarySymbols = [...]string{"+", "-", "*", "@", "/", "//", "%", "**", "<<", ">>", "|", "^", "&"}

func (op BinaryOp) String() string {
	if int(op) < len(binarySymbols) {
		return binarySymbols[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// BinaryOpFromSymbol maps "+", "//", ... (with or without a trailing "=")
// to the operator.
func BinaryOpFromSymbol(sym string) (BinaryOp, bool) {
	sym = strings.TrimSuffix(sym, "=")
	for i, s := range binarySymbols {
		if s == sym {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

// UnaryOp is a Python unary operator.
type UnaryOp int

const (
	Invert UnaryOp = iota
	Not
	UAdd
	USub
)

var unarySymbols = [...]string{"~", "not ", "+", "-"}

func (op UnaryOp) String() string {
	if int(op) < len(unarySymbols) {
		return unarySymbols[op]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// CmpOp is a Python comparison operator.
type CmpOp int

const (
	Eq CmpOp = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

var cmpSymbols = [...]string{"==", "!=", "<", "<=", ">", ">=", "is", "is not", "in", "not in"}

func (op CmpOp) String() string {
	if int(op) < len(cmpSymbols) {
		return cmpSymbols[op]
	}
	return fmt.Sprintf("CmpOp(%d)", int(op))
}

// CmpOpFromSymbol maps "==", "not in", ... to the operator.
func CmpOpFromSymbol(sym string) (CmpOp, bool) {
	for i, s := range cmpSymbols {
		if s == sym {
			return CmpOp(i), true
		}
	}
	return 0, false
}

// BoolOpKind is `and` or `or`.
type BoolOpKind int

const (
	And BoolOpKind = iota
	Or
)

func (op BoolOpKind) String() string {
	if op == And {
		return "and"
	}
	return "or"
}

// maxRepeat bounds the size of sequences built by repetition so that
// `[0] * 10**9` fails instead of allocating.
const maxRepeat = 1 << 16

// num is a numeric operand. Ints and bools carry i; floats carry f.
type num struct {
	isFloat bool
	isBool  bool
	i       *big.Int
	f       float64
}

func numeric(v Value) (num, bool) {
	switch v := v.(type) {
	case Bool:
		if v {
			return num{isBool: true, i: big.NewInt(1)}, true
		}
		return num{isBool: true, i: new(big.Int)}, true
	case Int:
		return num{i: big.NewInt(int64(v))}, true
	case BigInt:
		return num{i: v.n}, true
	case Float:
		return num{isFloat: true, f: float64(v)}, true
	}
	return num{}, false
}

// float converts n the way Python's float() does: ints too large for a
// float64 are an overflow.
func (n num) float() (float64, error) {
	if n.isFloat {
		return n.f, nil
	}
	f, _ := new(big.Float).SetInt(n.i).Float64()
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: int too large to convert to float", ErrOverflow)
	}
	return f, nil
}

func (n num) nan() bool { return n.isFloat && math.IsNaN(n.f) }

func numEqual(a, b num) bool {
	if a.nan() || b.nan() {
		return false
	}
	return numCompare(a, b) == 0
}

// numCompare orders a and b exactly, including ints beyond float precision.
// NaN compares equal to everything; callers check for it first.
func numCompare(a, b num) int {
	switch {
	case a.nan() || b.nan():
		return 0
	case !a.isFloat && !b.isFloat:
		return a.i.Cmp(b.i)
	}
	return a.bigFloat().Cmp(b.bigFloat())
}

func (n num) bigFloat() *big.Float {
	if n.isFloat {
		return big.NewFloat(n.f)
	}
	return new(big.Float).SetInt(n.i)
}

// count converts an int operand to a repetition count, clamping values
// beyond int64.
func (n num) count() int64 {
	switch {
	case n.i.IsInt64():
		return n.i.Int64()
	case n.i.Sign() < 0:
		return 0
	}
	return math.MaxInt64
}

func typeErr(op fmt.Stringer, a, b Value) error {
	return fmt.Errorf("%w for %s: %q and %q", ErrType, op, a.TypeName(), b.TypeName())
}

// Binary applies a binary operator following Python semantics.
func Binary(op BinaryOp, a, b Value) (Value, error) {
	x, xok := numeric(a)
	y, yok := numeric(b)
	if xok && yok {
		return numBinary(op, x, y)
	}
	switch op {
	case Add:
		return concat(a, b)
	case Mult:
		if yok && !y.isFloat {
			return repeat(a, y.count())
		}
		if xok && !x.isFloat {
			return repeat(b, x.count())
		}
	case Sub, BitOr, BitAnd, BitXor:
		if sa, ok := a.(Set); ok {
			if sb, ok := b.(Set); ok {
				return setOp(op, sa, sb), nil
			}
		}
		if op == BitOr {
			if da, ok := a.(Dict); ok {
				if db, ok := b.(Dict); ok {
					return mergeDict(da, db), nil
				}
			}
		}
	case Mod:
		if _, ok := a.(Str); ok {
			return nil, fmt.Errorf("%w: string formatting", ErrUnsupported)
		}
	case MatMult:
		return nil, fmt.Errorf("%w: matrix multiplication", ErrUnsupported)
	}
	return nil, typeErr(op, a, b)
}

// InPlace applies an augmented assignment operator. It differs from Binary
// where Python's in-place protocol differs, e.g. `list += iterable`.
func InPlace(op BinaryOp, a, b Value) (Value, error) {
	if l, ok := a.(List); ok && op == Add {
		elems, err := Iterate(b)
		if err != nil {
			return nil, err
		}
		out := make(List, 0, len(l)+len(elems))
		out = append(out, l...)
		return append(out, elems...), nil
	}
	if d, ok := a.(Dict); ok && op == BitOr {
		if db, ok := b.(Dict); ok {
			return mergeDict(d, db), nil
		}
	}
	return Binary(op, a, b)
}

func numBinary(op BinaryOp, x, y num) (Value, error) {
	switch op {
	case Div:
		return trueDiv(x, y)
	case BitOr, BitAnd, BitXor, LShift, RShift:
		if x.isFloat || y.isFloat {
			return nil, fmt.Errorf("%w for %s: float operand", ErrType, op)
		}
		return intBitwise(op, x, y)
	case MatMult:
		return nil, fmt.Errorf("%w: matrix multiplication", ErrUnsupported)
	}
	if x.isFloat || y.isFloat {
		a, err := x.float()
		if err != nil {
			return nil, err
		}
		b, err := y.float()
		if err != nil {
			return nil, err
		}
		return floatArith(op, a, b)
	}
	return intArith(op, x.i, y.i)
}

func trueDiv(x, y num) (Value, error) {
	if !x.isFloat && !y.isFloat {
		if y.i.Sign() == 0 {
			return nil, fmt.Errorf("%w: true division", ErrZeroDivision)
		}
		f, _ := new(big.Rat).SetFrac(x.i, y.i).Float64()
		if math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: integer division result too large for a float", ErrOverflow)
		}
		return Float(f), nil
	}
	a, err := x.float()
	if err != nil {
		return nil, err
	}
	b, err := y.float()
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("%w: true division", ErrZeroDivision)
	}
	return Float(a / b), nil
}

func floatArith(op BinaryOp, a, b float64) (Value, error) {
	switch op {
	case Add:
		return Float(a + b), nil
	case Sub:
		return Float(a - b), nil
	case Mult:
		return Float(a * b), nil
	case FloorDiv:
		if b == 0 {
			return nil, fmt.Errorf("%w: float floor division", ErrZeroDivision)
		}
		return Float(math.Floor(a / b)), nil
	case Mod:
		if b == 0 {
			return nil, fmt.Errorf("%w: float modulo", ErrZeroDivision)
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return Float(r), nil
	case Pow:
		if a == 0 && b < 0 {
			return nil, fmt.Errorf("%w: 0.0 to a negative power", ErrZeroDivision)
		}
		if a < 0 && b != math.Trunc(b) {
			return nil, fmt.Errorf("%w: complex result", ErrUnsupported)
		}
		r := math.Pow(a, b)
		if math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: float power", ErrOverflow)
		}
		return Float(r), nil
	}
	return nil, fmt.Errorf("%w: %s on floats", ErrUnsupported, op)
}

// intArith is exact; only results wider than maxIntBits overflow.
func intArith(op BinaryOp, a, b *big.Int) (Value, error) {
	r := new(big.Int)
	switch op {
	case Add:
		r.Add(a, b)
	case Sub:
		r.Sub(a, b)
	case Mult:
		if a.BitLen()+b.BitLen() > maxIntBits+1 {
			return nil, ErrOverflow
		}
		r.Mul(a, b)
	case FloorDiv, Mod:
		if b.Sign() == 0 {
			return nil, fmt.Errorf("%w: integer division or modulo", ErrZeroDivision)
		}
		q, m := new(big.Int).QuoRem(a, b, new(big.Int))
		if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
			m.Add(m, b)
		}
		if op == FloorDiv {
			r = q
		} else {
			r = m
		}
	case Pow:
		if b.Sign() < 0 {
			if a.Sign() == 0 {
				return nil, fmt.Errorf("%w: 0 to a negative power", ErrZeroDivision)
			}
			base, _ := new(big.Float).SetInt(a).Float64()
			exp, _ := new(big.Float).SetInt(b).Float64()
			return Float(math.Pow(base, exp)), nil
		}
		if a.CmpAbs(big.NewInt(1)) > 0 {
			if !b.IsInt64() || b.Int64() > maxIntBits || int64(a.BitLen()-1)*b.Int64() > maxIntBits {
				return nil, ErrOverflow
			}
		}
		r.Exp(a, b, nil)
	default:
		return nil, fmt.Errorf("%w: %s on integers", ErrUnsupported, op)
	}
	return NewInt(r)
}

func intBitwise(op BinaryOp, x, y num) (Value, error) {
	a, b := x.i, y.i
	bothBool := x.isBool && y.isBool
	r := new(big.Int)
	switch op {
	case BitOr:
		r.Or(a, b)
	case BitAnd:
		r.And(a, b)
	case BitXor:
		r.Xor(a, b)
	case LShift:
		if b.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative shift count", ErrType)
		}
		if a.Sign() == 0 {
			return Int(0), nil
		}
		if !b.IsInt64() || b.Int64()+int64(a.BitLen()) > maxIntBits {
			return nil, ErrOverflow
		}
		r.Lsh(a, uint(b.Int64()))
	case RShift:
		if b.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative shift count", ErrType)
		}
		if !b.IsInt64() || b.Int64() > int64(a.BitLen()) {
			if a.Sign() < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		r.Rsh(a, uint(b.Int64()))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, op)
	}
	if bothBool {
		return Bool(r.Sign() != 0), nil
	}
	return NewInt(r)
}

func concat(a, b Value) (Value, error) {
	switch a := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return a + y, nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return a + y, nil
		}
	case List:
		if y, ok := b.(List); ok {
			out := make(List, 0, len(a)+len(y))
			return append(append(out, a...), y...), nil
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			out := make(Tuple, 0, len(a)+len(y))
			return append(append(out, a...), y...), nil
		}
	}
	return nil, typeErr(Add, a, b)
}

func repeat(seq Value, n int64) (Value, error) {
	if n < 0 {
		n = 0
	}
	if l, ok := seqLen(seq); ok && l == 0 {
		n = 0
	}
	size := func(l int) error {
		if l > 0 && n > maxRepeat/int64(l) {
			return fmt.Errorf("%w: repetition of %d items %d times", ErrUnsupported, l, n)
		}
		return nil
	}
	switch s := seq.(type) {
	case Str:
		if err := size(len(s)); err != nil {
			return nil, err
		}
		return Str(strings.Repeat(string(s), int(n))), nil
	case Bytes:
		if err := size(len(s)); err != nil {
			return nil, err
		}
		return Bytes(strings.Repeat(string(s), int(n))), nil
	case List:
		if err := size(len(s)); err != nil {
			return nil, err
		}
		out := make(List, 0, len(s)*int(n))
		for range n {
			out = append(out, s...)
		}
		return out, nil
	case Tuple:
		if err := size(len(s)); err != nil {
			return nil, err
		}
		out := make(Tuple, 0, len(s)*int(n))
		for range n {
			out = append(out, s...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w for *: %q and int", ErrType, seq.TypeName())
}

func seqLen(v Value) (int, bool) {
	switch s := v.(type) {
	case Str:
		return len(s), true
	case Bytes:
		return len(s), true
	case List:
		return len(s), true
	case Tuple:
		return len(s), true
	}
	return 0, false
}

func setOp(op BinaryOp, a, b Set) Set {
	var out Set
	switch op {
	case Sub:
		for _, e := range a {
			if !contains(b, e) {
				out = append(out, e)
			}
		}
	case BitOr:
		out = append(out, a...)
		for _, e := range b {
			if !contains(out, e) {
				out = append(out, e)
			}
		}
	case BitAnd:
		for _, e := range a {
			if contains(b, e) {
				out = append(out, e)
			}
		}
	case BitXor:
		for _, e := range a {
			if !contains(b, e) {
				out = append(out, e)
			}
		}
		for _, e := range b {
			if !contains(a, e) {
				out = append(out, e)
			}
		}
	}
	if out == nil {
		out = Set{}
	}
	return out
}

func mergeDict(a, b Dict) Dict {
	out := make(Dict, 0, len(a)+len(b))
	out = append(out, a...)
	for _, p := range b {
		replaced := false
		for i := range out {
			if Equal(out[i].Key, p.Key) {
				out[i].Value = p.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

// Unary applies a unary operator.
func Unary(op UnaryOp, v Value) (Value, error) {
	if op == Not {
		return Bool(!Truthy(v)), nil
	}
	n, ok := numeric(v)
	if !ok {
		return nil, fmt.Errorf("%w for unary %s: %q", ErrType, op, v.TypeName())
	}
	switch op {
	case UAdd:
		if n.isFloat {
			return Float(n.f), nil
		}
		return NewInt(n.i)
	case USub:
		if n.isFloat {
			return Float(-n.f), nil
		}
		return NewInt(new(big.Int).Neg(n.i))
	case Invert:
		if n.isFloat {
			return nil, fmt.Errorf("%w for unary ~: float", ErrType)
		}
		return NewInt(new(big.Int).Not(n.i))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, op)
}

// Compare applies a single comparison operator.
func Compare(op CmpOp, a, b Value) (bool, error) {
	switch op {
	case Eq:
		return Equal(a, b), nil
	case NotEq:
		return !Equal(a, b), nil
	case In, NotIn:
		in, err := member(a, b)
		if err != nil {
			return false, err
		}
		return in == (op == In), nil
	case Is, IsNot:
		same, err := identical(a, b)
		if err != nil {
			return false, err
		}
		return same == (op == Is), nil
	}
	c, err := order(a, b)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	switch op {
	case Lt:
		return c < 0, nil
	case LtE:
		return c <= 0, nil
	case Gt:
		return c > 0, nil
	case GtE:
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: %s", ErrUnsupported, op)
}

// identical answers `is` only where identity is knowable from the value:
// the None, Ellipsis and bool singletons.
func identical(a, b Value) (bool, error) {
	singleton := func(v Value) bool {
		switch v.(type) {
		case None, Ellipsis, Bool:
			return true
		}
		return false
	}
	if singleton(a) || singleton(b) {
		if a.Kind() != b.Kind() {
			return false, nil
		}
		return Equal(a, b), nil
	}
	return false, fmt.Errorf("%w: identity of %q values", ErrUnsupported, a.TypeName())
}

func member(needle, haystack Value) (bool, error) {
	switch h := haystack.(type) {
	case Str:
		s, ok := needle.(Str)
		if !ok {
			return false, fmt.Errorf("%w: 'in <string>' requires string, not %q", ErrType, needle.TypeName())
		}
		return strings.Contains(string(h), string(s)), nil
	case Bytes:
		s, ok := needle.(Bytes)
		if !ok {
			return false, fmt.Errorf("%w: 'in <bytes>' requires bytes, not %q", ErrType, needle.TypeName())
		}
		return strings.Contains(string(h), string(s)), nil
	case List:
		return contains(h, needle), nil
	case Tuple:
		return contains(h, needle), nil
	case Set:
		return contains(h, needle), nil
	case Dict:
		_, ok := h.Lookup(needle)
		return ok, nil
	}
	return false, fmt.Errorf("%w: argument of type %q is not iterable", ErrType, haystack.TypeName())
}

func order(a, b Value) (int, error) {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return numCompare(x, y), nil
		}
	}
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case List:
		if y, ok := b.(List); ok {
			return seqOrder(x, y)
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return seqOrder(x, y)
		}
	}
	return 0, fmt.Errorf("%w: %q and %q are not ordered", ErrType, a.TypeName(), b.TypeName())
}

func seqOrder(a, b []Value) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		return order(a[i], b[i])
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	}
	return 0, nil
}

// BoolOp applies `and`/`or` with Python's value-returning semantics.
func BoolOp(op BoolOpKind, a, b Value) Value {
	if op == And {
		if !Truthy(a) {
			return a
		}
		return b
	}
	if Truthy(a) {
		return a
	}
	return b
}
