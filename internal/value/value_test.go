package value

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual_FollowsPythonNumericTower(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1.0)))
	assert.True(t, Equal(Bool(true), Int(1)))
	assert.False(t, Equal(Str("1"), Int(1)))
	assert.False(t, Equal(List{Int(1)}, Tuple{Int(1)}))
	assert.True(t, Equal(Set{Int(1), Int(2)}, Set{Int(2), Int(1)}))
	assert.True(t, Equal(
		Dict{{Key: Str("a"), Value: Int(1)}, {Key: Str("b"), Value: Int(2)}},
		Dict{{Key: Str("b"), Value: Int(2)}, {Key: Str("a"), Value: Int(1)}},
	))
	assert.False(t, Equal(Str("a"), Bytes("a")))
}

func TestBinary(t *testing.T) {
	tests := []struct {
		name string
		op   BinaryOp
		a, b Value
		want Value
	}{
		{"int add", Add, Int(2), Int(3), Int(5)},
		{"mixed add", Add, Int(2), Float(0.5), Float(2.5)},
		{"bool add", Add, Bool(true), Bool(true), Int(2)},
		{"str concat", Add, Str("ab"), Str("c"), Str("abc")},
		{"list concat", Add, List{Str("f")}, List{Str("k")}, List{Str("f"), Str("k")}},
		{"tuple concat", Add, Tuple{Int(1)}, Tuple{Int(2)}, Tuple{Int(1), Int(2)}},
		{"true div", Div, Int(7), Int(2), Float(3.5)},
		{"floor div negative", FloorDiv, Int(-7), Int(2), Int(-4)},
		{"mod negative", Mod, Int(-7), Int(3), Int(2)},
		{"float mod", Mod, Float(-1), Float(3), Float(2)},
		{"pow", Pow, Int(2), Int(10), Int(1024)},
		{"negative pow", Pow, Int(2), Int(-1), Float(0.5)},
		{"str repeat", Mult, Str("ab"), Int(2), Str("abab")},
		{"list repeat left", Mult, Int(2), List{Int(0)}, List{Int(0), Int(0)}},
		{"negative repeat", Mult, List{Int(1)}, Int(-3), List{}},
		{"shift", LShift, Int(1), Int(4), Int(16)},
		{"bool and", BitAnd, Bool(true), Bool(false), Bool(false)},
		{"set union", BitOr, Set{Int(1)}, Set{Int(2), Int(1)}, Set{Int(1), Int(2)}},
		{"set difference", Sub, Set{Int(1), Int(2)}, Set{Int(2)}, Set{Int(1)}},
		{"dict merge", BitOr, Dict{{Key: Str("a"), Value: Int(1)}}, Dict{{Key: Str("a"), Value: Int(2)}}, Dict{{Key: Str("a"), Value: Int(2)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Binary(tt.op, tt.a, tt.b)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", Repr(tt.want), Repr(got))
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}

func TestBinary_Errors(t *testing.T) {
	_, err := Binary(Div, Int(1), Int(0))
	assert.ErrorIs(t, err, ErrZeroDivision)

	_, err = Binary(Add, Str("a"), Int(1))
	assert.ErrorIs(t, err, ErrType)

	_, err = Binary(Add, List{}, Tuple{})
	assert.ErrorIs(t, err, ErrType)

	_, err = Binary(Mult, List{Int(1)}, Int(1<<40))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Binary(Pow, Int(2), Int(1<<20))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Binary(LShift, Int(1), Int(1<<20))
	assert.ErrorIs(t, err, ErrOverflow)
}

func bigInt(t *testing.T, s string) Value {
	t.Helper()
	i, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	v, err := NewInt(i)
	require.NoError(t, err)
	return v
}

func TestBigInt(t *testing.T) {
	huge := bigInt(t, "99999999999999999999999")
	assert.IsType(t, BigInt{}, huge)
	assert.Equal(t, IntKind, huge.Kind())
	assert.Equal(t, "99999999999999999999999", Repr(huge))
	assert.True(t, Truthy(huge))
	assert.IsType(t, Int(0), bigInt(t, "-9223372036854775808"), "values that fit stay Int")

	tests := []struct {
		name string
		op   BinaryOp
		a, b Value
		want string
	}{
		{"add past int64", Add, Int(math.MaxInt64), Int(1), "9223372036854775808"},
		{"sub past int64", Sub, Int(math.MinInt64), Int(1), "-9223372036854775809"},
		{"pow", Pow, Int(2), Int(70), "1180591620717411303424"},
		{"pow ten", Pow, Int(10), Int(40), "10000000000000000000000000000000000000000"},
		{"back to int", Sub, huge, bigInt(t, "99999999999999999999998"), "1"},
		{"floor div", FloorDiv, Int(math.MinInt64), Int(-1), "9223372036854775808"},
		{"floor div negative", FloorDiv, bigInt(t, "-100000000000000000000"), Int(3), "-33333333333333333334"},
		{"mod negative", Mod, bigInt(t, "-100000000000000000000"), Int(3), "2"},
		{"mask", BitAnd, bigInt(t, "18446744073709551615"), Int(255), "255"},
		{"shift", LShift, Int(1), Int(64), "18446744073709551616"},
		{"rshift", RShift, bigInt(t, "18446744073709551616"), Int(60), "16"},
		{"rshift negative", RShift, bigInt(t, "-18446744073709551616"), Int(200), "-1"},
		{"true div", Div, bigInt(t, "100000000000000000000"), Int(8), "1.25e+19"},
		{"float mix", Add, huge, Float(0.5), "1e+23"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Binary(tt.op, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Repr(got))
		})
	}

	neg, err := Unary(USub, Int(math.MinInt64))
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775808", Repr(neg))

	assert.True(t, Equal(bigInt(t, "18446744073709551616"), Float(18446744073709551616)))
	assert.False(t, Equal(bigInt(t, "18446744073709551617"), Float(18446744073709551616)))
	lt, err := Compare(Lt, Int(math.MaxInt64), huge)
	require.NoError(t, err)
	assert.True(t, lt)

	s, err := NewSet(huge, bigInt(t, "99999999999999999999999"), Float(1e23))
	require.NoError(t, err)
	assert.Len(t, s, 2, "1e23 as a float is not exactly 10**23 - 1")

	assert.Equal(t, "99999999999999999999999", ToGo(huge).(*big.Int).String())
}

func TestInPlace_ListExtendsWithAnyIterable(t *testing.T) {
	got, err := InPlace(Add, List{Str("f"), Str("k")}, Tuple{Str("i"), Str("j")})
	require.NoError(t, err)
	assert.Equal(t, List{Str("f"), Str("k"), Str("i"), Str("j")}, got)

	got, err = InPlace(Add, List{}, Str("ab"))
	require.NoError(t, err)
	assert.Equal(t, List{Str("a"), Str("b")}, got)

	// Tuples have no in-place protocol: += falls back to concatenation.
	_, err = InPlace(Add, Tuple{}, List{})
	assert.ErrorIs(t, err, ErrType)
}

func TestUnary(t *testing.T) {
	got, err := Unary(USub, Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(-3), got)

	got, err = Unary(Invert, Bool(true))
	require.NoError(t, err)
	assert.Equal(t, Int(-2), got)

	got, err = Unary(Not, List{})
	require.NoError(t, err)
	assert.Equal(t, Bool(true), got)

	_, err = Unary(USub, Str("x"))
	assert.ErrorIs(t, err, ErrType)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		op   CmpOp
		a, b Value
		want bool
	}{
		{Lt, Int(1), Float(1.5), true},
		{GtE, Str("b"), Str("a"), true},
		{Lt, Tuple{Int(1), Int(2)}, Tuple{Int(1), Int(3)}, true},
		{LtE, List{Int(1)}, List{Int(1), Int(0)}, true},
		{In, Str("ell"), Str("hello"), true},
		{NotIn, Int(3), List{Int(1), Int(2)}, true},
		{In, Str("k"), Dict{{Key: Str("k"), Value: None{}}}, true},
		{Is, None{}, None{}, true},
		{IsNot, None{}, Int(0), true},
		{Is, Bool(true), Int(1), false},
	}
	for _, tt := range tests {
		got, err := Compare(tt.op, tt.a, tt.b)
		require.NoError(t, err, "%s %s %s", Repr(tt.a), tt.op, Repr(tt.b))
		assert.Equal(t, tt.want, got, "%s %s %s", Repr(tt.a), tt.op, Repr(tt.b))
	}

	_, err := Compare(Lt, Int(1), Str("a"))
	assert.ErrorIs(t, err, ErrType)

	_, err = Compare(Is, List{}, List{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBoolOp(t *testing.T) {
	assert.Equal(t, Int(0), BoolOp(And, Int(0), Str("x")))
	assert.Equal(t, Str("x"), BoolOp(And, Int(1), Str("x")))
	assert.Equal(t, Int(1), BoolOp(Or, Int(1), Str("x")))
	assert.Equal(t, Str("x"), BoolOp(Or, None{}, Str("x")))
}

func TestNewSetAndDict(t *testing.T) {
	s, err := NewSet(Int(1), Float(1.0), Str("a"))
	require.NoError(t, err)
	assert.Len(t, s, 2)

	_, err = NewSet(List{})
	assert.ErrorIs(t, err, ErrType)

	d, err := NewDict(Pair{Str("a"), Int(1)}, Pair{Str("b"), Int(2)}, Pair{Str("a"), Int(3)})
	require.NoError(t, err)
	assert.Equal(t, Dict{{Str("a"), Int(3)}, {Str("b"), Int(2)}}, d)
}

func TestRepr(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{None{}, "None"},
		{Bool(false), "False"},
		{Int(-12), "-12"},
		{Float(1), "1.0"},
		{Float(0.1), "0.1"},
		{Float(1e16), "1e+16"},
		{Float(1.5e-5), "1.5e-05"},
		{Str("it's"), `"it's"`},
		{Str("a\nb"), `'a\nb'`},
		{Bytes("a\x00"), `b'a\x00'`},
		{List{Str("f"), Str("k")}, "['f', 'k']"},
		{Tuple{Int(1)}, "(1,)"},
		{Tuple{}, "()"},
		{Set{}, "set()"},
		{Dict{{Str("a"), List{}}}, "{'a': []}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Repr(tt.v))
	}
}

func TestToGo(t *testing.T) {
	got := ToGo(Dict{
		{Key: Str("names"), Value: Tuple{Str("i"), Str("j")}},
		{Key: Int(1), Value: None{}},
	})
	assert.Equal(t, map[string]any{
		"names": []any{"i", "j"},
		"1":     nil,
	}, got)
}

func TestIterate(t *testing.T) {
	elems, err := Iterate(Dict{{Str("a"), Int(1)}})
	require.NoError(t, err)
	assert.Equal(t, []Value{Str("a")}, elems)

	_, err = Iterate(Int(3))
	assert.ErrorIs(t, err, ErrType)
}
