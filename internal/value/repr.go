package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Repr renders v the way Python's repr() would.
func Repr(v Value) string {
	var b strings.Builder
	writeRepr(&b, v)
	return b.String()
}

func writeRepr(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case None:
		b.WriteString("None")
	case Ellipsis:
		b.WriteString("Ellipsis")
	case Bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Int:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case BigInt:
		b.WriteString(v.n.String())
	case Float:
		b.WriteString(floatRepr(float64(v)))
	case Str:
		b.WriteString(strRepr(string(v)))
	case Bytes:
		b.WriteString(bytesRepr(string(v)))
	case List:
		writeSeq(b, "[", "]", v)
	case Tuple:
		if len(v) == 1 {
			b.WriteString("(")
			writeRepr(b, v[0])
			b.WriteString(",)")
			return
		}
		writeSeq(b, "(", ")", v)
	case Set:
		if len(v) == 0 {
			b.WriteString("set()")
			return
		}
		writeSeq(b, "{", "}", v)
	case Dict:
		b.WriteString("{")
		for i, p := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, p.Key)
			b.WriteString(": ")
			writeRepr(b, p.Value)
		}
		b.WriteString("}")
	default:
		fmt.Fprintf(b, "<%T>", v)
	}
}

func writeSeq(b *strings.Builder, open, close string, elems []Value) {
	b.WriteString(open)
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, e)
	}
	b.WriteString(close)
}

func floatRepr(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := int(math.Floor(math.Log10(math.Abs(f))))
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func pickQuote(s string) byte {
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		return '"'
	}
	return '\''
}

func strRepr(s string) string {
	q := pickQuote(s)
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x80 || unicode.IsPrint(r):
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func bytesRepr(s string) string {
	q := pickQuote(s)
	var b strings.Builder
	b.WriteString("b")
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == q || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// ToGo converts v to plain Go values suitable for encoding/json and for
// scripting bridges: nil, bool, int64, *big.Int, float64, string, []any
// and map[string]any. Non-string dict keys are rendered with Repr.
func ToGo(v Value) any {
	switch v := v.(type) {
	case None:
		return nil
	case Ellipsis:
		return "..."
	case Bool:
		return bool(v)
	case Int:
		return int64(v)
	case BigInt:
		return v.Big()
	case Float:
		return float64(v)
	case Str:
		return string(v)
	case Bytes:
		return string(v)
	case List:
		return sliceToGo(v)
	case Tuple:
		return sliceToGo(v)
	case Set:
		return sliceToGo(v)
	case Dict:
		m := make(map[string]any, len(v))
		for _, p := range v {
			key, ok := p.Key.(Str)
			if !ok {
				m[Repr(p.Key)] = ToGo(p.Value)
				continue
			}
			m[string(key)] = ToGo(p.Value)
		}
		return m
	}
	return nil
}

func sliceToGo(elems []Value) []any {
	out := make([]any, len(elems))
	for i, e := range elems {
		out[i] = ToGo(e)
	}
	return out
}
