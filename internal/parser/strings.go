package parser

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jward/pyinfer/internal/value"
)

var (
	errFormatString = errors.New("f-string")
	errBadString    = errors.New("malformed string literal")
)

// decodeString evaluates the source text of a single Python string literal,
// prefix and quotes included. f-strings are reported as errFormatString.
func decodeString(lit string) (value.Value, error) {
	i := strings.IndexAny(lit, `'"`)
	if i < 0 {
		return nil, errBadString
	}
	prefix := strings.ToLower(lit[:i])
	body := lit[i:]
	if strings.ContainsRune(prefix, 'f') || strings.ContainsRune(prefix, 't') {
		return nil, errFormatString
	}
	raw := strings.ContainsRune(prefix, 'r')
	bytes := strings.ContainsRune(prefix, 'b')

	q := body[:1]
	if strings.HasPrefix(body, q+q+q) && len(body) >= 6 {
		q = q + q + q
	}
	if len(body) < 2*len(q) || !strings.HasSuffix(body, q) {
		return nil, errBadString
	}
	body = body[len(q) : len(body)-len(q)]

	if raw {
		if bytes {
			return value.Bytes(body), nil
		}
		return value.Str(body), nil
	}
	s, err := unescape(body, bytes)
	if err != nil {
		return nil, err
	}
	if bytes {
		return value.Bytes(s), nil
	}
	return value.Str(s), nil
}

// unescape processes backslash escapes. For bytes literals \x and octal
// escapes produce raw bytes and \u, \U and \N are left as written.
func unescape(s string, bytes bool) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCode(&b, rune(n), bytes)
			i = j - 1
		case 'x':
			if i+3 > len(s) {
				return "", errBadString
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 32)
			if err != nil {
				return "", errBadString
			}
			writeCode(&b, rune(n), bytes)
			i += 2
		case 'u', 'U':
			if bytes {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			width := 4
			if e == 'U' {
				width = 8
			}
			if i+1+width > len(s) {
				return "", errBadString
			}
			n, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(n)) {
				return "", errBadString
			}
			b.WriteRune(rune(n))
			i += width
		case 'N':
			if bytes {
				b.WriteString(`\N`)
				continue
			}
			// Named escapes need the Unicode name table.
			return "", errBadString
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String(), nil
}

func writeCode(b *strings.Builder, r rune, bytes bool) {
	if bytes {
		b.WriteByte(byte(r))
		return
	}
	b.WriteRune(r)
}
