package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// escapeLike escapes the LIKE wildcards in s, using backslash as the escape
// character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// MarshalLiteral encodes a host value for the exports.literal column.
func MarshalLiteral(v any) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// UnmarshalLiteral decodes an exports.literal column. A NULL column yields
// nil.
func UnmarshalLiteral(s *string) (any, error) {
	if s == nil {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(*s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
