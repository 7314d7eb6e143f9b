package token

import "strings"

const keySeparator = ":"

var keyEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator)

// Key is the canonical storage key of an identity. Keys are case-sensitive.
type Key string

// NewKey joins the identity fields in order. Separators and escape characters
// inside a field are escaped, so distinct field lists never produce the same key:
// NewKey("a:b") != NewKey("a", "b").
func NewKey(fields ...string) Key {
	escaped := make([]string, len(fields))
	for i, field := range fields {
		escaped[i] = keyEscaper.Replace(field)
	}
	return Key(strings.Join(escaped, keySeparator))
}

func (k Key) String() string {
	return string(k)
}

func (k Key) IsZero() bool {
	return k == ""
}
