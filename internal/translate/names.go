package translate

import (
	"strconv"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// Sanitize maps s onto the solver-safe alphabet [A-Za-z0-9_]. Any other
// byte becomes '_', a leading digit gets a '_' prefix and the empty
// string becomes "_".
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if b.Len() == 0 {
				b.WriteByte('_')
			}
		default:
			c = '_'
		}
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// InstanceName joins a base name and index values into a sanitised
// identifier, e.g. ("limit", [A, 3]) -> "limit_A_3".
func InstanceName(base string, idx ir.Tuple) string {
	var b strings.Builder
	b.WriteString(base)
	for _, v := range idx {
		b.WriteByte('_')
		b.WriteString(v.Text())
	}
	return Sanitize(b.String())
}

// Label renders the display name of an instance, e.g. "limit[A,3]".
func Label(base string, idx ir.Tuple) string {
	if len(idx) == 0 {
		return base
	}
	return base + idx.String()
}

// namer hands out unique names within one namespace.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

// unique returns name, or name_2, name_3... if it is taken.
func (n *namer) unique(name string) string {
	out := name
	for i := 2; n.used[out]; i++ {
		out = name + "_" + strconv.Itoa(i)
	}
	n.used[out] = true
	return out
}
