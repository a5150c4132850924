package binding

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// foldName normalises a column or source name for fuzzy comparison:
// surrounding whitespace removed, NFC composed, Unicode case folded.
func foldName(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// sameName reports whether a and b match under the fuzzy rule.
func sameName(a, b string) bool {
	return a == b || foldName(a) == foldName(b)
}

// findColumn locates the column of t named target, skipping used
// columns. An exact match wins; otherwise exactly one fuzzy match must
// exist. It returns -1 when nothing matches and an ambiguity error when
// several columns fold to the same name.
func findColumn(t *Table, target string, used map[int]bool) (int, error) {
	for i, c := range t.Columns {
		if c == target && !used[i] {
			return i, nil
		}
	}
	want := foldName(target)
	found := -1
	for i, c := range t.Columns {
		if used[i] || foldName(c) != want {
			continue
		}
		if found >= 0 {
			return -1, &ambiguousColumnError{table: t.Name, target: target, a: t.Columns[found], b: c}
		}
		found = i
	}
	return found, nil
}

type ambiguousColumnError struct {
	table, target, a, b string
}

func (e *ambiguousColumnError) Error() string {
	return fmt.Sprintf("source %s: columns %q and %q both match %q", e.table, e.a, e.b, e.target)
}
