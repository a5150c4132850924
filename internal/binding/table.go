package binding

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jowpereira/LOS/internal/ir"
)

// Table is a named grid of cells with named columns.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]ir.Value
}

// NewTable creates an empty table.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

// Append adds a row. Short rows are padded with empty strings.
func (t *Table) Append(cells ...ir.Value) error {
	if len(cells) > len(t.Columns) {
		return fmt.Errorf("table %s: row has %d cells, table has %d columns", t.Name, len(cells), len(t.Columns))
	}
	row := make([]ir.Value, len(t.Columns))
	copy(row, cells)
	for i := len(cells); i < len(row); i++ {
		row[i] = ir.String("")
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns the values of column i in row order.
func (t *Table) Column(i int) []ir.Value {
	out := make([]ir.Value, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r[i])
	}
	return out
}

// Sources maps logical source names to tables.
type Sources map[string]*Table

// Names returns the source names in sorted order.
func (s Sources) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// isEmpty reports whether a cell carries no data.
func isEmpty(v ir.Value) bool {
	return !v.IsValid() || (v.Kind() == ir.KindString && v.Text() == "")
}
