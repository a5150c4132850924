package binding

import "github.com/jowpereira/LOS/internal/ir"

// field is one named cell of a structured record.
type field struct {
	col string
	val ir.Value
}

// recordTable assembles records into a table. Columns appear in order
// of first use; missing cells are empty.
func recordTable(name string, records [][]field) *Table {
	t := NewTable(name)
	pos := make(map[string]int)
	for _, rec := range records {
		for _, f := range rec {
			if _, ok := pos[f.col]; !ok {
				pos[f.col] = len(t.Columns)
				t.Columns = append(t.Columns, f.col)
			}
		}
	}
	for _, rec := range records {
		row := make([]ir.Value, len(t.Columns))
		for i := range row {
			row[i] = ir.String("")
		}
		for _, f := range rec {
			row[pos[f.col]] = f.val
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// columnTable holds a plain list of scalars under one column.
func columnTable(name string, values []ir.Value) *Table {
	t := NewTable(name, name)
	for _, v := range values {
		t.Rows = append(t.Rows, []ir.Value{v})
	}
	return t
}
