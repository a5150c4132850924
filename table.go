package los

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jowpereira/LOS/internal/binding"
	"github.com/jowpereira/LOS/internal/ir"
)

// Table is a named tabular source: a header and rows of scalar cells.
type Table = binding.Table

// Sources maps logical source names to tables.
type Sources = binding.Sources

// NewTable builds a table from Go values. Cells may be ints, floats,
// strings or bools.
func NewTable(name string, columns []string, rows ...[]any) (*Table, error) {
	t := binding.NewTable(name, columns...)
	for i, row := range rows {
		cells := make([]ir.Value, len(row))
		for j, x := range row {
			v, err := ir.FromAny(x)
			if err != nil {
				return nil, fmt.Errorf("table %s: row %d column %d: %w", name, i+1, j+1, err)
			}
			cells[j] = v
		}
		if err := t.Append(cells...); err != nil {
			return nil, fmt.Errorf("table %s: row %d: %w", name, i+1, err)
		}
	}
	return t, nil
}

// LoadSources reads data files into sources using the loader registered
// for each file's extension. A file holding one table is named after the
// file stem; a multi-table file (SQLite, keyed YAML) contributes each
// table under its own name.
func LoadSources(ctx context.Context, paths ...string) (Sources, error) {
	loaders := binding.DefaultLoaders()
	out := make(Sources)
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		l, ok := loaders[ext]
		if !ok {
			return nil, fmt.Errorf("load %s: no loader for %q files", path, ext)
		}
		tables, err := l.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if len(tables) == 1 {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			tables[0].Name = stem
		}
		for _, t := range tables {
			if _, dup := out[t.Name]; dup {
				return nil, fmt.Errorf("load %s: source %q already loaded", path, t.Name)
			}
			out[t.Name] = t
		}
	}
	return out, nil
}
