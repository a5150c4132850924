package binding

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jowpereira/LOS/internal/ir"
)

// LoadSQLite opens a SQLite database read-only and returns one table per
// user table, named after it.
func LoadSQLite(ctx context.Context, path string) ([]*Table, error) {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	names, err := sqliteTables(ctx, db)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		t, err := sqliteTable(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func sqliteTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func sqliteTable(ctx context.Context, db *sql.DB, name string) (*Table, error) {
	quoted := `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := NewTable(name, cols...)
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]ir.Value, len(cols))
		for i, x := range raw {
			row[i] = sqliteValue(x)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

func sqliteValue(x any) ir.Value {
	switch v := x.(type) {
	case nil:
		return ir.String("")
	case int64:
		return ir.Int(v)
	case float64:
		return ir.Float(v)
	case bool:
		return ir.Bool(v)
	case []byte:
		return ir.String(string(v))
	case string:
		return ir.String(v)
	default:
		return ir.String(fmt.Sprint(v))
	}
}
