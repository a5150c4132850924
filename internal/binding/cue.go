package binding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/jowpereira/LOS/internal/ir"
)

// LoadCUE reads a CUE file. Its top-level fields are read like the keys
// of a YAML mapping (see LoadYAML); a top-level list is a single table.
func LoadCUE(_ context.Context, path string) ([]*Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseCUE(stem, src, cue.Filename(path))
}

// ParseCUE evaluates CUE source into tables.
func ParseCUE(name string, src []byte, opts ...cue.BuildOption) ([]*Table, error) {
	v := cuecontext.New().CompileBytes(src, opts...)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	switch v.Kind() {
	case cue.ListKind:
		t, err := cueList(name, v)
		if err != nil {
			return nil, err
		}
		return []*Table{t}, nil
	case cue.StructKind:
	default:
		return nil, fmt.Errorf("%s: top level must be a struct or a list", name)
	}

	var tables []*Table
	var scalars []field
	it, err := v.Fields()
	if err != nil {
		return nil, err
	}
	for it.Next() {
		label, fv := it.Label(), it.Value()
		switch fv.Kind() {
		case cue.ListKind:
			t, err := cueList(label, fv)
			if err != nil {
				return nil, err
			}
			tables = append(tables, t)
		case cue.StructKind:
			return nil, fmt.Errorf("%s: field %q must hold a list or a scalar", name, label)
		default:
			val, err := cueScalar(fv)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, label, err)
			}
			scalars = append(scalars, field{label, val})
		}
	}
	if len(scalars) > 0 {
		tables = append(tables, recordTable(name, [][]field{scalars}))
	}
	return tables, nil
}

func cueList(name string, v cue.Value) (*Table, error) {
	it, err := v.List()
	if err != nil {
		return nil, err
	}
	var values []ir.Value
	var records [][]field
	for it.Next() {
		elem := it.Value()
		if elem.Kind() != cue.StructKind {
			if records != nil {
				return nil, fmt.Errorf("%s: mixed list", name)
			}
			val, err := cueScalar(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			values = append(values, val)
			continue
		}
		if values != nil {
			return nil, fmt.Errorf("%s: mixed list", name)
		}
		fields, err := elem.Fields()
		if err != nil {
			return nil, err
		}
		rec := []field{}
		for fields.Next() {
			val, err := cueScalar(fields.Value())
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, fields.Label(), err)
			}
			rec = append(rec, field{fields.Label(), val})
		}
		records = append(records, rec)
	}
	if records != nil {
		return recordTable(name, records), nil
	}
	return columnTable(name, values), nil
}

func cueScalar(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.IntKind:
		i, err := v.Int64()
		return ir.Int(i), err
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return ir.Float(f), err
	case cue.StringKind:
		s, err := v.String()
		return ir.String(s), err
	case cue.BoolKind:
		b, err := v.Bool()
		return ir.Bool(b), err
	case cue.NullKind:
		return ir.String(""), nil
	default:
		return ir.Value{}, fmt.Errorf("unsupported value of kind %s", v.Kind())
	}
}
