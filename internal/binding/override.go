package binding

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// SetMembers converts a set override into members. Accepted forms are
// slices of strings, ints, floats, ir.Value or any scalar, and a *Table
// whose first column is used.
func SetMembers(x any) ([]ir.Value, error) {
	switch v := x.(type) {
	case []ir.Value:
		return v, nil
	case []string:
		return convert(v, ir.String), nil
	case []int:
		return convert(v, func(i int) ir.Value { return ir.Int(int64(i)) }), nil
	case []int64:
		return convert(v, ir.Int), nil
	case []float64:
		return convert(v, ir.Float), nil
	case []any:
		out := make([]ir.Value, len(v))
		for i, e := range v {
			val, err := ir.FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("member %d: %w", i, err)
			}
			out[i] = val
		}
		return out, nil
	case *Table:
		if len(v.Columns) == 0 {
			return nil, fmt.Errorf("table %s has no columns", v.Name)
		}
		return v.Column(0), nil
	default:
		return nil, fmt.Errorf("unsupported set override of type %T", x)
	}
}

func convert[T any](in []T, f func(T) ir.Value) []ir.Value {
	out := make([]ir.Value, len(in))
	for i, e := range in {
		out[i] = f(e)
	}
	return out
}

// overrideParam converts a parameter override. Scalars bind arity-0
// parameters. Indexed parameters accept *ir.ParamData, a *Table searched
// like a data source, or maps keyed by member text, nested once per
// index dimension.
func (b *binder) overrideParam(p *ir.Parameter, sets []*ir.Set, x any) (*ir.ParamData, bool) {
	if t, ok := x.(*Table); ok {
		return b.tableParam(p, sets, Sources{t.Name: t}, []string{t.Name})
	}
	data := ir.NewParamData()
	if pd, ok := x.(*ir.ParamData); ok {
		for t, v := range pd.All() {
			if len(t) != len(sets) {
				b.errorf(ErrInvalidOverride, p.Name, t.String(), "index has %d value(s), want %d", len(t), len(sets))
				return nil, false
			}
			if !inDomain(t, sets) {
				b.errorf(ErrInvalidOverride, p.Name, t.String(), "index outside %v", p.Index)
				return nil, false
			}
			data.Put(t, v)
		}
		return data, true
	}
	if len(sets) == 0 {
		v, err := ir.FromAny(x)
		if err != nil {
			b.errorf(ErrInvalidOverride, p.Name, "", "%v", err)
			return nil, false
		}
		data.Put(ir.Tuple{}, v)
		return data, true
	}
	if err := fillFromMap(data, x, sets, nil); err != nil {
		b.errorf(ErrInvalidOverride, p.Name, "", "%v", err)
		return nil, false
	}
	return data, true
}

func inDomain(t ir.Tuple, sets []*ir.Set) bool {
	for i, s := range sets {
		if !s.Contains(t[i]) {
			return false
		}
	}
	return true
}

// fillFromMap walks one map level per index set. prefix holds the keys of
// the enclosing levels.
func fillFromMap(data *ir.ParamData, x any, sets []*ir.Set, prefix ir.Tuple) error {
	depth := len(prefix)
	if depth == len(sets) {
		v, err := ir.FromAny(x)
		if err != nil {
			return fmt.Errorf("value at %s: %w", prefix, err)
		}
		data.Put(prefix, v)
		return nil
	}
	entries, err := mapEntries(x)
	if err != nil {
		return fmt.Errorf("level %d: %w", depth+1, err)
	}
	for _, e := range entries {
		key, ok := member(sets[depth], e.key)
		if !ok {
			return fmt.Errorf("key %q is not a member of %s", e.key, sets[depth].Name)
		}
		if err := fillFromMap(data, e.value, sets, append(prefix.Clone(), key)); err != nil {
			return err
		}
	}
	return nil
}

type mapEntry struct {
	key   string
	value any
}

func mapEntries(x any) ([]mapEntry, error) {
	var out []mapEntry
	switch m := x.(type) {
	case map[string]any:
		for k, v := range m {
			out = append(out, mapEntry{k, v})
		}
	case map[string]float64:
		for k, v := range m {
			out = append(out, mapEntry{k, v})
		}
	case map[string]int:
		for k, v := range m {
			out = append(out, mapEntry{k, v})
		}
	case map[int]float64:
		for k, v := range m {
			out = append(out, mapEntry{strconv.Itoa(k), v})
		}
	case map[int]any:
		for k, v := range m {
			out = append(out, mapEntry{strconv.Itoa(k), v})
		}
	default:
		return nil, fmt.Errorf("unsupported parameter override of type %T", x)
	}
	slices.SortFunc(out, func(a, b mapEntry) int { return strings.Compare(a.key, b.key) })
	return out, nil
}

// member resolves map key text to a member of s, trying the parsed
// numeric form before the raw string.
func member(s *ir.Set, text string) (ir.Value, bool) {
	if v := ir.ParseCell(text); s.Contains(v) {
		return v.Normalize(), true
	}
	if v := ir.String(text); s.Contains(v) {
		return v, true
	}
	return ir.Value{}, false
}
