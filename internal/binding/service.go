package binding

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jowpereira/LOS/internal/eval"
	"github.com/jowpereira/LOS/internal/ir"
)

// Service binds models to data. The zero value is usable: it logs to
// slog.Default, resolves imports against the working directory and uses
// the default loaders.
type Service struct {
	Logger  *slog.Logger
	BaseDir string
	Loaders map[string]Loader
}

// NewService creates a Service that resolves imports under baseDir.
func NewService(logger *slog.Logger, baseDir string) *Service {
	return &Service{Logger: logger, BaseDir: baseDir}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Bind resolves every set and parameter of m and returns a new model at
// StageBound. sources may be nil. overrides maps set/parameter names to
// explicit values (see SetMembers and the parameter override forms in
// override.go); an override is used verbatim and suppresses any source
// search for that name.
func (s *Service) Bind(ctx context.Context, m *ir.Model, sources Sources, overrides map[string]any) (*ir.Model, error) {
	if m.Stage != ir.StageBuilt {
		return nil, fmt.Errorf("bind: model is %s, want %s", m.Stage, ir.StageBuilt)
	}
	b := &binder{
		svc:       s,
		log:       s.logger(),
		model:     m.WithStage(ir.StageBound),
		sources:   make(Sources, len(sources)),
		overrides: overrides,
	}
	for name, t := range sources {
		b.sources[name] = t
	}
	for name := range overrides {
		if m.Set(name) == nil && m.Param(name) == nil {
			b.errorf(ErrInvalidOverride, name, "", "override matches no set or parameter")
		}
	}
	if err := b.loadImports(ctx, m.Imports); err != nil {
		return nil, err
	}

	for _, node := range m.Order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, name, _ := strings.Cut(node, ":")
		switch kind {
		case "set":
			b.bindSet(name)
		case "param":
			b.bindParam(name)
		}
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	b.log.Debug("model bound", "sets", len(m.Sets), "params", len(m.Params), "sources", len(b.sources))
	return b.model, nil
}

type binder struct {
	svc       *Service
	log       *slog.Logger
	model     *ir.Model
	sources   Sources
	overrides map[string]any
	errs      BindErrors
}

func (b *binder) errorf(code, target, index, format string, args ...any) {
	b.errs = append(b.errs, &DataBindingError{
		Code:    code,
		Target:  target,
		Index:   index,
		Message: fmt.Sprintf(format, args...),
	})
}

// candidates orders source names for a target: sources named like the
// target first, then the rest alphabetically.
func (b *binder) candidates(target string) []string {
	names := b.sources.Names()
	slices.SortStableFunc(names, func(x, y string) int {
		sx, sy := sameName(x, target), sameName(y, target)
		switch {
		case sx && !sy:
			return -1
		case sy && !sx:
			return 1
		}
		return 0
	})
	return names
}

func (b *binder) bindSet(name string) {
	set := b.model.Set(name)
	if set == nil || set.Bound {
		return
	}
	if ov, ok := b.overrides[name]; ok {
		members, err := SetMembers(ov)
		if err != nil {
			b.errorf(ErrInvalidOverride, name, "", "%v", err)
			return
		}
		b.model.ReplaceSet(set.WithMembers(members))
		b.log.Debug("bound set from override", "set", name, "members", len(members))
		return
	}

	var members []ir.Value
	switch set.Source {
	case ir.SetLiteral:
		members = set.Literal
	case ir.SetRange:
		members = set.Range.Members()
	case ir.SetFiltered:
		var ok bool
		if members, ok = b.filterSet(set); !ok {
			return
		}
	case ir.SetImported:
		var ok bool
		if members, ok = b.importSet(set); !ok {
			return
		}
	}
	b.model.ReplaceSet(set.WithMembers(members))
}

func (b *binder) filterSet(set *ir.Set) ([]ir.Value, bool) {
	of := b.model.Set(set.Filter.Of)
	if of == nil || !of.Bound {
		// The source set's own failure has been reported.
		return nil, false
	}
	ev := &eval.Evaluator{Model: b.model}
	env := &eval.Env{}
	var members []ir.Value
	for _, m := range of.Members() {
		env.Push(set.Filter.Var, m)
		keep, err := ev.Truth(set.Filter.Cond, env)
		env.Pop(1)
		if err != nil {
			b.errorf(ErrFilter, set.Name, "", "evaluating filter for %s: %v", m.Text(), err)
			return nil, false
		}
		if keep {
			members = append(members, m)
		}
	}
	return members, true
}

func (b *binder) importSet(set *ir.Set) ([]ir.Value, bool) {
	for _, src := range b.candidates(set.Name) {
		t := b.sources[src]
		col, err := findColumn(t, set.Name, nil)
		if err != nil {
			b.errorf(ErrAmbiguous, set.Name, "", "%v", err)
			return nil, false
		}
		if col < 0 && sameName(src, set.Name) && len(t.Columns) > 0 {
			col = 0
		}
		if col < 0 {
			continue
		}
		var members []ir.Value
		for _, v := range t.Column(col) {
			if !isEmpty(v) {
				members = append(members, v)
			}
		}
		b.log.Debug("bound set from source", "set", set.Name, "source", src, "column", t.Columns[col], "members", len(members))
		return members, true
	}
	b.errorf(ErrNoSource, set.Name, "", "no source provides a column named %q (sources: %s)", set.Name, b.sourceList())
	return nil, false
}

func (b *binder) sourceList() string {
	names := b.sources.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// indexSets returns the bound index sets of p, or false when one of them
// failed to bind (that failure is already reported).
func (b *binder) indexSets(p *ir.Parameter) ([]*ir.Set, bool) {
	sets := make([]*ir.Set, len(p.Index))
	for i, name := range p.Index {
		s := b.model.Set(name)
		if s == nil || !s.Bound {
			return nil, false
		}
		sets[i] = s
	}
	return sets, true
}

func (b *binder) bindParam(name string) {
	p := b.model.Param(name)
	if p == nil || p.Bound {
		return
	}
	sets, ok := b.indexSets(p)
	if !ok {
		return
	}

	var data *ir.ParamData
	if ov, has := b.overrides[name]; has {
		data, ok = b.overrideParam(p, sets, ov)
		if ok {
			b.log.Debug("bound param from override", "param", name, "values", data.Len())
		}
	} else if len(sets) == 0 {
		data, ok = b.scalarParam(p)
	} else {
		data, ok = b.tableParam(p, sets, b.sources, b.candidates(p.Name))
	}
	if !ok || !b.complete(p, sets, data) {
		return
	}

	bound := *p
	bound.Data = data
	bound.Bound = true
	b.model.ReplaceParam(&bound)
}

// complete checks that every index tuple has a value or a default.
func (b *binder) complete(p *ir.Parameter, sets []*ir.Set, data *ir.ParamData) bool {
	if p.Default != nil {
		return true
	}
	missing := 0
	var first string
	for t := range eval.Product(sets) {
		if _, ok := data.Get(t); !ok {
			if missing == 0 {
				first = t.String()
			}
			missing++
		}
	}
	if missing == 0 {
		return true
	}
	b.errorf(ErrMissingIndex, p.Name, first, "no value and no default (%d index tuple(s) missing)", missing)
	return false
}

func (b *binder) scalarParam(p *ir.Parameter) (*ir.ParamData, bool) {
	data := ir.NewParamData()
	for _, src := range b.candidates(p.Name) {
		t := b.sources[src]
		col, err := findColumn(t, p.Name, nil)
		if err != nil {
			b.errorf(ErrAmbiguous, p.Name, "", "%v", err)
			return nil, false
		}
		if col < 0 {
			continue
		}
		var value ir.Value
		for _, v := range t.Column(col) {
			if isEmpty(v) {
				continue
			}
			if value.IsValid() && !value.Equal(v) {
				b.errorf(ErrAmbiguous, p.Name, "", "source %s holds several values (%s, %s) for a scalar", src, value.Text(), v.Text())
				return nil, false
			}
			value = v
		}
		if value.IsValid() {
			data.Put(ir.Tuple{}, value)
			return data, true
		}
	}
	if p.Default != nil {
		return data, true
	}
	b.errorf(ErrNoSource, p.Name, "", "no source provides a value column named %q and no default is declared", p.Name)
	return nil, false
}

// tableParam searches sources, in the order of names, for a value column
// named like p plus one key column per index set. A source that has the
// value column but lacks a key column is an error even when p declares a
// default.
func (b *binder) tableParam(p *ir.Parameter, sets []*ir.Set, sources Sources, names []string) (*ir.ParamData, bool) {
	var missingKeys, disjoint []string
	for _, src := range names {
		t := sources[src]
		valCol, err := findColumn(t, p.Name, nil)
		if err != nil {
			b.errorf(ErrAmbiguous, p.Name, "", "%v", err)
			return nil, false
		}
		if valCol < 0 {
			continue
		}
		keyCols, missing, err := keyColumns(t, p.Index, valCol)
		if err != nil {
			b.errorf(ErrAmbiguous, p.Name, "", "%v", err)
			return nil, false
		}
		if missing != "" {
			missingKeys = append(missingKeys, fmt.Sprintf("%s lacks a key column for index set %q (columns: %s)",
				src, missing, strings.Join(t.Columns, ", ")))
			continue
		}

		data, inDomain, dropped, conflict := collectRows(t, keyCols, valCol, sets)
		if conflict != nil {
			b.errorf(ErrAmbiguous, p.Name, conflict.index, "source %s holds conflicting values %s and %s", src, conflict.a, conflict.b)
			return nil, false
		}
		if inDomain == 0 {
			disjoint = append(disjoint, src)
			b.log.Debug("rejected disjoint source", "param", p.Name, "source", src, "rows", len(t.Rows))
			continue
		}
		if dropped > 0 {
			b.log.Debug("dropped rows outside index domain", "param", p.Name, "source", src, "dropped", dropped)
		}
		b.log.Debug("bound param from source", "param", p.Name, "source", src, "values", data.Len())
		return data, true
	}

	if p.Default != nil && len(missingKeys) == 0 && len(disjoint) == 0 {
		return ir.NewParamData(), true
	}
	switch {
	case len(missingKeys) > 0:
		b.errorf(ErrNoSource, p.Name, "", "column %q found but %s", p.Name, strings.Join(missingKeys, "; "))
	case len(disjoint) > 0:
		b.errorf(ErrDisjoint, p.Name, "", "key values in %s share no member with %s", strings.Join(disjoint, ", "), strings.Join(p.Index, " x "))
	default:
		b.errorf(ErrNoSource, p.Name, "", "no source provides a column named %q (sources: %s)", p.Name, b.sourceList())
	}
	return nil, false
}

// keyColumns finds one column per index set, never reusing the value
// column or an earlier key column. It returns the first set name with no
// column.
func keyColumns(t *Table, index []string, valCol int) ([]int, string, error) {
	used := map[int]bool{valCol: true}
	cols := make([]int, len(index))
	for i, setName := range index {
		c, err := findColumn(t, setName, used)
		if err != nil {
			return nil, "", err
		}
		if c < 0 {
			return nil, setName, nil
		}
		used[c] = true
		cols[i] = c
	}
	return cols, "", nil
}

type rowConflict struct {
	index string
	a, b  string
}

// collectRows maps key tuples to values. Rows whose key falls outside the
// index sets are dropped; rows with empty keys or values are skipped.
func collectRows(t *Table, keyCols []int, valCol int, sets []*ir.Set) (data *ir.ParamData, inDomain, dropped int, conflict *rowConflict) {
	data = ir.NewParamData()
	key := make(ir.Tuple, len(keyCols))
rows:
	for _, row := range t.Rows {
		for i, c := range keyCols {
			if isEmpty(row[c]) {
				continue rows
			}
			key[i] = row[c].Normalize()
		}
		for i, s := range sets {
			if !s.Contains(key[i]) {
				dropped++
				continue rows
			}
		}
		v := row[valCol]
		if isEmpty(v) {
			continue
		}
		inDomain++
		if !data.Put(key, v) {
			prev, _ := data.Get(key)
			if !prev.Equal(v) {
				return nil, 0, 0, &rowConflict{index: key.String(), a: prev.Text(), b: v.Text()}
			}
		}
	}
	return data, inDomain, dropped, nil
}
