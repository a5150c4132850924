package ir

import (
	"iter"
	"math"
)

// Stage is how far a Model has progressed through the pipeline.
type Stage int

const (
	StageBuilt Stage = iota + 1
	StageBound
	StageValidated
)

func (s Stage) String() string {
	switch s {
	case StageBuilt:
		return "built"
	case StageBound:
		return "bound"
	case StageValidated:
		return "validated"
	default:
		return "unknown"
	}
}

// SetSource describes where a Set's members come from.
type SetSource int

const (
	SetLiteral SetSource = iota + 1
	SetRange
	SetImported
	SetFiltered
)

func (s SetSource) String() string {
	switch s {
	case SetLiteral:
		return "literal"
	case SetRange:
		return "range"
	case SetImported:
		return "imported"
	case SetFiltered:
		return "filtered"
	default:
		return "unknown"
	}
}

// Range is an inclusive integer range with a positive step.
type Range struct {
	From int64
	To   int64
	Step int64
}

// MaxRangeMembers bounds the size of a range set.
const MaxRangeMembers = 10_000_000

// Len returns the number of members. It does not overflow for any bounds.
func (r Range) Len() uint64 {
	if r.Step <= 0 || r.To < r.From {
		return 0
	}
	q := (uint64(r.To) - uint64(r.From)) / uint64(r.Step)
	if q == math.MaxUint64 {
		return q
	}
	return q + 1
}

// Members expands the range in ascending order. Ranges longer than
// MaxRangeMembers expand to nil; Build rejects them.
func (r Range) Members() []Value {
	n := r.Len()
	if n == 0 || n > MaxRangeMembers {
		return nil
	}
	out := make([]Value, n)
	for i := range out {
		out[i] = Int(r.From + int64(i)*r.Step)
	}
	return out
}

// SetFilter defines a derived set {Var in Of where Cond}.
type SetFilter struct {
	Var  string
	Of   string
	Cond Expr
}

// Set is a named ordered collection of unique scalar members.
type Set struct {
	Name   string
	Source SetSource
	// Literal holds the members written in the declaration {A, B, C}.
	Literal []Value
	Range   *Range
	Filter  *SetFilter
	// Implicit is true when the set was never declared and was introduced
	// because an index or iterator position referenced it.
	Implicit bool
	Bound    bool
	Pos      Pos

	members []Value
	index   map[string]int
}

// Members returns the ordered members. Callers must not modify the slice.
func (s *Set) Members() []Value { return s.members }

// Len returns the number of members.
func (s *Set) Len() int { return len(s.members) }

// Contains reports whether v is a member.
func (s *Set) Contains(v Value) bool {
	_, ok := s.index[v.Key()]
	return ok
}

// WithMembers returns a bound copy of s holding members, deduplicated in
// first-seen order.
func (s *Set) WithMembers(members []Value) *Set {
	out := *s
	out.members = make([]Value, 0, len(members))
	out.index = make(map[string]int, len(members))
	for _, m := range members {
		m = m.Normalize()
		k := m.Key()
		if _, dup := out.index[k]; dup {
			continue
		}
		out.index[k] = len(out.members)
		out.members = append(out.members, m)
	}
	out.Bound = true
	return &out
}

// ParamData maps index tuples to values, remembering insertion order.
type ParamData struct {
	values map[string]Value
	tuples []Tuple
}

// NewParamData creates an empty mapping.
func NewParamData() *ParamData {
	return &ParamData{values: make(map[string]Value)}
}

// Put stores v under t. It returns false, leaving the mapping untouched,
// if t is already present.
func (d *ParamData) Put(t Tuple, v Value) bool {
	k := t.Key()
	if _, ok := d.values[k]; ok {
		return false
	}
	d.values[k] = v
	d.tuples = append(d.tuples, t.Clone())
	return true
}

// Get looks up the value stored under t.
func (d *ParamData) Get(t Tuple) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	v, ok := d.values[t.Key()]
	return v, ok
}

// Len returns the number of stored tuples.
func (d *ParamData) Len() int {
	if d == nil {
		return 0
	}
	return len(d.tuples)
}

// All yields tuples in insertion order.
func (d *ParamData) All() iter.Seq2[Tuple, Value] {
	return func(yield func(Tuple, Value) bool) {
		if d == nil {
			return
		}
		for _, t := range d.tuples {
			if !yield(t, d.values[t.Key()]) {
				return
			}
		}
	}
}

// Parameter is a named table of constants indexed by zero or more sets.
type Parameter struct {
	Name    string
	Index   []string
	Default *Value
	Data    *ParamData
	Bound   bool
	Pos     Pos
}

// Arity returns the number of index dimensions.
func (p *Parameter) Arity() int { return len(p.Index) }

// Lookup returns the bound value for t, falling back to the default.
func (p *Parameter) Lookup(t Tuple) (Value, bool) {
	if v, ok := p.Data.Get(t); ok {
		return v, true
	}
	if p.Default != nil {
		return *p.Default, true
	}
	return Value{}, false
}

// Domain is a decision variable's value domain.
type Domain int

const (
	DomainContinuous Domain = iota + 1
	DomainInteger
	DomainBinary
)

func (d Domain) String() string {
	switch d {
	case DomainContinuous:
		return "continuous"
	case DomainInteger:
		return "integer"
	case DomainBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Variable is a decision quantity indexed by zero or more sets.
type Variable struct {
	Name   string
	Index  []string
	Domain Domain
	Lower  float64
	Upper  float64
	Pos    Pos
}

// Arity returns the number of index dimensions.
func (v *Variable) Arity() int { return len(v.Index) }

// DefaultBounds returns the bounds a variable of domain d gets when the
// declaration names none.
func DefaultBounds(d Domain) (lower, upper float64) {
	if d == DomainBinary {
		return 0, 1
	}
	return 0, math.Inf(1)
}

// Sense is the optimisation direction.
type Sense string

const (
	Minimize Sense = "minimize"
	Maximize Sense = "maximize"
)

// Objective is the single optimisation goal of a Model.
type Objective struct {
	Sense Sense
	Expr  Expr
	Pos   Pos
}

// Constraint is a relation between two expressions, optionally expanded
// over the Cartesian product of Iters.
type Constraint struct {
	// Name is the base instance name; auto-generated names set Auto.
	Name string
	Auto bool
	// NameIndex lists the iterator names written after the name, e.g.
	// limit[p]. When empty, every iterator contributes to the suffix.
	NameIndex []string
	Rel       Op
	Left      Expr
	Right     Expr
	Iters     []Iterator
	Filter    Expr
	Pos       Pos
}

// Import is a declared external tabular source.
type Import struct {
	Path  string
	Alias string
	Pos   Pos
}

// Model is the compilation unit.
type Model struct {
	Imports     []Import
	Sets        []*Set
	Params      []*Parameter
	Vars        []*Variable
	Objective   *Objective
	Constraints []*Constraint
	// Order is the dependency order in which sets and parameters must be
	// bound, as "set:NAME" / "param:NAME" entries.
	Order []string
	Stage Stage

	sets   map[string]int
	params map[string]int
	vars   map[string]int
}

// Reindex rebuilds the name lookup tables. Builders call it once after
// populating the declaration slices.
func (m *Model) Reindex() {
	m.sets = make(map[string]int, len(m.Sets))
	for i, s := range m.Sets {
		m.sets[s.Name] = i
	}
	m.params = make(map[string]int, len(m.Params))
	for i, p := range m.Params {
		m.params[p.Name] = i
	}
	m.vars = make(map[string]int, len(m.Vars))
	for i, v := range m.Vars {
		m.vars[v.Name] = i
	}
}

// Set returns the set named name, or nil.
func (m *Model) Set(name string) *Set {
	if i, ok := m.sets[name]; ok {
		return m.Sets[i]
	}
	return nil
}

// Param returns the parameter named name, or nil.
func (m *Model) Param(name string) *Parameter {
	if i, ok := m.params[name]; ok {
		return m.Params[i]
	}
	return nil
}

// Var returns the variable named name, or nil.
func (m *Model) Var(name string) *Variable {
	if i, ok := m.vars[name]; ok {
		return m.Vars[i]
	}
	return nil
}

// Clone returns a shallow copy of m with fresh declaration slices so the
// caller can replace Sets and Params without touching m.
func (m *Model) Clone() *Model {
	out := *m
	out.Imports = append([]Import(nil), m.Imports...)
	out.Sets = append([]*Set(nil), m.Sets...)
	out.Params = append([]*Parameter(nil), m.Params...)
	out.Vars = append([]*Variable(nil), m.Vars...)
	out.Constraints = append([]*Constraint(nil), m.Constraints...)
	out.Order = append([]string(nil), m.Order...)
	return &out
}

// ReplaceSet swaps the set with the same name as s.
func (m *Model) ReplaceSet(s *Set) {
	if i, ok := m.sets[s.Name]; ok {
		m.Sets[i] = s
	}
}

// ReplaceParam swaps the parameter with the same name as p.
func (m *Model) ReplaceParam(p *Parameter) {
	if i, ok := m.params[p.Name]; ok {
		m.Params[i] = p
	}
}

// WithStage returns a shallow copy of m marked as stage s.
func (m *Model) WithStage(s Stage) *Model {
	out := m.Clone()
	out.Stage = s
	return out
}
