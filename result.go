package los

import (
	"time"

	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/run"
	"github.com/jowpereira/LOS/internal/solver"
	"github.com/jowpereira/LOS/internal/translate"
)

// Status is the outcome of a solve.
type Status = solver.Status

// Solve outcomes.
const (
	StatusOptimal    = solver.StatusOptimal
	StatusInfeasible = solver.StatusInfeasible
	StatusUnbounded  = solver.StatusUnbounded
	StatusTimeout    = solver.StatusTimeout
	StatusError      = solver.StatusError
)

// Result is the outcome of Solve.
type Result struct {
	res         *run.SolveResult
	art         *translate.Artifact
	fingerprint string
	vars        map[string]*VariableValues
}

func newResult(res *run.SolveResult, art *translate.Artifact, fingerprint string) *Result {
	r := &Result{res: res, art: art, fingerprint: fingerprint, vars: make(map[string]*VariableValues)}
	for name, vals := range res.Values {
		vv := &VariableValues{name: name, byKey: make(map[string]int, len(vals))}
		for i, v := range vals {
			vv.items = append(vv.items, Item{Index: indexOf(v.Index), Value: v.Value})
			vv.byKey[v.Index.Key()] = i
		}
		r.vars[name] = vv
	}
	return r
}

// Status returns the solve outcome.
func (r *Result) Status() Status { return r.res.Status }

// Objective returns the objective value. It is 0 when the solver
// produced no value (infeasible, unbounded, timeout without incumbent);
// HasSolution tells such a 0 apart from a true optimum of 0.
func (r *Result) Objective() float64 { return r.res.Objective }

// HasSolution reports whether variable values are available.
func (r *Result) HasSolution() bool { return r.res.HasSolution }

// Message returns the solver's explanation for a non-optimal status.
func (r *Result) Message() string { return r.res.Message }

// Nodes returns the number of branch-and-bound nodes explored.
func (r *Result) Nodes() int { return r.res.Nodes }

// Duration returns the solver wall time.
func (r *Result) Duration() time.Duration { return r.res.Duration }

// Fingerprint identifies the bound model: structure plus data.
func (r *Result) Fingerprint() string { return r.fingerprint }

// Raw returns the execution result.
func (r *Result) Raw() *run.SolveResult { return r.res }

// Variables returns the solved variable names, sorted.
func (r *Result) Variables() []string { return r.res.VarNames() }

// Variable returns the solved values of name. The returned collection is
// empty, never nil, when the variable is unknown or unsolved.
func (r *Result) Variable(name string) *VariableValues {
	if vv, ok := r.vars[name]; ok {
		return vv
	}
	return &VariableValues{name: name}
}

// Constraints returns the solver-level constraint names in creation order.
func (r *Result) Constraints() []string {
	p := r.art.Problem
	names := make([]string, p.NumRows())
	for i := range names {
		names[i] = p.Row(i).Name
	}
	return names
}

// Item is one solved variable instance.
type Item struct {
	Index []any // int64, float64, string or bool per dimension; empty for scalars
	Value float64
}

// VariableValues is the solution of one variable over its index domain.
type VariableValues struct {
	name  string
	items []Item
	byKey map[string]int
}

// Name returns the variable name.
func (v *VariableValues) Name() string { return v.name }

// Len returns the number of instances.
func (v *VariableValues) Len() int { return len(v.items) }

// Get returns the value at the given index; call with no arguments for a
// scalar variable. Integral floats match integer members.
func (v *VariableValues) Get(idx ...any) (float64, bool) {
	t := make(ir.Tuple, len(idx))
	for i, x := range idx {
		val, err := ir.FromAny(x)
		if err != nil {
			return 0, false
		}
		t[i] = val
	}
	i, ok := v.byKey[t.Key()]
	if !ok {
		return 0, false
	}
	return v.items[i].Value, true
}

// Items returns every instance in index-expansion order.
func (v *VariableValues) Items() []Item {
	return append([]Item(nil), v.items...)
}

// NonZero returns the instances whose magnitude exceeds 1e-9.
func (v *VariableValues) NonZero() []Item {
	var out []Item
	for _, it := range v.items {
		if it.Value > 1e-9 || it.Value < -1e-9 {
			out = append(out, it)
		}
	}
	return out
}

func indexOf(t ir.Tuple) []any {
	out := make([]any, len(t))
	for i, v := range t {
		out[i] = v.Interface()
	}
	return out
}
