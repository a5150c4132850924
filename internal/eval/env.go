package eval

import (
	"iter"

	"github.com/jowpereira/LOS/internal/ir"
)

// Env binds iterator names to values. Inner bindings shadow outer ones.
type Env struct {
	names  []string
	values []ir.Value
}

// Push binds name to v.
func (e *Env) Push(name string, v ir.Value) {
	e.names = append(e.names, name)
	e.values = append(e.values, v)
}

// Pop removes the n most recent bindings.
func (e *Env) Pop(n int) {
	e.names = e.names[:len(e.names)-n]
	e.values = e.values[:len(e.values)-n]
}

// Lookup returns the innermost binding of name.
func (e *Env) Lookup(name string) (ir.Value, bool) {
	if e == nil {
		return ir.Value{}, false
	}
	for i := len(e.names) - 1; i >= 0; i-- {
		if e.names[i] == name {
			return e.values[i], true
		}
	}
	return ir.Value{}, false
}

// Product yields every combination of members of sets in odometer order
// (last set varies fastest). The yielded tuple is reused between
// iterations; callers that keep it must Clone it. An empty sets list
// yields one empty tuple.
func Product(sets []*ir.Set) iter.Seq[ir.Tuple] {
	return func(yield func(ir.Tuple) bool) {
		for _, s := range sets {
			if s.Len() == 0 {
				return
			}
		}
		pos := make([]int, len(sets))
		tuple := make(ir.Tuple, len(sets))
		for i, s := range sets {
			tuple[i] = s.Members()[0]
		}
		for {
			if !yield(tuple) {
				return
			}
			i := len(sets) - 1
			for ; i >= 0; i-- {
				pos[i]++
				if pos[i] < sets[i].Len() {
					tuple[i] = sets[i].Members()[pos[i]]
					break
				}
				pos[i] = 0
				tuple[i] = sets[i].Members()[0]
			}
			if i < 0 {
				return
			}
		}
	}
}
