// Package run is the execution boundary: it hands a lowered artifact to
// the solver and maps the outcome onto a SolveResult.
package run

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/solver"
	"github.com/jowpereira/LOS/internal/translate"
)

// Options configure Execute.
type Options struct {
	TimeLimit time.Duration
	MaxNodes  int
	Tolerance float64
	Logger    *slog.Logger
}

// VarValue is the solved value of one variable instance.
type VarValue struct {
	Index ir.Tuple
	Value float64
}

// SolveResult is the outcome of one execution. Objective is 0 whenever
// the solver produced no value, including infeasible and unbounded runs;
// use Status (or HasSolution) to tell a true zero apart.
type SolveResult struct {
	Status      solver.Status
	Objective   float64
	HasSolution bool
	Values      map[string][]VarValue // variable name -> instances in expansion order
	Nodes       int
	Duration    time.Duration
	Message     string
}

// Execute solves art. Solver outcomes, including failures, are reported
// through Status; Execute itself never fails.
func Execute(ctx context.Context, art *translate.Artifact, opts Options) *SolveResult {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sol := solver.Solve(ctx, art.Problem, solver.Options{
		TimeLimit: opts.TimeLimit,
		MaxNodes:  opts.MaxNodes,
		Tolerance: opts.Tolerance,
		Logger:    logger,
	})

	res := &SolveResult{
		Status:   sol.Status,
		Nodes:    sol.Nodes,
		Duration: sol.Duration,
		Message:  sol.Message,
		Values:   make(map[string][]VarValue, len(art.Vars)),
	}
	if sol.Feasible {
		res.HasSolution = true
		res.Objective = sol.Objective
		for _, vc := range art.Vars {
			vals := make([]VarValue, len(vc.Tuples))
			for i, t := range vc.Tuples {
				vals[i] = VarValue{Index: t, Value: sol.Values[vc.Cols[i]]}
			}
			res.Values[vc.Var.Name] = vals
		}
	}
	logger.Info("model solved",
		"status", res.Status, "objective", res.Objective, "nodes", res.Nodes, "duration", res.Duration)
	return res
}

// VarNames returns the names of the solved variables, sorted.
func (r *SolveResult) VarNames() []string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Value returns the solved value of name at idx.
func (r *SolveResult) Value(name string, idx ...ir.Value) (float64, bool) {
	key := ir.Tuple(idx).Key()
	for _, vv := range r.Values[name] {
		if vv.Index.Key() == key {
			return vv.Value, true
		}
	}
	return 0, false
}
