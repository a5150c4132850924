package harness

import (
	los "github.com/jowpereira/LOS"
)

// StageSolve marks a run whose pipeline completed and reached the solver.
const StageSolve = "solve"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Stage is StageSolve when the solver ran, otherwise the stage that
	// stopped the pipeline.
	Stage string `json:"stage"`

	// Status and Objective mirror the solve result; empty and 0 when the
	// pipeline stopped early.
	Status    string  `json:"status,omitempty"`
	Objective float64 `json:"objective"`

	// Constraints are the solver-level constraint names.
	Constraints []string `json:"constraints,omitempty"`

	// Diagnostics describe the pipeline failure, if any.
	Diagnostics []los.Diagnostic `json:"diagnostics,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunID is the audit log id when the run was recorded.
	RunID string `json:"run_id,omitempty"`

	// LP is the CPLEX LP export, set for golden scenarios.
	LP string `json:"-"`

	// Solve is the solver result when Stage is StageSolve.
	Solve *los.Result `json:"-"`

	// Err is the pipeline error when Stage is not StageSolve.
	Err error `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// fail records the pipeline error that stopped the run.
func (r *Result) fail(err error) {
	r.Err = err
	r.Stage = los.StageRead
	if pe, ok := err.(*los.PipelineError); ok {
		r.Stage = pe.Stage
	}
	r.Diagnostics = los.Diagnostics(err)
}
