// Package harness runs LOS conformance scenarios.
//
// A scenario names a model, the data it is solved with and the outcome
// the pipeline must produce. Scenarios live in YAML files:
//
//	name: scenario_a
//	description: "Cheapest product covers the demand"
//	model: models/products.los      # relative to the scenario file
//	files:                          # optional data files, loaded as sources
//	  - data/costs.csv
//	tables:                         # optional inline sources
//	  costs:
//	    columns: [Products, Cost]
//	    rows: [[A, 10], [B, 20]]
//	overrides:                      # optional programmatic overrides
//	  Cost: {A: 10, B: 20}
//	time_limit: 10s
//	golden: true                    # compare the LP export with testdata/golden
//	assertions:
//	  - type: status
//	    status: optimal
//	  - type: objective
//	    value: 10
//	  - type: variable
//	    variable: qty
//	    index: [A]
//	    value: 1
//
// A model can also be given inline with source: instead of model:.
//
// # Assertion Types
//
//   - status: the solve outcome equals status
//   - objective: the objective is within tolerance of value
//   - variable: variable[index] is within tolerance of value
//   - error: the pipeline stopped at stage, optionally with code and a
//     message containing contains
//   - constraints: the solver-level constraint names equal names
//   - constraint_count: the number of solver-level constraints equals count
//
// A scenario without an error assertion fails when the pipeline fails.
//
// # Deterministic Runs
//
// Every run gets a fresh model and fresh bindings. When an audit store
// is attached, run ids come from the store's generator so repeated runs
// of one scenario list identically.
package harness
