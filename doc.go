// Package los compiles and solves LOS optimization models.
//
// A model is written in the LOS language: sets, parameters, decision
// variables, one objective and constraints. Compile parses and builds
// it; Solve binds data, validates, lowers the model onto the solver's
// builder API and executes it:
//
//	m, err := los.Compile(`
//	    set Products = {A, B}
//	    param Cost[Products]
//	    var qty[Products] >= 0
//	    minimize: sum(qty[p] * Cost[p] for p in Products)
//	    st:
//	      qty[A] + qty[B] >= 1
//	`)
//	res, err := los.Solve(ctx, m, los.WithData(map[string]any{
//	    "Cost": map[string]float64{"A": 10, "B": 20},
//	}))
//	qty, _ := res.Variable("qty").Get("A")
//
// Compilation and binding failures are returned as errors; solver
// outcomes (infeasible, unbounded, timeout) are reported through
// Result.Status.
package los
