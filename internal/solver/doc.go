// Package solver is the linear and mixed-integer backend behind the
// lowering stage.
//
// A Problem is assembled column by column and row by row through the
// builder methods, the same surface a commercial solver API exposes.
// Solve runs gonum's simplex on the LP relaxation and closes integer
// columns with depth-first branch and bound:
//
//   - every bound and constraint becomes an inequality row of G·x <= h
//   - columns that appear in no row are fixed up front
//   - each node tightens one column bound and re-solves from scratch
//
// The context deadline is the time limit. When it expires the best
// integer solution found so far is returned with StatusTimeout.
//
// WriteLP renders a Problem in CPLEX LP text for inspection with other
// tools.
package solver
