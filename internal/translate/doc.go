// Package translate lowers a validated model into a solver.Problem.
//
// Every variable is expanded over the Cartesian product of its index
// sets into solver columns, the objective and each constraint instance
// are reduced to affine forms (sum of coefficient times column plus a
// constant) and handed to the solver builder. No source text is
// generated: names only reach the problem through Sanitize.
//
// Aggregations are accumulated in place while the index product is
// streamed, so lowering sum(... for p in P) needs no storage
// proportional to |P| beyond the terms it contributes.
package translate
