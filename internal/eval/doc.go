// Package eval evaluates constant IR expressions against a bound model.
//
// Binding uses it to compute filtered sets; lowering uses it for every
// sub-expression that does not mention a decision variable. Iteration
// over Cartesian products is streamed through a single reused tuple.
package eval
