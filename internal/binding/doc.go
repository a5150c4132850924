// Package binding resolves declared sets and parameters against tabular
// data.
//
// Data arrives as named Tables, either supplied by the caller, loaded from
// the model's import declarations, or given as explicit overrides keyed by
// set/parameter name. Overrides always win; otherwise sources are searched
// for a column whose name matches the target (exact first, then trimmed
// and case-folded). Binding never mutates the input model: Bind returns a
// new Model at StageBound.
//
// All binding problems in one model are collected and returned together
// as BindErrors.
package binding
