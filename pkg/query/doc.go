// Package query implements the JSON query language over a single dataset.
//
// A query is parsed into a typed AST (Parse), which performs every structural
// check up front: shape of WHERE, OPTIONS and TRANSFORMATIONS, filter operand
// types, wildcard placement, APPLY aliases and column/order references. The
// key resolver then fixes the single dataset the query targets. Execute runs
// the pipeline over that dataset's records:
//
//	filter -> group/apply (optional) -> project -> order -> size guard
//
// The package is pure: it performs no I/O and keeps no state between calls.
package query
