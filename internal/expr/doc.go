// Package expr provides the expression trees carried by query models.
//
// Clauses and result operators own expressions: predicates, selectors,
// keys, seeds, accumulators. An expression is a small tree of Constant,
// Parameter, Lambda, Binary, Unary, Member, Record and Table nodes, plus
// Extension nodes contributed by package model (query source references
// and sub-queries). Every node reports its static Type.
//
// ARCHITECTURE:
//
//	ParseLambda / ParseExpr / ParseType   textual front-end
//	Rewrite / Walk / Replace              structural transforms
//	Eval / Invoke + Env + Catalog         in-memory evaluation
//
// CRITICAL PATTERNS:
//   - Parameters compare by identity: Replace(e, param, ref) only touches
//     that exact *Parameter, never a same-named one.
//   - Rewrite reuses unchanged nodes, so an identity rewrite returns the
//     original tree.
//   - Types are immutable; the shared scalars (Int, String, ...) must
//     never be modified.
package expr
