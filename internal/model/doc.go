// Package model provides the Query Model: the normalized structure a
// chain of query operators is parsed into.
//
// A QueryModel holds exactly one MainFromClause, an ordered list of body
// clauses (AdditionalFrom, Join, GroupJoin, Where, OrderBy, Let), exactly
// one terminal SelectClause and an ordered list of ResultOperators:
//
//	from p in people                  MainFromClause
//	where ([p].age > 30)              WhereClause
//	orderby [p].name asc              OrderByClause
//	select [p].name                   SelectClause
//	=> Distinct() => Count()          ResultOperators
//
// Expressions refer to the items of earlier clauses through
// QuerySourceRef nodes, rendered as [name]. Nested queries appear as
// SubQuery expressions, rendered as {...}.
//
// CRITICAL PATTERNS:
//   - Data flows strictly forward. A reference may only target a source
//     produced earlier in the same model or in an enclosing model
//     (Validate checks this).
//   - Clone remaps references through a QuerySourceMapping so the copy
//     never points into the original. Each clause registers itself in the
//     mapping before its own expressions are rewritten.
//   - Contract violations (double mapping, missing mapping, second parent)
//     panic. They are programming errors, not input errors.
//   - Adding an OrderByClause replaces any earlier OrderByClause.
package model
