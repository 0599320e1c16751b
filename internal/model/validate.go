package model

import (
	"errors"
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
)

// ValidationError reports a reference that breaks forward data flow.
type ValidationError struct {
	Element string // rendering of the clause or operator at fault
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query model: %s: %s", e.Element, e.Message)
}

// Validate checks that data flows strictly forward: every reference
// targets a source produced earlier in this model, or one of outer (the
// sources of enclosing models). Nested sub-queries are validated with
// every source visible at their position.
//
// Validate is a pure function with no side effects.
func (m *QueryModel) Validate(outer ...expr.QuerySource) error {
	v := &validator{known: make(map[expr.QuerySource]bool)}
	for _, src := range outer {
		v.known[src] = true
	}
	v.validateModel(m)
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	known map[expr.QuerySource]bool
	errs  []error
}

func (v *validator) validateModel(m *QueryModel) {
	if m.MainFrom == nil || m.Select == nil {
		v.errs = append(v.errs, &ValidationError{Element: "<model>", Message: "main from and select clauses are required"})
		return
	}

	v.check(m.MainFrom, m.MainFrom.FromExpression)
	v.known[m.MainFrom] = true

	for _, c := range m.BodyClauses {
		switch clause := c.(type) {
		case *AdditionalFromClause:
			v.check(clause, clause.FromExpression)
			v.known[clause] = true
		case *JoinClause:
			v.validateJoin(clause, clause)
		case *GroupJoinClause:
			v.validateJoin(clause, clause.Join)
			v.known[clause] = true
		case *WhereClause:
			v.check(clause, clause.Predicate)
		case *OrderByClause:
			if len(clause.orderings) == 0 {
				v.errs = append(v.errs, &ValidationError{Element: clause.String(), Message: "order by clause has no orderings"})
			}
			for _, o := range clause.orderings {
				v.check(clause, o.Expression)
			}
		case *LetClause:
			v.check(clause, clause.Expression)
			v.known[clause] = true
		}
	}

	v.check(m.Select, m.Select.Selector)

	for _, op := range m.ResultOperators {
		op.TransformExpressions(func(e expr.Expr) expr.Expr {
			v.check(op, e)
			return e
		})
		if src, ok := op.(expr.QuerySource); ok {
			v.known[src] = true
		}
	}
}

// validateJoin checks the inner sequence and outer key against earlier
// sources and the inner key against the join's own item.
func (v *validator) validateJoin(at fmt.Stringer, join *JoinClause) {
	v.check(at, join.InnerSequence)
	v.check(at, join.OuterKeySelector)
	v.known[join] = true
	v.check(at, join.InnerKeySelector)
}

func (v *validator) check(at fmt.Stringer, e expr.Expr) {
	if e == nil {
		v.errs = append(v.errs, &ValidationError{Element: at.String(), Message: "expression is nil"})
		return
	}
	expr.Walk(e, func(n expr.Expr) bool {
		switch node := n.(type) {
		case *QuerySourceRef:
			if !v.known[node.Source] {
				v.errs = append(v.errs, &ValidationError{
					Element: at.String(),
					Message: fmt.Sprintf("reference to [%s] before it is produced", node.Source.ItemName()),
				})
			}
		case *SubQuery:
			nested := &validator{known: make(map[expr.QuerySource]bool, len(v.known))}
			for src := range v.known {
				nested.known[src] = true
			}
			nested.validateModel(node.Model)
			v.errs = append(v.errs, nested.errs...)
		}
		return true
	})
}
