package model

import (
	"fmt"
	"slices"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/shape"
)

// QueryModel is the normalized structure of one query: a main from
// clause, body clauses, a terminal select clause and result operators.
//
// A model is a plain mutable structure. It must not be mutated from two
// goroutines without external synchronization.
type QueryModel struct {
	MainFrom        *MainFromClause
	BodyClauses     []BodyClause
	Select          *SelectClause
	ResultOperators []ResultOperator

	parent *QueryModel
}

// New creates a model. Both clauses are required.
func New(mainFrom *MainFromClause, sel *SelectClause) *QueryModel {
	if mainFrom == nil {
		panic("query model requires a main from clause")
	}
	if sel == nil {
		panic("query model requires a select clause")
	}
	return &QueryModel{MainFrom: mainFrom, Select: sel}
}

// NewIdentity creates a model that selects the main from item unchanged.
func NewIdentity(mainFrom *MainFromClause) *QueryModel {
	return New(mainFrom, &SelectClause{Selector: NewRef(mainFrom)})
}

// AddBodyClause appends a clause.
//
// Adding an OrderByClause removes every OrderByClause already in the
// body: the newest ordering replaces older ones. Use OrderByClause.Add to
// extend the current ordering instead.
func (m *QueryModel) AddBodyClause(c BodyClause) {
	if c == nil {
		panic("body clause is nil")
	}
	if _, ok := c.(*OrderByClause); ok {
		m.removeOrderings()
	}
	m.BodyClauses = append(m.BodyClauses, c)
}

// InsertBodyClause inserts c at index, with the same order-by rule as
// AddBodyClause. index counts clauses before any removal.
func (m *QueryModel) InsertBodyClause(index int, c BodyClause) {
	if c == nil {
		panic("body clause is nil")
	}
	if index < 0 || index > len(m.BodyClauses) {
		panic(fmt.Sprintf("body clause index %d out of range [0, %d]", index, len(m.BodyClauses)))
	}
	if _, ok := c.(*OrderByClause); ok {
		for _, existing := range m.BodyClauses[:index] {
			if _, isOrder := existing.(*OrderByClause); isOrder {
				index--
			}
		}
		m.removeOrderings()
	}
	m.BodyClauses = slices.Insert(m.BodyClauses, index, c)
}

func (m *QueryModel) removeOrderings() {
	m.BodyClauses = slices.DeleteFunc(m.BodyClauses, func(c BodyClause) bool {
		_, ok := c.(*OrderByClause)
		return ok
	})
}

// CurrentOrderBy returns the model's order-by clause, if any.
func (m *QueryModel) CurrentOrderBy() (*OrderByClause, bool) {
	for i := len(m.BodyClauses) - 1; i >= 0; i-- {
		if ob, ok := m.BodyClauses[i].(*OrderByClause); ok {
			return ob, true
		}
	}
	return nil, false
}

// AddResultOperator appends a result operator.
func (m *QueryModel) AddResultOperator(op ResultOperator) {
	if op == nil {
		panic("result operator is nil")
	}
	m.ResultOperators = append(m.ResultOperators, op)
}

// Parent returns the enclosing model of a sub-query, or nil.
func (m *QueryModel) Parent() *QueryModel { return m.parent }

// SetParent records the enclosing model. It may be set only once.
func (m *QueryModel) SetParent(parent *QueryModel) {
	if m.parent != nil {
		panic("query model already has a parent")
	}
	m.parent = parent
}

// SelectShape is the shape the select clause produces.
func (m *QueryModel) SelectShape() shape.Sequence {
	return shape.NewSequence(m.Select.Selector)
}

// OutputShape threads the select clause's shape through every result
// operator in order. It has no side effects.
func (m *QueryModel) OutputShape() (shape.Shape, error) {
	var current shape.Shape = m.SelectShape()
	for _, op := range m.ResultOperators {
		next, err := op.OutputShape(current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// TransformExpressions replaces every expression owned by every clause
// and operator with fn(expr), once each. Nested sub-query models are not
// entered; fn sees them as SubQuery expressions.
func (m *QueryModel) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	m.MainFrom.TransformExpressions(fn)
	for _, c := range m.BodyClauses {
		c.TransformExpressions(fn)
	}
	m.Select.TransformExpressions(fn)
	for _, op := range m.ResultOperators {
		op.TransformExpressions(fn)
	}
}

// Clone deep-copies the model. References in the copy point only at
// sources of the copy.
func (m *QueryModel) Clone() *QueryModel {
	return m.CloneWith(nil)
}

// CloneWith deep-copies the model. outer maps sources of enclosing models
// that were already cloned; references to unmapped sources are kept.
func (m *QueryModel) CloneWith(outer *QuerySourceMapping) *QueryModel {
	ctx := NewCloneContext(NewQuerySourceMapping(outer))
	out := &QueryModel{}
	ctx.Owner = out

	out.MainFrom = m.MainFrom.Clone(ctx)
	for _, c := range m.BodyClauses {
		out.BodyClauses = append(out.BodyClauses, c.Clone(ctx))
	}
	out.Select = m.Select.Clone(ctx)
	for _, op := range m.ResultOperators {
		out.ResultOperators = append(out.ResultOperators, op.Clone(ctx))
	}
	return out
}

// Sources returns every query source the model introduces, in data-flow
// order.
func (m *QueryModel) Sources() []expr.QuerySource {
	out := []expr.QuerySource{m.MainFrom}
	for _, c := range m.BodyClauses {
		switch src := c.(type) {
		case *GroupJoinClause:
			out = append(out, src.Join, src)
		case expr.QuerySource:
			out = append(out, src)
		}
	}
	for _, op := range m.ResultOperators {
		if src, ok := op.(expr.QuerySource); ok {
			out = append(out, src)
		}
	}
	return out
}

// IsIdentityQuery reports whether the model selects its main from item
// unchanged, with no body clauses and no result operators.
func (m *QueryModel) IsIdentityQuery() bool {
	if len(m.BodyClauses) > 0 || len(m.ResultOperators) > 0 {
		return false
	}
	ref, ok := m.Select.Selector.(*QuerySourceRef)
	return ok && ref.Source == expr.QuerySource(m.MainFrom)
}

// String renders the model, e.g.
//
//	from p in people where ([p].age > 30) select [p].name => Count()
func (m *QueryModel) String() string {
	r := &renderer{}
	m.Accept(r)
	return r.String()
}
