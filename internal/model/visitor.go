package model

import "strings"

// Visitor walks a query model clause by clause. QueryModel.Accept calls
// VisitQueryModel first, then the clause methods in data-flow order.
type Visitor interface {
	VisitQueryModel(m *QueryModel)
	VisitMainFromClause(c *MainFromClause, m *QueryModel)
	VisitAdditionalFromClause(c *AdditionalFromClause, m *QueryModel, index int)
	VisitJoinClause(c *JoinClause, m *QueryModel, index int)
	VisitGroupJoinClause(c *GroupJoinClause, m *QueryModel, index int)
	VisitWhereClause(c *WhereClause, m *QueryModel, index int)
	VisitOrderByClause(c *OrderByClause, m *QueryModel, index int)
	VisitLetClause(c *LetClause, m *QueryModel, index int)
	VisitSelectClause(c *SelectClause, m *QueryModel)
	VisitResultOperator(op ResultOperator, m *QueryModel, index int)
}

// BaseVisitor implements every Visitor method as a no-op. Embed it and
// override what you need.
type BaseVisitor struct{}

func (BaseVisitor) VisitQueryModel(*QueryModel)                                       {}
func (BaseVisitor) VisitMainFromClause(*MainFromClause, *QueryModel)                  {}
func (BaseVisitor) VisitAdditionalFromClause(*AdditionalFromClause, *QueryModel, int) {}
func (BaseVisitor) VisitJoinClause(*JoinClause, *QueryModel, int)                     {}
func (BaseVisitor) VisitGroupJoinClause(*GroupJoinClause, *QueryModel, int)           {}
func (BaseVisitor) VisitWhereClause(*WhereClause, *QueryModel, int)                   {}
func (BaseVisitor) VisitOrderByClause(*OrderByClause, *QueryModel, int)               {}
func (BaseVisitor) VisitLetClause(*LetClause, *QueryModel, int)                       {}
func (BaseVisitor) VisitSelectClause(*SelectClause, *QueryModel)                      {}
func (BaseVisitor) VisitResultOperator(ResultOperator, *QueryModel, int)              {}

// Accept drives v over the model.
func (m *QueryModel) Accept(v Visitor) {
	v.VisitQueryModel(m)
	v.VisitMainFromClause(m.MainFrom, m)
	for i, c := range m.BodyClauses {
		c.accept(v, m, i)
	}
	v.VisitSelectClause(m.Select, m)
	for i, op := range m.ResultOperators {
		v.VisitResultOperator(op, m, i)
	}
}

// renderer produces the canonical text of a model.
type renderer struct {
	BaseVisitor
	parts []string
	ops   []string
}

func (r *renderer) VisitMainFromClause(c *MainFromClause, _ *QueryModel) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitAdditionalFromClause(c *AdditionalFromClause, _ *QueryModel, _ int) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitJoinClause(c *JoinClause, _ *QueryModel, _ int) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitGroupJoinClause(c *GroupJoinClause, _ *QueryModel, _ int) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitWhereClause(c *WhereClause, _ *QueryModel, _ int) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitOrderByClause(c *OrderByClause, _ *QueryModel, _ int) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitLetClause(c *LetClause, _ *QueryModel, _ int) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitSelectClause(c *SelectClause, _ *QueryModel) {
	r.parts = append(r.parts, c.String())
}

func (r *renderer) VisitResultOperator(op ResultOperator, _ *QueryModel, _ int) {
	r.ops = append(r.ops, op.String())
}

func (r *renderer) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.parts, " "))
	for _, op := range r.ops {
		b.WriteString(" => ")
		b.WriteString(op)
	}
	return b.String()
}
