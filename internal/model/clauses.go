package model

import (
	"errors"
	"strings"

	"github.com/roach88/qmodel/internal/expr"
)

// Clause is a structural element of a query model.
type Clause interface {
	// TransformExpressions replaces every expression the clause owns with
	// fn(expr), once each.
	TransformExpressions(fn func(expr.Expr) expr.Expr)
	String() string
	clause()
}

// BodyClause is a clause that may appear between the main from clause and
// the select clause.
type BodyClause interface {
	Clause
	// Clone copies the clause, registering any query source it introduces
	// in ctx before rewriting its expressions.
	Clone(ctx *CloneContext) BodyClause
	accept(v Visitor, m *QueryModel, index int)
}

// MainFromClause is the unique entry point of a query model.
type MainFromClause struct {
	Name           string
	Item           *expr.Type
	FromExpression expr.Expr
}

// NewMainFromClause creates a main from clause over a sequence expression.
func NewMainFromClause(name string, item *expr.Type, from expr.Expr) *MainFromClause {
	return &MainFromClause{Name: name, Item: item, FromExpression: from}
}

func (*MainFromClause) clause() {}

func (c *MainFromClause) ItemName() string     { return c.Name }
func (c *MainFromClause) ItemType() *expr.Type { return c.Item }

func (c *MainFromClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.FromExpression = fn(c.FromExpression)
}

func (c *MainFromClause) String() string {
	return "from " + c.Name + " in " + c.FromExpression.String()
}

// Clone copies the clause and registers the copy in ctx.
func (c *MainFromClause) Clone(ctx *CloneContext) *MainFromClause {
	out := &MainFromClause{Name: c.Name, Item: c.Item, FromExpression: c.FromExpression}
	ctx.Mapping.Add(c, out)
	out.TransformExpressions(ctx.adjust)
	return out
}

// AdditionalFromClause introduces a second bound item (a cross join or
// flattening), e.g. "from i in [o].items".
type AdditionalFromClause struct {
	Name           string
	Item           *expr.Type
	FromExpression expr.Expr
}

func (*AdditionalFromClause) clause() {}

func (c *AdditionalFromClause) ItemName() string     { return c.Name }
func (c *AdditionalFromClause) ItemType() *expr.Type { return c.Item }

func (c *AdditionalFromClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.FromExpression = fn(c.FromExpression)
}

func (c *AdditionalFromClause) String() string {
	return "from " + c.Name + " in " + c.FromExpression.String()
}

func (c *AdditionalFromClause) Clone(ctx *CloneContext) BodyClause {
	out := &AdditionalFromClause{Name: c.Name, Item: c.Item, FromExpression: c.FromExpression}
	ctx.Mapping.Add(c, out)
	out.TransformExpressions(ctx.adjust)
	return out
}

func (c *AdditionalFromClause) accept(v Visitor, m *QueryModel, index int) {
	v.VisitAdditionalFromClause(c, m, index)
}

// JoinClause is an inner equi-join against another sequence.
type JoinClause struct {
	Name             string
	Item             *expr.Type
	InnerSequence    expr.Expr
	OuterKeySelector expr.Expr
	InnerKeySelector expr.Expr
}

func (*JoinClause) clause() {}

func (c *JoinClause) ItemName() string     { return c.Name }
func (c *JoinClause) ItemType() *expr.Type { return c.Item }

func (c *JoinClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.InnerSequence = fn(c.InnerSequence)
	c.OuterKeySelector = fn(c.OuterKeySelector)
	c.InnerKeySelector = fn(c.InnerKeySelector)
}

func (c *JoinClause) String() string {
	return "join " + c.Name + " in " + c.InnerSequence.String() +
		" on " + c.OuterKeySelector.String() + " equals " + c.InnerKeySelector.String()
}

func (c *JoinClause) Clone(ctx *CloneContext) BodyClause {
	return c.cloneJoin(ctx)
}

func (c *JoinClause) cloneJoin(ctx *CloneContext) *JoinClause {
	out := &JoinClause{
		Name:             c.Name,
		Item:             c.Item,
		InnerSequence:    c.InnerSequence,
		OuterKeySelector: c.OuterKeySelector,
		InnerKeySelector: c.InnerKeySelector,
	}
	ctx.Mapping.Add(c, out)
	out.TransformExpressions(ctx.adjust)
	return out
}

func (c *JoinClause) accept(v Visitor, m *QueryModel, index int) {
	v.VisitJoinClause(c, m, index)
}

// GroupJoinClause correlates each outer item with the sequence of
// matching inner items. Its item is that sequence; the embedded join
// clause is the source the inner key selector refers to.
type GroupJoinClause struct {
	Name string
	Item *expr.Type
	Join *JoinClause
}

func (*GroupJoinClause) clause() {}

func (c *GroupJoinClause) ItemName() string     { return c.Name }
func (c *GroupJoinClause) ItemType() *expr.Type { return c.Item }

func (c *GroupJoinClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Join.TransformExpressions(fn)
}

func (c *GroupJoinClause) String() string {
	return c.Join.String() + " into " + c.Name
}

func (c *GroupJoinClause) Clone(ctx *CloneContext) BodyClause {
	out := &GroupJoinClause{Name: c.Name, Item: c.Item}
	ctx.Mapping.Add(c, out)
	out.Join = c.Join.cloneJoin(ctx)
	return out
}

func (c *GroupJoinClause) accept(v Visitor, m *QueryModel, index int) {
	v.VisitGroupJoinClause(c, m, index)
}

// WhereClause filters items by a boolean predicate.
type WhereClause struct {
	Predicate expr.Expr
}

func (*WhereClause) clause() {}

func (c *WhereClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Predicate = fn(c.Predicate)
}

func (c *WhereClause) String() string { return "where " + c.Predicate.String() }

func (c *WhereClause) Clone(ctx *CloneContext) BodyClause {
	out := &WhereClause{Predicate: c.Predicate}
	out.TransformExpressions(ctx.adjust)
	return out
}

func (c *WhereClause) accept(v Visitor, m *QueryModel, index int) {
	v.VisitWhereClause(c, m, index)
}

// Direction is an ordering direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Ordering is one sort key of an order-by clause.
type Ordering struct {
	Expression expr.Expr
	Direction  Direction
}

func (o Ordering) String() string { return o.Expression.String() + " " + o.Direction.String() }

// ErrInvalidOrdering is returned by OrderByClause.Add for a nil key or an
// unknown direction.
var ErrInvalidOrdering = errors.New("invalid ordering")

// OrderByClause sorts items by an ordered list of keys; later keys break
// ties of earlier ones.
type OrderByClause struct {
	orderings []Ordering
}

// NewOrderByClause creates an order-by clause with one ordering.
func NewOrderByClause(key expr.Expr, dir Direction) (*OrderByClause, error) {
	c := &OrderByClause{}
	if err := c.Add(key, dir); err != nil {
		return nil, err
	}
	return c, nil
}

// Add appends a sort key. The key must be non-nil and the direction valid.
func (c *OrderByClause) Add(key expr.Expr, dir Direction) error {
	if key == nil {
		return errors.Join(ErrInvalidOrdering, errors.New("ordering expression is nil"))
	}
	if dir != Ascending && dir != Descending {
		return errors.Join(ErrInvalidOrdering, errors.New("unknown ordering direction"))
	}
	c.orderings = append(c.orderings, Ordering{Expression: key, Direction: dir})
	return nil
}

// Orderings returns the sort keys in priority order.
func (c *OrderByClause) Orderings() []Ordering {
	return append([]Ordering(nil), c.orderings...)
}

func (*OrderByClause) clause() {}

func (c *OrderByClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	for i := range c.orderings {
		c.orderings[i].Expression = fn(c.orderings[i].Expression)
	}
}

func (c *OrderByClause) String() string {
	parts := make([]string, len(c.orderings))
	for i, o := range c.orderings {
		parts[i] = o.String()
	}
	return "orderby " + strings.Join(parts, ", ")
}

func (c *OrderByClause) Clone(ctx *CloneContext) BodyClause {
	out := &OrderByClause{orderings: c.Orderings()}
	out.TransformExpressions(ctx.adjust)
	return out
}

func (c *OrderByClause) accept(v Visitor, m *QueryModel, index int) {
	v.VisitOrderByClause(c, m, index)
}

// LetClause binds a new name to a computed value.
type LetClause struct {
	Name       string
	Expression expr.Expr
}

func (*LetClause) clause() {}

func (c *LetClause) ItemName() string     { return c.Name }
func (c *LetClause) ItemType() *expr.Type { return c.Expression.Type() }

func (c *LetClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Expression = fn(c.Expression)
}

func (c *LetClause) String() string { return "let " + c.Name + " = " + c.Expression.String() }

func (c *LetClause) Clone(ctx *CloneContext) BodyClause {
	out := &LetClause{Name: c.Name, Expression: c.Expression}
	ctx.Mapping.Add(c, out)
	out.TransformExpressions(ctx.adjust)
	return out
}

func (c *LetClause) accept(v Visitor, m *QueryModel, index int) {
	v.VisitLetClause(c, m, index)
}

// SelectClause is the terminal projection.
type SelectClause struct {
	Selector expr.Expr
}

func (*SelectClause) clause() {}

func (c *SelectClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Selector = fn(c.Selector)
}

func (c *SelectClause) String() string { return "select " + c.Selector.String() }

// Clone copies the projection.
func (c *SelectClause) Clone(ctx *CloneContext) *SelectClause {
	out := &SelectClause{Selector: c.Selector}
	out.TransformExpressions(ctx.adjust)
	return out
}
