package nodes

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/model"
)

// WhereNode filters its source.
type WhereNode struct {
	base
	Predicate *expr.Lambda
}

// NewWhere creates a filter node.
func NewWhere(info ParseInfo, predicate *expr.Lambda) *WhereNode {
	return &WhereNode{base: newBase(KindWhere, info), Predicate: predicate}
}

func (n *WhereNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return n.source.Resolve(param, e, ctx)
}

func (n *WhereNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.applyClauseSource(m, ctx)
	if err != nil {
		return nil, err
	}
	m.AddBodyClause(&model.WhereClause{Predicate: resolveLambda(n.source, n.Predicate, ctx)})
	return m, nil
}

// SelectNode projects its source.
type SelectNode struct {
	base
	Selector *expr.Lambda
}

// NewSelect creates a projection node.
func NewSelect(info ParseInfo, selector *expr.Lambda) *SelectNode {
	return &SelectNode{base: newBase(KindSelect, info), Selector: selector}
}

// Resolve substitutes the resolved selector for param.
func (n *SelectNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return ReplaceParameter(e, param, resolveLambda(n.source, n.Selector, ctx))
}

func (n *SelectNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.applyClauseSource(m, ctx)
	if err != nil {
		return nil, err
	}
	m.Select.Selector = resolveLambda(n.source, n.Selector, ctx)
	return m, nil
}

// SelectManyNode flattens a per-item collection into an additional from
// clause. Without a result selector the inner items flow on.
type SelectManyNode struct {
	base
	CollectionSelector *expr.Lambda
	ResultSelector     *expr.Lambda
}

// NewSelectMany creates a flattening node. resultSelector may be nil.
func NewSelectMany(info ParseInfo, collectionSelector, resultSelector *expr.Lambda) *SelectManyNode {
	return &SelectManyNode{base: newBase(KindSelectMany, info), CollectionSelector: collectionSelector, ResultSelector: resultSelector}
}

func (n *SelectManyNode) itemName() string {
	if n.ResultSelector != nil {
		return n.ResultSelector.Params[1].Name
	}
	return n.identifier
}

func (n *SelectManyNode) resolvedResult(ctx *ClauseGenerationContext) expr.Expr {
	if n.ResultSelector == nil {
		return model.NewRef(ctx.Get(n))
	}
	body := ReplaceParameter(n.ResultSelector.Body, n.ResultSelector.Params[1], model.NewRef(ctx.Get(n)))
	return n.source.Resolve(n.ResultSelector.Params[0], body, ctx)
}

func (n *SelectManyNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return ReplaceParameter(e, param, n.resolvedResult(ctx))
}

func (n *SelectManyNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.applyClauseSource(m, ctx)
	if err != nil {
		return nil, err
	}
	collection := resolveLambda(n.source, n.CollectionSelector, ctx)
	if collection.Type().Kind != expr.KindSequence && collection.Type().Kind != expr.KindAny {
		return nil, n.fail(fmt.Errorf("collection selector produces %s, want a sequence", collection.Type()))
	}
	from := &model.AdditionalFromClause{Name: n.itemName(), Item: expr.ItemType(collection), FromExpression: collection}
	m.AddBodyClause(from)
	ctx.Add(n, from)
	m.Select.Selector = n.resolvedResult(ctx)
	return m, nil
}

// JoinNode is an inner equi-join. Its result selector combines the outer
// and inner items.
type JoinNode struct {
	base
	Inner            expr.Expr
	OuterKeySelector *expr.Lambda
	InnerKeySelector *expr.Lambda
	ResultSelector   *expr.Lambda
}

// NewJoin creates a join node.
func NewJoin(info ParseInfo, inner expr.Expr, outerKey, innerKey, result *expr.Lambda) *JoinNode {
	return &JoinNode{
		base:             newBase(KindJoin, info),
		Inner:            inner,
		OuterKeySelector: outerKey,
		InnerKeySelector: innerKey,
		ResultSelector:   result,
	}
}

func (n *JoinNode) resolvedResult(ctx *ClauseGenerationContext) expr.Expr {
	body := ReplaceParameter(n.ResultSelector.Body, n.ResultSelector.Params[1], model.NewRef(ctx.Get(n)))
	return n.source.Resolve(n.ResultSelector.Params[0], body, ctx)
}

func (n *JoinNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return ReplaceParameter(e, param, n.resolvedResult(ctx))
}

func (n *JoinNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.applyClauseSource(m, ctx)
	if err != nil {
		return nil, err
	}
	join, err := newJoinClause(n.source, n.InnerKeySelector.Params[0].Name, n.Inner, n.OuterKeySelector, n.InnerKeySelector, ctx)
	if err != nil {
		return nil, n.fail(err)
	}
	ctx.Add(n, join)
	join.InnerKeySelector = referenceTo(n, n.InnerKeySelector.Params[0], n.InnerKeySelector.Body, ctx)
	m.AddBodyClause(join)
	m.Select.Selector = n.resolvedResult(ctx)
	return m, nil
}

// newJoinClause builds a join clause with its outer key resolved and its
// inner key still written in terms of the inner key selector's parameter.
func newJoinClause(source Node, name string, inner expr.Expr, outerKey, innerKey *expr.Lambda, ctx *ClauseGenerationContext) (*model.JoinClause, error) {
	if k := inner.Type().Kind; k != expr.KindSequence && k != expr.KindAny {
		return nil, fmt.Errorf("inner sequence %s has type %s, want a sequence", inner, inner.Type())
	}
	outer := resolveLambda(source, outerKey, ctx)
	if !outer.Type().AssignableTo(innerKey.Body.Type()) && !innerKey.Body.Type().AssignableTo(outer.Type()) {
		return nil, fmt.Errorf("join keys have incompatible types %s and %s", outer.Type(), innerKey.Body.Type())
	}
	return &model.JoinClause{
		Name:             name,
		Item:             expr.ItemType(inner),
		InnerSequence:    inner,
		OuterKeySelector: outer,
		InnerKeySelector: innerKey.Body,
	}, nil
}

// GroupJoinNode correlates each outer item with its matching inner items.
// The result selector's second parameter is that sequence.
type GroupJoinNode struct {
	base
	Inner            expr.Expr
	OuterKeySelector *expr.Lambda
	InnerKeySelector *expr.Lambda
	ResultSelector   *expr.Lambda
}

// NewGroupJoin creates a group join node.
func NewGroupJoin(info ParseInfo, inner expr.Expr, outerKey, innerKey, result *expr.Lambda) *GroupJoinNode {
	return &GroupJoinNode{
		base:             newBase(KindGroupJoin, info),
		Inner:            inner,
		OuterKeySelector: outerKey,
		InnerKeySelector: innerKey,
		ResultSelector:   result,
	}
}

func (n *GroupJoinNode) resolvedResult(ctx *ClauseGenerationContext) expr.Expr {
	body := ReplaceParameter(n.ResultSelector.Body, n.ResultSelector.Params[1], model.NewRef(ctx.Get(n)))
	return n.source.Resolve(n.ResultSelector.Params[0], body, ctx)
}

func (n *GroupJoinNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return ReplaceParameter(e, param, n.resolvedResult(ctx))
}

func (n *GroupJoinNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.applyClauseSource(m, ctx)
	if err != nil {
		return nil, err
	}
	join, err := newJoinClause(n.source, n.InnerKeySelector.Params[0].Name, n.Inner, n.OuterKeySelector, n.InnerKeySelector, ctx)
	if err != nil {
		return nil, n.fail(err)
	}
	join.InnerKeySelector = ReplaceParameter(join.InnerKeySelector, n.InnerKeySelector.Params[0], model.NewRef(join))
	gj := &model.GroupJoinClause{
		Name: n.ResultSelector.Params[1].Name,
		Item: expr.SequenceOf(join.Item),
		Join: join,
	}
	ctx.Add(n, gj)
	m.AddBodyClause(gj)
	m.Select.Selector = n.resolvedResult(ctx)
	return m, nil
}

// OrderByNode sorts its source. ThenBy nodes extend the ordering of the
// order-by clause directly before them.
type OrderByNode struct {
	base
	KeySelector *expr.Lambda
	Direction   model.Direction
	then        bool
}

// NewOrderBy creates an OrderBy or OrderByDescending node.
func NewOrderBy(info ParseInfo, key *expr.Lambda, dir model.Direction) *OrderByNode {
	kind := KindOrderBy
	if dir == model.Descending {
		kind = KindOrderByDescending
	}
	return &OrderByNode{base: newBase(kind, info), KeySelector: key, Direction: dir}
}

// NewThenBy creates a ThenBy or ThenByDescending node.
func NewThenBy(info ParseInfo, key *expr.Lambda, dir model.Direction) *OrderByNode {
	kind := KindThenBy
	if dir == model.Descending {
		kind = KindThenByDescending
	}
	return &OrderByNode{base: newBase(kind, info), KeySelector: key, Direction: dir, then: true}
}

func (n *OrderByNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return n.source.Resolve(param, e, ctx)
}

func (n *OrderByNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.applyClauseSource(m, ctx)
	if err != nil {
		return nil, err
	}
	key := resolveLambda(n.source, n.KeySelector, ctx)
	if !n.then {
		ob, err := model.NewOrderByClause(key, n.Direction)
		if err != nil {
			return nil, n.fail(err)
		}
		m.AddBodyClause(ob)
		return m, nil
	}

	var last model.BodyClause
	if len(m.BodyClauses) > 0 {
		last = m.BodyClauses[len(m.BodyClauses)-1]
	}
	ob, ok := last.(*model.OrderByClause)
	if !ok {
		return nil, n.fail(fmt.Errorf("%s must directly follow OrderBy or another ThenBy", n.kind))
	}
	if err := ob.Add(key, n.Direction); err != nil {
		return nil, n.fail(err)
	}
	return m, nil
}
