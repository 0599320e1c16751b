package nodes

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/registry"
)

// ResultOperatorNode adds one result operator to the model.
//
// Streaming operators (Take, Distinct, Cast, ...) pass their input items
// on, so Resolve forwards to the source. Scalar operators (Count, First,
// Aggregate, ...) end the stream. GroupBy introduces a new query source
// and resolves to a reference to it.
type ResultOperatorNode struct {
	base
	streams bool
	create  func(n *ResultOperatorNode, ctx *ClauseGenerationContext) (model.ResultOperator, error)
}

func newResultNode(kind registry.Kind, info ParseInfo, streams bool, create func(*ResultOperatorNode, *ClauseGenerationContext) (model.ResultOperator, error)) *ResultOperatorNode {
	return &ResultOperatorNode{base: newBase(kind, info), streams: streams, create: create}
}

// Streams reports whether the operator passes a sequence on.
func (n *ResultOperatorNode) Streams() bool { return n.streams }

func (n *ResultOperatorNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	if !n.streams {
		panic(ErrNotStreaming.Error())
	}
	if _, ok := ctx.Lookup(n); ok {
		return referenceTo(n, param, e, ctx)
	}
	return n.source.Resolve(param, e, ctx)
}

// resolvableSource fails when n's expressions would have to be resolved
// through an operator that ends the stream.
func (n *ResultOperatorNode) resolvableSource() error {
	if src, ok := n.source.(*ResultOperatorNode); ok && !src.streams {
		return notStreaming(src, n.kind)
	}
	return nil
}

func (n *ResultOperatorNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := n.source.Apply(m, ctx)
	if err != nil {
		return nil, err
	}
	op, err := n.create(n, ctx)
	if err != nil {
		return nil, n.fail(err)
	}
	if src, ok := op.(expr.QuerySource); ok {
		ctx.Add(n, src)
	}
	m.AddResultOperator(op)
	return m, nil
}
