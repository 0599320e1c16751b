package nodes

import (
	"errors"
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/registry"
)

// ErrNotStreaming is returned by Apply when a clause follows an operator
// that produces a single value.
var ErrNotStreaming = errors.New("this operator does not stream data to the next node")

// Node is one intermediate node of a parsed call chain.
type Node interface {
	Kind() registry.Kind
	// Source is the node this one consumes, nil for a main source.
	Source() Node
	// AssociatedIdentifier names the items this node produces.
	AssociatedIdentifier() string
	// Resolve rewrites e, written in terms of param (this node's output
	// item), into an expression over query sources.
	Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr
	// Apply applies the source node to m, then adds this node's clause or
	// operator. A main source is applied to a nil model.
	Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error)
}

// ParseInfo carries what every node is constructed from.
type ParseInfo struct {
	Identifier string
	Source     Node
	// CallText is the literal call text, used in error messages.
	CallText string
	// TypeArgs are the call's parsed type arguments, e.g. int for Cast<int>.
	TypeArgs []*expr.Type
	// ResultType is the call's declared return type.
	ResultType *expr.Type
}

// ApplyError reports a call that could not be added to the model.
type ApplyError struct {
	Call string
	Err  error
}

func (e *ApplyError) Error() string { return e.Call + ": " + e.Err.Error() }

func (e *ApplyError) Unwrap() error { return e.Err }

// ClauseGenerationContext maps nodes to the query sources they produced
// while one chain is applied.
type ClauseGenerationContext struct {
	sources map[Node]expr.QuerySource
}

// NewClauseGenerationContext creates an empty context.
func NewClauseGenerationContext() *ClauseGenerationContext {
	return &ClauseGenerationContext{sources: make(map[Node]expr.QuerySource)}
}

// Add registers the source produced by n.
func (c *ClauseGenerationContext) Add(n Node, src expr.QuerySource) {
	if _, exists := c.sources[n]; exists {
		panic(fmt.Sprintf("node %s (%s) is already registered", n.Kind(), n.AssociatedIdentifier()))
	}
	c.sources[n] = src
}

// Lookup returns the source produced by n.
func (c *ClauseGenerationContext) Lookup(n Node) (expr.QuerySource, bool) {
	src, ok := c.sources[n]
	return src, ok
}

// Get returns the source produced by n and panics when n was never
// applied.
func (c *ClauseGenerationContext) Get(n Node) expr.QuerySource {
	src, ok := c.sources[n]
	if !ok {
		panic("no query source registered for this node; apply() must run before resolve()")
	}
	return src
}

// Len returns the number of registered nodes.
func (c *ClauseGenerationContext) Len() int { return len(c.sources) }

// base holds what every operator node shares.
type base struct {
	kind       registry.Kind
	source     Node
	identifier string
	callText   string
}

func newBase(kind registry.Kind, info ParseInfo) base {
	return base{kind: kind, source: info.Source, identifier: info.Identifier, callText: info.CallText}
}

func (b *base) Kind() registry.Kind { return b.kind }

func (b *base) Source() Node { return b.source }

func (b *base) AssociatedIdentifier() string { return b.identifier }

func (b *base) fail(err error) error {
	return &ApplyError{Call: b.callText, Err: err}
}

// resolveLambda resolves a one-parameter lambda's body through n.
func resolveLambda(n Node, l *expr.Lambda, ctx *ClauseGenerationContext) expr.Expr {
	return n.Resolve(l.Params[0], l.Body, ctx)
}

// ReplaceParameter substitutes with for every occurrence of param in e,
// including inside nested sub-query models, which are updated in place.
func ReplaceParameter(e expr.Expr, param *expr.Parameter, with expr.Expr) expr.Expr {
	return expr.Rewrite(e, func(n expr.Expr) expr.Expr {
		switch node := n.(type) {
		case *expr.Parameter:
			if node == param {
				return with
			}
		case *model.SubQuery:
			node.Model.TransformExpressions(func(inner expr.Expr) expr.Expr {
				return ReplaceParameter(inner, param, with)
			})
		}
		return n
	})
}

// referenceTo replaces param in e with a reference to the source n
// registered.
func referenceTo(n Node, param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return ReplaceParameter(e, param, model.NewRef(ctx.Get(n)))
}

// applyClauseSource applies b's source for a clause-producing node. When
// the source is a streaming result operator the model so far becomes a
// sub-query under a fresh main source, and b's source is re-pointed at it.
func (b *base) applyClauseSource(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	m, err := b.source.Apply(m, ctx)
	if err != nil {
		return nil, err
	}
	op, ok := b.source.(*ResultOperatorNode)
	if !ok {
		return m, nil
	}
	if !op.streams {
		return nil, b.fail(notStreaming(op, b.kind))
	}

	sub := model.NewSubQuery(m)
	if _, err := m.OutputShape(); err != nil {
		return nil, b.fail(err)
	}
	main := NewMainSource(op.AssociatedIdentifier(), sub, expr.ItemType(sub))
	b.source = main
	wrapped, err := main.Apply(nil, ctx)
	if err != nil {
		return nil, err
	}
	m.SetParent(wrapped)
	return wrapped, nil
}

func notStreaming(src *ResultOperatorNode, next registry.Kind) error {
	return fmt.Errorf("%w: %s cannot be followed by %s", ErrNotStreaming, src.Kind(), next)
}
