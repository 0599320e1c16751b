package model

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// QuerySourceRef points at the item currently flowing from a query
// source. It never owns the source.
type QuerySourceRef struct {
	expr.ExtensionBase
	Source expr.QuerySource
}

// NewRef creates a reference to src.
func NewRef(src expr.QuerySource) *QuerySourceRef {
	return &QuerySourceRef{Source: src}
}

func (r *QuerySourceRef) Type() *expr.Type { return r.Source.ItemType() }

func (r *QuerySourceRef) String() string { return "[" + r.Source.ItemName() + "]" }

func (r *QuerySourceRef) Children() []expr.Expr { return nil }

func (r *QuerySourceRef) RewriteChildren(func(expr.Expr) expr.Expr) expr.Expr { return r }

// Eval returns the value bound to the referenced source.
func (r *QuerySourceRef) Eval(env *expr.Env) (ir.IRValue, error) {
	v, ok := env.Lookup(r.Source)
	if !ok {
		return nil, fmt.Errorf("query source [%s] has no current item", r.Source.ItemName())
	}
	return v, nil
}

// SubQuery embeds a nested query model in an expression. Rewrites stop
// at its boundary: the nested model's own expressions are transformed
// through its own TransformExpressions.
type SubQuery struct {
	expr.ExtensionBase
	Model *QueryModel
}

// NewSubQuery wraps m.
func NewSubQuery(m *QueryModel) *SubQuery {
	return &SubQuery{Model: m}
}

// Type is the data type of the nested model's output shape.
func (s *SubQuery) Type() *expr.Type {
	out, err := s.Model.OutputShape()
	if err != nil {
		return expr.Any
	}
	return out.DataType()
}

func (s *SubQuery) String() string { return "{" + s.Model.String() + "}" }

func (s *SubQuery) Children() []expr.Expr { return nil }

func (s *SubQuery) RewriteChildren(func(expr.Expr) expr.Expr) expr.Expr { return s }

// Eval runs the nested model through the env's sub-query runner.
func (s *SubQuery) Eval(env *expr.Env) (ir.IRValue, error) {
	return env.RunSubQuery(s)
}

// ReferencedSources returns the distinct sources e references, in first
// occurrence order. Sub-query boundaries are not crossed.
func ReferencedSources(e expr.Expr) []expr.QuerySource {
	var out []expr.QuerySource
	seen := map[expr.QuerySource]bool{}
	expr.Walk(e, func(n expr.Expr) bool {
		if ref, ok := n.(*QuerySourceRef); ok && !seen[ref.Source] {
			seen[ref.Source] = true
			out = append(out, ref.Source)
		}
		return true
	})
	return out
}
