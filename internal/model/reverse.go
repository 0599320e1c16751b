package model

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// ReverseResolve turns e, written in terms of query sources, into a
// lambda over one item described by itemExpression. Result operators use
// it to evaluate their expressions against materialized items.
//
// itemExpression is the input sequence's item expression: a reference
// ([p]), a record of references ({p: [p], c: [c]}) or any other
// expression. Sub-expressions structurally equal to the item expression
// map to the item itself; references reachable through record fields map
// to member accesses on the item. Other references are left in place and
// resolve through the evaluation env, which is how correlated sub-queries
// see their outer items. Nested models are not rewritten; evaluate the
// body in an env prepared by BindItem so their references resolve too.
func ReverseResolve(itemExpression, e expr.Expr) *expr.Lambda {
	item := expr.NewParameter("item", itemExpression.Type())
	paths := make(map[expr.QuerySource]expr.Expr)
	collectPaths(itemExpression, item, paths)

	body := expr.Substitute(e, func(n expr.Expr) (expr.Expr, bool) {
		if sameExpression(n, itemExpression) {
			return item, true
		}
		if ref, ok := n.(*QuerySourceRef); ok {
			if path, found := paths[ref.Source]; found {
				return path, true
			}
		}
		return nil, false
	})
	return &expr.Lambda{Params: []*expr.Parameter{item}, Body: body}
}

// BindItem returns env with item bound to every query source that
// itemExpression references, directly or through record fields. When a
// source appears more than once the first occurrence wins, as in
// ReverseResolve.
func BindItem(env *expr.Env, itemExpression expr.Expr, item ir.IRValue) *expr.Env {
	switch n := itemExpression.(type) {
	case *QuerySourceRef:
		return env.Bind(n.Source, item)
	case *expr.Record:
		obj, ok := item.(ir.IRObject)
		if !ok {
			return env
		}
		// Innermost bindings win, so bind the last field first.
		for i := len(n.Fields) - 1; i >= 0; i-- {
			f := n.Fields[i]
			env = BindItem(env, f.Value, obj[f.Name])
		}
	}
	return env
}

func collectPaths(itemExpression, path expr.Expr, paths map[expr.QuerySource]expr.Expr) {
	switch n := itemExpression.(type) {
	case *QuerySourceRef:
		if _, exists := paths[n.Source]; !exists {
			paths[n.Source] = path
		}
	case *expr.Record:
		for _, f := range n.Fields {
			collectPaths(f.Value, &expr.Member{Target: path, Name: f.Name, T: f.Value.Type()}, paths)
		}
	}
}

// sameExpression compares a and b structurally. References match on the
// source they point at; parameters, lambdas and sub-queries only match
// themselves.
func sameExpression(a, b expr.Expr) bool {
	switch x := a.(type) {
	case *QuerySourceRef:
		y, ok := b.(*QuerySourceRef)
		return ok && x.Source == y.Source
	case *expr.Member:
		y, ok := b.(*expr.Member)
		return ok && x.Name == y.Name && sameExpression(x.Target, y.Target)
	case *expr.Binary:
		y, ok := b.(*expr.Binary)
		return ok && x.Op == y.Op && sameExpression(x.Left, y.Left) && sameExpression(x.Right, y.Right)
	case *expr.Unary:
		y, ok := b.(*expr.Unary)
		return ok && x.Op == y.Op && sameExpression(x.Operand, y.Operand)
	case *expr.Constant:
		y, ok := b.(*expr.Constant)
		return ok && ir.Equal(x.Value, y.Value)
	case *expr.Table:
		y, ok := b.(*expr.Table)
		return ok && x.Name == y.Name
	case *expr.Record:
		y, ok := b.(*expr.Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i, f := range x.Fields {
			if f.Name != y.Fields[i].Name || !sameExpression(f.Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	}
	return a == b
}
