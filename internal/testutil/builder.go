package testutil

import (
	"testing"

	"github.com/roach88/qmodel/internal/chain"
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/nodes"
)

// Builder assembles call chains on Queryable for tests. Lambdas are
// written in the lambda mini-language and typed from the current item
// type. Any parse failure fails the test immediately.
type Builder struct {
	t    testing.TB
	node chain.Node
	item *expr.Type
}

// From starts a chain over a table.
func From(t testing.TB, table *expr.Table) *Builder {
	return &Builder{t: t, node: &chain.Sequence{Expr: table}, item: expr.ItemType(table)}
}

// People starts a chain over the People table.
func People(t testing.TB) *Builder { return From(t, PeopleTable()) }

// Orders starts a chain over the Orders table.
func Orders(t testing.TB) *Builder { return From(t, OrdersTable()) }

// Node returns the chain built so far.
func (b *Builder) Node() chain.Node { return b.node }

// Item returns the current item type.
func (b *Builder) Item() *expr.Type { return b.item }

// Lambda parses src with its parameters typed as types.
func Lambda(t testing.TB, src string, types ...*expr.Type) *expr.Lambda {
	t.Helper()
	l, err := expr.ParseLambda(src, types...)
	if err != nil {
		t.Fatalf("parse lambda %q: %v", src, err)
	}
	return l
}

// Quote parses src as a function literal argument.
func Quote(t testing.TB, src string, types ...*expr.Type) *chain.Quote {
	t.Helper()
	return &chain.Quote{Lambda: Lambda(t, src, types...)}
}

// Int is a constant int argument.
func Int(n int64) *chain.Value {
	return &chain.Value{Expr: expr.NewConstant(ir.IRInt(n))}
}

// Call appends a call to name returning ret.
func (b *Builder) Call(name string, ret *expr.Type, args ...chain.Node) *Builder {
	all := append([]chain.Node{b.node}, args...)
	next := &Builder{t: b.t, item: b.item}
	next.node = &chain.Call{
		Signature:  nodes.QueryableSignature(name, len(all)),
		Args:       all,
		ReturnType: ret,
	}
	if ret != nil && ret.Kind == expr.KindSequence {
		next.item = ret.Elem
	}
	return next
}

// seq appends a call that keeps the item type.
func (b *Builder) seq(name string, args ...chain.Node) *Builder {
	return b.Call(name, expr.SequenceOf(b.item), args...)
}

// quote types src's single parameter as the current item.
func (b *Builder) quote(src string) *chain.Quote {
	b.t.Helper()
	return Quote(b.t, src, b.item)
}

func (b *Builder) Where(src string) *Builder { return b.seq("Where", b.quote(src)) }

func (b *Builder) Select(src string) *Builder {
	q := b.quote(src)
	return b.Call("Select", expr.SequenceOf(q.Lambda.Body.Type()), q)
}

func (b *Builder) OrderBy(src string) *Builder { return b.seq("OrderBy", b.quote(src)) }

func (b *Builder) OrderByDescending(src string) *Builder {
	return b.seq("OrderByDescending", b.quote(src))
}

func (b *Builder) ThenBy(src string) *Builder { return b.seq("ThenBy", b.quote(src)) }

func (b *Builder) ThenByDescending(src string) *Builder {
	return b.seq("ThenByDescending", b.quote(src))
}

func (b *Builder) Distinct() *Builder { return b.seq("Distinct") }
func (b *Builder) Reverse() *Builder  { return b.seq("Reverse") }
func (b *Builder) Take(n int64) *Builder { return b.seq("Take", Int(n)) }
func (b *Builder) Skip(n int64) *Builder { return b.seq("Skip", Int(n)) }

// Union appends a Union with another chain.
func (b *Builder) Union(other *Builder) *Builder { return b.seq("Union", other.node) }

// GroupBy groups by src's key, keeping whole items as elements.
func (b *Builder) GroupBy(src string) *Builder {
	q := b.quote(src)
	return b.Call("GroupBy", expr.SequenceOf(expr.GroupingOf(q.Lambda.Body.Type(), b.item)), q)
}

func (b *Builder) Count() *Builder { return b.Call("Count", expr.Int) }

// CountWhere appends Count with a predicate.
func (b *Builder) CountWhere(src string) *Builder { return b.Call("Count", expr.Int, b.quote(src)) }

func (b *Builder) Sum() *Builder { return b.Call("Sum", b.item) }

func (b *Builder) First() *Builder { return b.Call("First", b.item) }

func (b *Builder) FirstOrDefault() *Builder { return b.Call("FirstOrDefault", b.item) }

// Aggregate appends a seeded fold; fn is written as (acc, x) => ...
func (b *Builder) Aggregate(seed int64, fn string) *Builder {
	return b.Call("Aggregate", expr.Int, Int(seed), Quote(b.t, fn, expr.Int, b.item))
}
