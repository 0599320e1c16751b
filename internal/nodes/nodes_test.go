package nodes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/nodes"
	"github.com/roach88/qmodel/internal/registry"
	"github.com/roach88/qmodel/internal/resultop"
	"github.com/roach88/qmodel/internal/testutil"
)

func people() *nodes.MainSourceNode {
	return nodes.NewMainSource("p", testutil.PeopleTable(), testutil.Person)
}

func info(id string, source nodes.Node) nodes.ParseInfo {
	return nodes.ParseInfo{Identifier: id, Source: source, CallText: "call " + id}
}

func build(t *testing.T, kind registry.Kind, in nodes.ParseInfo, args ...expr.Expr) nodes.Node {
	t.Helper()
	f, ok := nodes.FactoryFor(kind)
	require.True(t, ok, "no factory for %s", kind)
	padded := make([]expr.Expr, f.MaxArgs-1)
	copy(padded, args)
	n, err := f.New(in, padded)
	require.NoError(t, err)
	return n
}

func apply(t *testing.T, n nodes.Node) (*model.QueryModel, *nodes.ClauseGenerationContext) {
	t.Helper()
	ctx := nodes.NewClauseGenerationContext()
	m, err := n.Apply(nil, ctx)
	require.NoError(t, err)
	return m, ctx
}

func TestWhereThenSelect(t *testing.T) {
	main := people()
	where := nodes.NewWhere(info("p", main), testutil.Lambda(t, "p => p.age > 30", testutil.Person))
	sel := nodes.NewSelect(info("x", where), testutil.Lambda(t, "p => p.name", testutil.Person))

	m, ctx := apply(t, sel)

	assert.Equal(t, "from p in people where ([p].age > 30) select [p].name", m.String())
	require.Len(t, m.BodyClauses, 1)
	assert.IsType(t, &model.WhereClause{}, m.BodyClauses[0])
	assert.Empty(t, m.ResultOperators)
	assert.Equal(t, 1, ctx.Len())
	assert.NoError(t, m.Validate())
}

func TestSelectDistinctCount(t *testing.T) {
	sel := nodes.NewSelect(info("a", people()), testutil.Lambda(t, "p => p.age + 1", testutil.Person))
	distinct := build(t, nodes.KindDistinct, info("b", sel))
	count := build(t, nodes.KindCount, info("c", distinct))

	m, _ := apply(t, count)

	assert.Equal(t, "from p in people select ([p].age + 1) => Distinct() => Count()", m.String())
	require.Len(t, m.ResultOperators, 2)
	assert.IsType(t, &resultop.Distinct{}, m.ResultOperators[0])
	assert.IsType(t, &resultop.Count{}, m.ResultOperators[1])
}

func TestCountWithPredicateAddsWhere(t *testing.T) {
	count := build(t, nodes.KindCount, info("c", people()), testutil.Lambda(t, "p => p.age > 30", testutil.Person))

	m, _ := apply(t, count)

	assert.Equal(t, "from p in people where ([p].age > 30) select [p] => Count()", m.String())
	assert.Len(t, m.BodyClauses, 1)
}

func TestSumWithSelectorAddsSelect(t *testing.T) {
	sum := build(t, nodes.KindSum, info("s", people()), testutil.Lambda(t, "p => p.age", testutil.Person))

	m, _ := apply(t, sum)

	assert.Equal(t, "from p in people select [p].age => Sum()", m.String())
}

func TestClauseAfterStreamingOperatorWrapsModel(t *testing.T) {
	take := build(t, nodes.KindTake, info("q", people()), expr.NewConstant(ir.IRInt(2)))
	where := nodes.NewWhere(info("w", take), testutil.Lambda(t, "q => q.age > 30", testutil.Person))

	m, ctx := apply(t, where)

	assert.Equal(t, "from q in {from p in people select [p] => Take(2)} where ([q].age > 30) select [q]", m.String())
	sub, ok := m.MainFrom.FromExpression.(*model.SubQuery)
	require.True(t, ok)
	assert.Same(t, m, sub.Model.Parent())
	assert.Nil(t, m.Parent())
	assert.Equal(t, testutil.Person, m.MainFrom.ItemType())
	assert.Equal(t, 2, ctx.Len())
	assert.NoError(t, m.Validate())
}

func TestClauseAfterScalarOperatorFails(t *testing.T) {
	count := build(t, nodes.KindCount, info("c", people()))
	where := nodes.NewWhere(info("w", count), testutil.Lambda(t, "x => x > 1", expr.Int))

	_, err := where.Apply(nil, nodes.NewClauseGenerationContext())

	require.ErrorIs(t, err, nodes.ErrNotStreaming)
	var applyErr *nodes.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "call w", applyErr.Call)
}

func TestOrdering(t *testing.T) {
	t.Run("then by extends the order by", func(t *testing.T) {
		ob := nodes.NewOrderBy(info("p", people()), testutil.Lambda(t, "p => p.age", testutil.Person), model.Ascending)
		tb := nodes.NewThenBy(info("p", ob), testutil.Lambda(t, "p => p.name", testutil.Person), model.Descending)

		m, _ := apply(t, tb)

		assert.Equal(t, "from p in people orderby [p].age asc, [p].name desc select [p]", m.String())
		assert.Equal(t, nodes.KindThenByDescending, tb.Kind())
	})

	t.Run("a new order by replaces the old one", func(t *testing.T) {
		first := nodes.NewOrderBy(info("p", people()), testutil.Lambda(t, "p => p.age", testutil.Person), model.Ascending)
		second := nodes.NewOrderBy(info("p", first), testutil.Lambda(t, "p => p.name", testutil.Person), model.Descending)

		m, _ := apply(t, second)

		assert.Equal(t, "from p in people orderby [p].name desc select [p]", m.String())
	})

	t.Run("then by needs an order by right before it", func(t *testing.T) {
		where := nodes.NewWhere(info("p", people()), testutil.Lambda(t, "p => p.age > 1", testutil.Person))
		tb := nodes.NewThenBy(info("p", where), testutil.Lambda(t, "p => p.name", testutil.Person), model.Ascending)

		_, err := tb.Apply(nil, nodes.NewClauseGenerationContext())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "must directly follow OrderBy")
	})
}

func TestJoin(t *testing.T) {
	join := nodes.NewJoin(info("r", people()), testutil.OrdersTable(),
		testutil.Lambda(t, "p => p.name", testutil.Person),
		testutil.Lambda(t, "o => o.customer", testutil.Order),
		testutil.Lambda(t, "(p, o) => {name: p.name, total: o.total}", testutil.Person, testutil.Order),
	)

	m, ctx := apply(t, join)

	assert.Equal(t,
		"from p in people join o in orders on [p].name equals [o].customer select {name: [p].name, total: [o].total}",
		m.String())
	assert.Equal(t, 2, ctx.Len())
	assert.NoError(t, m.Validate())
}

func TestJoinKeyTypesMustBeCompatible(t *testing.T) {
	join := nodes.NewJoin(info("r", people()), testutil.OrdersTable(),
		testutil.Lambda(t, "p => p.name", testutil.Person),
		testutil.Lambda(t, "o => o.id", testutil.Order),
		testutil.Lambda(t, "(p, o) => p", testutil.Person, testutil.Order),
	)

	_, err := join.Apply(nil, nodes.NewClauseGenerationContext())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "join keys have incompatible types")
}

func TestGroupJoin(t *testing.T) {
	gj := nodes.NewGroupJoin(info("r", people()), testutil.OrdersTable(),
		testutil.Lambda(t, "p => p.name", testutil.Person),
		testutil.Lambda(t, "o => o.customer", testutil.Order),
		testutil.Lambda(t, "(p, os) => {name: p.name, orders: os}", testutil.Person, expr.SequenceOf(testutil.Order)),
	)

	m, _ := apply(t, gj)

	assert.Equal(t,
		"from p in people join o in orders on [p].name equals [o].customer into os select {name: [p].name, orders: [os]}",
		m.String())
	assert.Len(t, m.Sources(), 3)
	assert.NoError(t, m.Validate())
}

func TestSelectMany(t *testing.T) {
	param := expr.NewParameter("p", testutil.Person)
	collection := &expr.Lambda{Params: []*expr.Parameter{param}, Body: testutil.OrdersTable()}

	t.Run("with result selector", func(t *testing.T) {
		sm := nodes.NewSelectMany(info("r", people()), collection,
			testutil.Lambda(t, "(p, o) => {name: p.name, id: o.id}", testutil.Person, testutil.Order))

		m, _ := apply(t, sm)

		assert.Equal(t, "from p in people from o in orders select {name: [p].name, id: [o].id}", m.String())
	})

	t.Run("without result selector", func(t *testing.T) {
		sm := nodes.NewSelectMany(info("o", people()), collection, nil)

		m, _ := apply(t, sm)

		assert.Equal(t, "from p in people from o in orders select [o]", m.String())
		assert.Equal(t, testutil.Order, m.Select.Selector.Type())
	})
}

func TestGroupBy(t *testing.T) {
	key := testutil.Lambda(t, "p => p.city", testutil.Person)

	t.Run("as final operator", func(t *testing.T) {
		group := build(t, nodes.KindGroupBy, info("g", people()), key)

		m, ctx := apply(t, group)

		assert.Equal(t, "from p in people select [p] => GroupBy([p].city, [p])", m.String())
		assert.Equal(t, 2, ctx.Len())
	})

	t.Run("followed by a select", func(t *testing.T) {
		group := build(t, nodes.KindGroupBy, info("g", people()), key)
		grouping := expr.GroupingOf(expr.String, testutil.Person)
		sel := nodes.NewSelect(info("x", group), testutil.Lambda(t, "g => g.key", grouping))

		m, _ := apply(t, sel)

		assert.Equal(t, "from g in {from p in people select [p] => GroupBy([p].city, [p])} select [g].key", m.String())
		assert.NoError(t, m.Validate())
	})
}

func TestCastTakesTypeFromTypeArguments(t *testing.T) {
	in := info("c", people())
	in.TypeArgs = []*expr.Type{expr.Any}
	cast := build(t, nodes.KindCast, in)

	m, _ := apply(t, cast)

	assert.Equal(t, "from p in people select [p] => Cast<any>()", m.String())

	f, _ := nodes.FactoryFor(nodes.KindOfType)
	_, err := f.New(info("o", people()), nil)
	assert.Error(t, err)
}

func TestResolveBeforeApplyPanics(t *testing.T) {
	main := people()
	p := expr.NewParameter("p", testutil.Person)

	assert.PanicsWithValue(t,
		"no query source registered for this node; apply() must run before resolve()",
		func() { main.Resolve(p, p, nodes.NewClauseGenerationContext()) })
}

func TestResolveThroughScalarOperatorPanics(t *testing.T) {
	count := build(t, nodes.KindCount, info("c", people()))
	p := expr.NewParameter("c", expr.Int)

	assert.PanicsWithValue(t, nodes.ErrNotStreaming.Error(),
		func() { count.Resolve(p, p, nodes.NewClauseGenerationContext()) })
}

func TestContextRejectsDuplicateRegistration(t *testing.T) {
	main := people()
	ctx := nodes.NewClauseGenerationContext()
	_, err := main.Apply(nil, ctx)
	require.NoError(t, err)

	assert.Panics(t, func() { ctx.Add(main, ctx.Get(main)) })
}

func TestMainSourceMustStartTheChain(t *testing.T) {
	main := people()
	m, ctx := apply(t, main)

	_, err := people().Apply(m, ctx)

	var applyErr *nodes.ApplyError
	assert.ErrorAs(t, err, &applyErr)
}

func TestFactoryArgumentChecks(t *testing.T) {
	tests := []struct {
		name string
		kind registry.Kind
		args []expr.Expr
	}{
		{"where takes one parameter", nodes.KindWhere, []expr.Expr{testutil.Lambda(t, "(a, b) => true", nil, nil)}},
		{"aggregate takes two parameters", nodes.KindAggregate, []expr.Expr{testutil.Lambda(t, "a => a", expr.Int)}},
		{"join result takes two parameters", nodes.KindJoin, []expr.Expr{
			testutil.OrdersTable(),
			testutil.Lambda(t, "p => p", nil),
			testutil.Lambda(t, "o => o", nil),
			testutil.Lambda(t, "p => p", nil),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := nodes.FactoryFor(tt.kind)
			require.True(t, ok)
			args := make([]expr.Expr, f.MaxArgs-1)
			copy(args, tt.args)
			_, err := f.New(info("x", people()), args)
			assert.Error(t, err)
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := nodes.NewDefaultRegistry()

	tests := []struct {
		sig  registry.Signature
		want registry.Kind
	}{
		{nodes.QueryableSignature("Where", 2), nodes.KindWhere},
		{nodes.StandardSignature(nodes.Enumerable, "Select", 2), nodes.KindSelect},
		{nodes.QueryableSignature("Aggregate", 2), nodes.KindAggregate},
		{nodes.QueryableSignature("Aggregate", 3), nodes.KindAggregateFromSeed},
		{nodes.QueryableSignature("ThenByDescending", 2), nodes.KindThenByDescending},
		{registry.Signature{Declaring: "List", Name: "Contains", Arity: 2}, nodes.KindContains},
		{registry.Signature{Declaring: "List", Name: "Count", Arity: 1}, nodes.KindCount},
	}
	for _, tt := range tests {
		t.Run(tt.sig.String(), func(t *testing.T) {
			kind, err := reg.Resolve(tt.sig)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}

	_, err := reg.Resolve(registry.Signature{Declaring: "List", Name: "Frobnicate", Arity: 1})
	assert.ErrorIs(t, err, registry.ErrNoNodeType)
}

func TestEveryStandardKindHasAFactory(t *testing.T) {
	kinds := []registry.Kind{
		nodes.KindWhere, nodes.KindSelect, nodes.KindSelectMany, nodes.KindJoin, nodes.KindGroupJoin,
		nodes.KindOrderBy, nodes.KindOrderByDescending, nodes.KindThenBy, nodes.KindThenByDescending,
		nodes.KindGroupBy, nodes.KindCount, nodes.KindLongCount, nodes.KindSum, nodes.KindAverage,
		nodes.KindMin, nodes.KindMax, nodes.KindAny, nodes.KindAll, nodes.KindContains,
		nodes.KindFirst, nodes.KindFirstOrDefault, nodes.KindLast, nodes.KindLastOrDefault,
		nodes.KindSingle, nodes.KindSingleOrDefault, nodes.KindAggregate, nodes.KindAggregateFromSeed,
		nodes.KindDistinct, nodes.KindTake, nodes.KindSkip, nodes.KindReverse, nodes.KindCast,
		nodes.KindOfType, nodes.KindUnion, nodes.KindConcat, nodes.KindIntersect, nodes.KindExcept,
		nodes.KindDefaultIfEmpty,
	}
	for _, k := range kinds {
		_, ok := nodes.FactoryFor(k)
		assert.True(t, ok, "no factory for %s", k)
	}
}
