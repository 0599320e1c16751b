package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/chain"
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/nodes"
	"github.com/roach88/qmodel/internal/parse"
)

const tablesCUE = `
table: people: type: "Person{name: string, age: int, city: string}"
table: orders: type: "Order{id: int, customer: string, total: float}"
`

func TestChainRenderings(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "where then select",
			query: `{source: "people", ops: [{op: "Where", args: ["p => p.age > 30"]}, {op: "Select", args: ["p => p.name"]}]}`,
			want:  "from p in people where ([p].age > 30) select [p].name",
		},
		{
			name:  "count with predicate",
			query: `{source: "people", ops: [{op: "Count", args: ["p => p.city == \"oslo\""]}]}`,
			want:  `from p in people where ([p].city == "oslo") select [p] => Count()`,
		},
		{
			name:  "take then where wraps",
			query: `{source: "people", ops: [{op: "Take", args: [2]}, {op: "Where", args: ["p => p.age > 30"]}]}`,
			want:  "from p in {from generated_1 in people select [generated_1] => Take(2)} where ([p].age > 30) select [p]",
		},
		{
			name:  "join",
			query: `{source: "people", ops: [{op: "Join", args: ["orders", "p => p.name", "o => o.customer", "(p, o) => o.id"]}]}`,
			want:  "from p in people join o in orders on [p].name equals [o].customer select [o].id",
		},
		{
			name:  "group join",
			query: `{source: "people", ops: [{op: "GroupJoin", args: ["orders", "p => p.name", "o => o.customer", "(p, os) => os"]}]}`,
			want:  "from p in people join o in orders on [p].name equals [o].customer into os select [os]",
		},
		{
			name:  "select many over a table",
			query: `{source: "people", ops: [{op: "SelectMany", args: ["p => orders", "(p, o) => o.id"]}]}`,
			want:  "from p in people from o in orders select [o].id",
		},
		{
			name:  "seeded aggregate",
			query: `{source: "people", ops: [{op: "Aggregate", args: ["0", "(acc, p) => acc + p.age"]}]}`,
			want:  "from generated_1 in people select [generated_1] => Aggregate(0, acc => (acc + [generated_1].age))",
		},
		{
			name:  "group by then select",
			query: `{source: "people", ops: [{op: "GroupBy", args: ["p => p.city"]}, {op: "Select", args: ["g => g.count"]}]}`,
			want:  "from g in {from p in people select [p] => GroupBy([p].city, [p])} select [g].count",
		},
		{
			name:  "cast with a type argument",
			query: `{source: "people", ops: [{op: "Select", args: ["p => p.age"]}, {op: "Cast", type: "long"}]}`,
			want:  "from p in people select [p].age => Cast<long>()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustCompile(t, tablesCUE+"query: q: "+tt.query)

			root, err := prog.Chain("q")
			require.NoError(t, err)
			m, err := parse.New(nodes.NewDefaultRegistry()).Parse(root)
			require.NoError(t, err)

			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestChainTypesLambdaParameters(t *testing.T) {
	prog := mustCompile(t, tablesCUE+`query: q: {source: "people", ops: [{op: "Select", args: ["p => p.age"]}, {op: "Sum"}]}`)

	root, err := prog.Chain("q")
	require.NoError(t, err)

	sum := root.(*chain.Call)
	assert.Equal(t, expr.Int, sum.ReturnType)
	sel := sum.Source().(*chain.Call)
	assert.Equal(t, expr.SequenceOf(expr.Int), sel.ReturnType)
	quote := sel.Args[1].(*chain.Quote)
	assert.Equal(t, "Person", quote.Lambda.Params[0].Type().Name)
}

func TestChainComposesQueries(t *testing.T) {
	prog := mustCompile(t, tablesCUE+`
query: adults: {source: "people", ops: [{op: "Where", args: ["p => p.age > 30"]}]}
query: young: {source: "people", ops: [{op: "Where", args: ["q => q.age < 20"]}]}
query: adultCount: {source: "adults", ops: [{op: "Count"}]}
query: both: {source: "adults", ops: [{op: "Union", args: ["young"]}]}
`)
	parser := parse.New(nodes.NewDefaultRegistry())

	root, err := prog.Chain("adultCount")
	require.NoError(t, err)
	m, err := parser.Parse(root)
	require.NoError(t, err)
	assert.Equal(t, "from p in people where ([p].age > 30) select [p] => Count()", m.String())

	root, err = prog.Chain("both")
	require.NoError(t, err)
	m, err = parser.Parse(root)
	require.NoError(t, err)
	assert.Equal(t,
		"from p in people where ([p].age > 30) select [p] => Union({from q in people where ([q].age < 20) select [q]})",
		m.String())
}

func TestChainErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{
			name:  "unknown source",
			query: `query: q: {source: "nowhere"}`,
			field: "query.q.source",
		},
		{
			name:  "bad lambda",
			query: `query: q: {source: "people", ops: [{op: "Where", args: ["p => p.age >"]}]}`,
			field: "query.q.ops[0].args[0]",
		},
		{
			name:  "wrong parameter count",
			query: `query: q: {source: "people", ops: [{op: "Where", args: ["(a, b) => a.age > 1"]}]}`,
			field: "query.q.ops[0].args[0]",
		},
		{
			name:  "bad type argument",
			query: `query: q: {source: "people", ops: [{op: "Cast", type: "seq<"}]}`,
			field: "query.q.ops[0].type",
		},
		{
			name:  "self reference",
			query: `query: q: {source: "q"}`,
			field: "query.q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustCompile(t, tablesCUE+tt.query)

			_, err := prog.Chain("q")

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestChainUnknownQuery(t *testing.T) {
	prog := mustCompile(t, tablesCUE+`query: q: {source: "people"}`)

	_, err := prog.Chain("other")

	assert.ErrorContains(t, err, `unknown query "other"`)
}
