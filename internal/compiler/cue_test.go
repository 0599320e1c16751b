package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

const shopCUE = `
table: people: {
	type: "Person{name: string, age: int, city: string}"
	rows: [
		{name: "ann", age: 34, city: "oslo"},
		{name: "bob", age: 27, city: "rome"},
	]
}

table: orders: {
	type: "Order{id: int, customer: string, total: float}"
	rows: [{id: 1, customer: "ann", total: 12.50}]
}

table: archive: {
	type: "Person{name: string, age: int, city: string}"
}

query: adults: {
	source: "people"
	ops: [
		{op: "Where", args: ["p => p.age > 30"]},
		{op: "Select", args: ["p => p.name"]},
	]
}

query: firstTwo: {
	source: "people"
	ops: [{op: "Take", args: [2]}]
}

query: ages: {
	source: "people"
	ops: [
		{op: "Select", args: ["p => p.age"]},
		{op: "Cast", type: "long"},
	]
}
`

func compileString(t *testing.T, src string) (*Program, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("shop.cue"))
	require.NoError(t, v.Err())
	return Compile(v)
}

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := compileString(t, src)
	require.NoError(t, err)
	return prog
}

func TestCompileProgram(t *testing.T) {
	prog := mustCompile(t, shopCUE)

	require.Len(t, prog.Tables, 3)
	require.Len(t, prog.Queries, 3)

	people := prog.Table("people")
	require.NotNil(t, people)
	assert.Equal(t, "Person{name: string, age: int, city: string}", people.Type.String())
	require.Len(t, people.Rows, 2)
	want := ir.NewIRObjectFromPairs(
		ir.O("name", ir.IRString("ann")),
		ir.O("age", ir.IRInt(34)),
		ir.O("city", ir.IRString("oslo")),
	)
	assert.True(t, ir.Equal(want, people.Rows[0]))

	adults := prog.Query("adults")
	require.NotNil(t, adults)
	assert.Equal(t, "people", adults.Source)
	assert.Equal(t, []Op{
		{Op: "Where", Args: []string{"p => p.age > 30"}},
		{Op: "Select", Args: []string{"p => p.name"}},
	}, adults.Ops)

	assert.Equal(t, []Op{{Op: "Take", Args: []string{"2"}}}, prog.Query("firstTwo").Ops)
	assert.Equal(t, "long", prog.Query("ages").Ops[1].Type)
	assert.Nil(t, prog.Query("missing"))
}

func TestCompileKeepsDecimalDigits(t *testing.T) {
	prog := mustCompile(t, shopCUE)

	total := prog.Table("orders").Rows[0].(ir.IRObject)["total"]

	want, err := ir.ParseIRDecimal("12.50")
	require.NoError(t, err)
	assert.True(t, ir.Equal(want, total))
}

func TestProgramRowsSkipsTablesWithoutRows(t *testing.T) {
	prog := mustCompile(t, shopCUE)

	rows := prog.Rows()

	assert.Len(t, rows, 2)
	assert.Contains(t, rows, "people")
	assert.Contains(t, rows, "orders")
	assert.NotContains(t, rows, "archive")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "no queries",
			src:   `table: t: {type: "int"}`,
			field: "query",
		},
		{
			name:  "missing source",
			src:   `query: q: {ops: []}`,
			field: "query.q.source",
		},
		{
			name:  "missing op name",
			src:   `query: q: {source: "t", ops: [{args: ["x => x"]}]}`,
			field: "query.q.ops[0].op",
		},
		{
			name:  "missing table type",
			src:   `table: t: {rows: []}` + "\n" + `query: q: {source: "t"}`,
			field: "table.t.type",
		},
		{
			name:  "bad table type",
			src:   `table: t: {type: "seq<"}` + "\n" + `query: q: {source: "t"}`,
			field: "table.t.type",
		},
		{
			name:  "row is not an object",
			src:   `table: t: {type: "T{a: int}", rows: [1]}` + "\n" + `query: q: {source: "t"}`,
			field: "table.t.rows[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileString(t, tt.src)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileErrorCarriesPosition(t *testing.T) {
	_, err := compileString(t, "query: q: {\n\tops: []\n}\n")

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.True(t, compileErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "source is required")
}

func TestCompileRejectsNonConcreteSource(t *testing.T) {
	_, err := compileString(t, `query: q: {source: string}`)

	require.Error(t, err)
}

func TestCompileTableUntypedRows(t *testing.T) {
	prog := mustCompile(t, `
table: nums: {
	type: "int"
	rows: [1, 2, 3]
}
query: all: {source: "nums"}
`)

	assert.Equal(t, expr.Int, prog.Table("nums").Type)
	assert.Len(t, prog.Table("nums").Rows, 3)
	assert.Empty(t, prog.Query("all").Ops)
}
