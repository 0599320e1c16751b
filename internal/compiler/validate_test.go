package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/registry"
)

func shop() *Program {
	person := expr.MustParseType("Person{name: string, age: int}")
	return &Program{
		Tables: []*Table{{Name: "people", Type: person}},
		Queries: []*Query{{
			Name:   "adults",
			Source: "people",
			Ops: []Op{
				{Op: "Where", Args: []string{"p => p.age > 30"}},
				{Op: "Select", Args: []string{"p => p.name"}},
				{Op: "Cast", Type: "string"},
			},
		}},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidProgram(t *testing.T) {
	assert.Empty(t, Validate(shop(), nil))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	prog := shop()
	prog.Tables = append(prog.Tables, &Table{Name: "adults"})
	prog.Queries = append(prog.Queries,
		&Query{Name: "ghost", Source: "nowhere"},
		&Query{Name: "odd", Source: "people", Ops: []Op{
			{Op: "Where"},
			{Op: "Frobnicate", Args: []string{"x => x"}},
			{Op: "OfType"},
			{Args: []string{"1"}},
		}},
		&Query{Name: "loop", Source: "loop"},
	)

	errs := Validate(prog, nil)

	assert.Equal(t, []string{
		ErrMissingTableType,
		ErrDuplicateName,
		ErrUnknownSource,
		ErrUnknownOperator,
		ErrUnknownOperator,
		ErrMissingTypeArg,
		ErrMissingOperator,
		ErrQueryCycle,
	}, codes(errs))
}

func TestValidateFields(t *testing.T) {
	prog := shop()
	prog.Queries[0].Ops[1] = Op{Op: "Select"}

	errs := Validate(prog, nil)

	require.Len(t, errs, 1)
	assert.Equal(t, "query.adults.ops[1].op", errs[0].Field)
	assert.Equal(t, "[E103] query.adults.ops[1].op: no operator Select taking 1 argument(s)", errs[0].Error())
}

func TestValidateUsesTheGivenRegistry(t *testing.T) {
	reg := registry.NewNameRegistry()

	errs := Validate(shop(), reg)

	assert.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, ErrUnknownOperator, e.Code)
	}
}
