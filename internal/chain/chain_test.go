package chain

import (
	"testing"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallText(t *testing.T) {
	person := expr.MustParseType("{name: string, age: int}")
	people := &Sequence{Expr: &expr.Table{Name: "people", T: expr.SequenceOf(person)}}

	pred, err := expr.ParseLambda("p => p.age > 30", person)
	require.NoError(t, err)

	where := &Call{
		Signature:  registry.Signature{Declaring: "Queryable", Name: "Where", Arity: 2, GenericArity: 1},
		Args:       []Node{people, &Quote{Lambda: pred}},
		ReturnType: expr.SequenceOf(person),
	}
	take := &Call{
		Signature:  registry.Signature{Declaring: "Queryable", Name: "Take", Arity: 2, GenericArity: 1},
		Args:       []Node{where, &Value{Expr: expr.NewConstant(ir.IRInt(2))}},
		ReturnType: expr.SequenceOf(person),
	}

	assert.Equal(t, "people.Where(p => (p.age > 30)).Take(2)", take.Text())
	assert.Same(t, where, take.Source())
	assert.Same(t, person, people.ItemType())
}

func TestClosedCallText(t *testing.T) {
	src := &Placeholder{Param: expr.NewParameter("xs", expr.SequenceOf(expr.Int))}
	cast := &Call{
		Signature: registry.Signature{Declaring: "Queryable", Name: "Cast", Arity: 1, GenericArity: 1, TypeArgs: []string{"long"}},
		Args:      []Node{src},
	}
	assert.Equal(t, "xs.Cast<long>()", cast.Text())
	assert.Same(t, expr.Int, src.ItemType())
}
