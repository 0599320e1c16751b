package shape

import (
	"testing"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceShape(t *testing.T) {
	p := expr.NewParameter("p", expr.Int)
	seq := NewSequence(p)

	assert.Same(t, expr.Int, seq.Item)
	assert.Equal(t, "seq<int>", seq.String())
	assert.Equal(t, "seq<int>", seq.DataType().String())

	widened := seq.WithItem(expr.Long)
	assert.Equal(t, "seq<long>", widened.String())
	assert.Same(t, seq.ItemExpression, widened.ItemExpression)
	assert.Same(t, expr.Int, seq.Item, "WithItem must not modify the receiver")
}

func TestShapeEquality(t *testing.T) {
	p := expr.NewParameter("p", expr.Int)

	tests := []struct {
		name  string
		a, b  Shape
		equal bool
	}{
		{"same sequence", NewSequence(p), NewSequence(p), true},
		{"sequence item type", NewSequence(p), NewSequence(p).WithItem(expr.Long), false},
		{"single default flag", SingleValue{T: expr.Int}, SingleValue{T: expr.Int, ReturnDefaultWhenEmpty: true}, false},
		{"scalar", Scalar{T: expr.Bool}, Scalar{T: expr.Bool}, true},
		{"scalar vs single", Scalar{T: expr.Int}, SingleValue{T: expr.Int}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestShapeStrings(t *testing.T) {
	assert.Equal(t, "single<string>", SingleValue{T: expr.String}.String())
	assert.Equal(t, "single<string> or default", SingleValue{T: expr.String, ReturnDefaultWhenEmpty: true}.String())
	assert.Equal(t, "scalar<long>", Scalar{T: expr.Long}.String())
}

func TestAsSequence(t *testing.T) {
	p := expr.NewParameter("p", expr.Int)
	seq, err := AsSequence("Distinct", NewSequence(p))
	require.NoError(t, err)
	assert.Equal(t, "seq<int>", seq.String())

	_, err = AsSequence("Distinct", Scalar{T: expr.Int})
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "seq<T>", shapeErr.Expected)
	assert.Equal(t, "scalar<int>", shapeErr.Actual)
	assert.Equal(t, "Distinct: expected seq<T>, got scalar<int>: operator can only follow a sequence", err.Error())
}

func TestItems(t *testing.T) {
	p := expr.NewParameter("p", expr.Int)
	data := StreamedSequence{Items: ir.IRArray{ir.IRInt(1)}, Info: NewSequence(p)}

	seq, err := Items("Count", data)
	require.NoError(t, err)
	assert.Len(t, seq.Items, 1)

	_, err = Items("Count", StreamedValue{Value: ir.IRInt(1), Info: Scalar{T: expr.Int}})
	assert.EqualError(t, err, "Count: expected a streamed sequence, got scalar<int>")
}
