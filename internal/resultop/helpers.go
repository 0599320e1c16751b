package resultop

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// streamed returns the input items and the operator's output shape.
func streamed(op model.ResultOperator, input shape.Data) (shape.StreamedSequence, shape.Shape, error) {
	seq, err := shape.Items(op.Name(), input)
	if err != nil {
		return shape.StreamedSequence{}, nil, err
	}
	out, err := op.OutputShape(input.DataShape())
	if err != nil {
		return shape.StreamedSequence{}, nil, err
	}
	return seq, out, nil
}

func sequenceResult(items ir.IRArray, out shape.Shape) shape.Data {
	if items == nil {
		items = ir.IRArray{}
	}
	return shape.StreamedSequence{Items: items, Info: out.(shape.Sequence)}
}

func valueResult(v ir.IRValue, out shape.Shape) shape.Data {
	return shape.StreamedValue{Value: v, Info: out}
}

// itemFunc is an owned expression evaluated against one input item.
type itemFunc struct {
	lambda         *expr.Lambda
	itemExpression expr.Expr
}

func itemLambda(in shape.StreamedSequence, e expr.Expr) itemFunc {
	return itemFunc{lambda: model.ReverseResolve(in.Info.ItemExpression, e), itemExpression: in.Info.ItemExpression}
}

// bind binds item to the lambda parameter and to the query sources it
// came from, so nested models referencing those sources see it.
func (f itemFunc) bind(env *expr.Env, item ir.IRValue) *expr.Env {
	return model.BindItem(env, f.itemExpression, item).Bind(f.lambda.Params[0], item)
}

func (f itemFunc) eval(env *expr.Env, item ir.IRValue) (ir.IRValue, error) {
	return expr.Eval(f.lambda.Body, f.bind(env, item))
}

// valueSet is a hash set of IRValues consistent with ir.Equal.
type valueSet struct {
	buckets map[uint64][]ir.IRValue
}

func newValueSet() *valueSet {
	return &valueSet{buckets: make(map[uint64][]ir.IRValue)}
}

// Add inserts v and reports whether it was new.
func (s *valueSet) Add(v ir.IRValue) bool {
	h := ir.Hash(v)
	for _, existing := range s.buckets[h] {
		if ir.Equal(existing, v) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], v)
	return true
}

func (s *valueSet) Contains(v ir.IRValue) bool {
	for _, existing := range s.buckets[ir.Hash(v)] {
		if ir.Equal(existing, v) {
			return true
		}
	}
	return false
}

func isNull(v ir.IRValue) bool {
	switch v.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}

// render formats "Name(arg, arg)".
func render(name string, args ...expr.Expr) string {
	s := name + "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}
