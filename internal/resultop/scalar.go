package resultop

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
	"github.com/shopspring/decimal"
)

// Count returns the number of items as an int.
type Count struct{}

func (*Count) Name() string   { return "Count" }
func (*Count) String() string { return "Count()" }

func (*Count) OutputShape(in shape.Shape) (shape.Shape, error) {
	if _, err := shape.AsSequence("Count", in); err != nil {
		return nil, err
	}
	return shape.Scalar{T: expr.Int}, nil
}

func (o *Count) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	return valueResult(ir.IRInt(len(seq.Items)), out), nil
}

func (*Count) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Count) Clone(*model.CloneContext) model.ResultOperator { return &Count{} }

// LongCount returns the number of items as a long.
type LongCount struct{}

func (*LongCount) Name() string   { return "LongCount" }
func (*LongCount) String() string { return "LongCount()" }

func (*LongCount) OutputShape(in shape.Shape) (shape.Shape, error) {
	if _, err := shape.AsSequence("LongCount", in); err != nil {
		return nil, err
	}
	return shape.Scalar{T: expr.Long}, nil
}

func (o *LongCount) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	return valueResult(ir.IRInt(len(seq.Items)), out), nil
}

func (*LongCount) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*LongCount) Clone(*model.CloneContext) model.ResultOperator { return &LongCount{} }

// numericInput checks that in is a sequence of numbers.
func numericInput(name string, in shape.Shape, verb string) (shape.Sequence, error) {
	seq, err := shape.AsSequence(name, in)
	if err != nil {
		return shape.Sequence{}, err
	}
	if seq.Item.Kind != expr.KindAny && !seq.Item.IsNumeric() {
		return shape.Sequence{}, &shape.ShapeError{
			Operator: name,
			Expected: "seq<int|long|float>",
			Actual:   seq.String(),
			Message:  fmt.Sprintf("no %s is defined for %s", verb, seq.Item),
		}
	}
	return seq, nil
}

// Sum adds the items. Nulls are skipped; an empty sequence sums to zero.
type Sum struct{}

func (*Sum) Name() string   { return "Sum" }
func (*Sum) String() string { return "Sum()" }

func (*Sum) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := numericInput("Sum", in, "summation")
	if err != nil {
		return nil, err
	}
	return shape.Scalar{T: seq.Item}, nil
}

func (o *Sum) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	var total ir.IRValue = out.DataType().Default()
	if isNull(total) {
		total = ir.IRInt(0)
	}
	for _, item := range seq.Items {
		if isNull(item) {
			continue
		}
		if total, err = expr.Apply(expr.OpAdd, total, item); err != nil {
			return nil, opError(o.Name(), err)
		}
	}
	return valueResult(total, out), nil
}

func (*Sum) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Sum) Clone(*model.CloneContext) model.ResultOperator { return &Sum{} }

// Average computes the arithmetic mean. Integral items widen to float.
type Average struct{}

func (*Average) Name() string   { return "Average" }
func (*Average) String() string { return "Average()" }

func (*Average) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := numericInput("Average", in, "averaging")
	if err != nil {
		return nil, err
	}
	if seq.Item.Kind == expr.KindAny {
		return shape.Scalar{T: expr.Any}, nil
	}
	return shape.Scalar{T: expr.Float}, nil
}

func (o *Average) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	if len(seq.Items) == 0 {
		return nil, opError(o.Name(), ErrNoElements)
	}
	sum := decimal.Zero
	n := 0
	for _, item := range seq.Items {
		if isNull(item) {
			continue
		}
		d, ok := ir.AsDecimal(item)
		if !ok {
			return nil, opError(o.Name(), fmt.Errorf("cannot average %s value", ir.KindName(item)))
		}
		sum = sum.Add(d)
		n++
	}
	if n == 0 {
		return valueResult(ir.IRNull{}, out), nil
	}
	return valueResult(ir.NewIRDecimal(sum.Div(decimal.NewFromInt(int64(n)))), out), nil
}

func (*Average) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Average) Clone(*model.CloneContext) model.ResultOperator { return &Average{} }

// Min returns the smallest item.
type Min struct{}

func (*Min) Name() string   { return "Min" }
func (*Min) String() string { return "Min()" }

func (*Min) OutputShape(in shape.Shape) (shape.Shape, error) { return extremeShape("Min", in) }

func (o *Min) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	return extreme(o, input, -1)
}

func (*Min) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Min) Clone(*model.CloneContext) model.ResultOperator { return &Min{} }

// Max returns the largest item.
type Max struct{}

func (*Max) Name() string   { return "Max" }
func (*Max) String() string { return "Max()" }

func (*Max) OutputShape(in shape.Shape) (shape.Shape, error) { return extremeShape("Max", in) }

func (o *Max) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	return extreme(o, input, 1)
}

func (*Max) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Max) Clone(*model.CloneContext) model.ResultOperator { return &Max{} }

func extremeShape(name string, in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence(name, in)
	if err != nil {
		return nil, err
	}
	switch seq.Item.Kind {
	case expr.KindRecord, expr.KindGrouping, expr.KindSequence:
		return nil, &shape.ShapeError{
			Operator: name,
			Expected: "seq<comparable>",
			Actual:   seq.String(),
			Message:  fmt.Sprintf("%s values are not ordered", seq.Item.Kind),
		}
	}
	return shape.Scalar{T: seq.Item}, nil
}

// extreme keeps the item whose comparison against the current best has
// sign want. Nulls are skipped.
func extreme(op model.ResultOperator, input shape.Data, want int) (shape.Data, error) {
	seq, out, err := streamed(op, input)
	if err != nil {
		return nil, err
	}
	if len(seq.Items) == 0 {
		return nil, opError(op.Name(), ErrNoElements)
	}
	var best ir.IRValue = ir.IRNull{}
	for _, item := range seq.Items {
		if isNull(item) {
			continue
		}
		if isNull(best) {
			best = item
			continue
		}
		c, err := ir.Compare(item, best)
		if err != nil {
			return nil, opError(op.Name(), err)
		}
		if c == want {
			best = item
		}
	}
	return valueResult(best, out), nil
}

// Any reports whether the sequence has at least one item. A predicate
// given to Any in a chain becomes a where clause in front of it.
type Any struct{}

func (*Any) Name() string   { return "Any" }
func (*Any) String() string { return "Any()" }

func (*Any) OutputShape(in shape.Shape) (shape.Shape, error) {
	if _, err := shape.AsSequence("Any", in); err != nil {
		return nil, err
	}
	return shape.Scalar{T: expr.Bool}, nil
}

func (o *Any) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	return valueResult(ir.IRBool(len(seq.Items) > 0), out), nil
}

func (*Any) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Any) Clone(*model.CloneContext) model.ResultOperator { return &Any{} }

// All reports whether every item satisfies Predicate.
type All struct {
	Predicate expr.Expr
}

func (*All) Name() string     { return "All" }
func (o *All) String() string { return render("All", o.Predicate) }

func (o *All) OutputShape(in shape.Shape) (shape.Shape, error) {
	if _, err := shape.AsSequence("All", in); err != nil {
		return nil, err
	}
	if t := o.Predicate.Type(); t.Kind != expr.KindBool && t.Kind != expr.KindAny {
		return nil, shape.Mismatch("All", expr.Bool, t, "predicate must produce bool")
	}
	return shape.Scalar{T: expr.Bool}, nil
}

func (o *All) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	pred := itemLambda(seq, o.Predicate)
	for _, item := range seq.Items {
		ok, err := expr.EvalBool(pred.lambda.Body, pred.bind(env, item))
		if err != nil {
			return nil, opError(o.Name(), err)
		}
		if !ok {
			return valueResult(ir.IRBool(false), out), nil
		}
	}
	return valueResult(ir.IRBool(true), out), nil
}

func (o *All) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Predicate = fn(o.Predicate)
}

func (o *All) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &All{Predicate: o.Predicate}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}

// Contains reports whether Item occurs in the sequence.
type Contains struct {
	Item expr.Expr
}

func (*Contains) Name() string     { return "Contains" }
func (o *Contains) String() string { return render("Contains", o.Item) }

func (o *Contains) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence("Contains", in)
	if err != nil {
		return nil, err
	}
	if it := o.Item.Type(); !it.AssignableTo(seq.Item) && !seq.Item.AssignableTo(it) {
		return nil, shape.Mismatch("Contains", seq.Item, it, "item is not compatible with the sequence's items")
	}
	return shape.Scalar{T: expr.Bool}, nil
}

func (o *Contains) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	want, err := expr.Eval(o.Item, env)
	if err != nil {
		return nil, opError(o.Name(), err)
	}
	for _, item := range seq.Items {
		if ir.Equal(item, want) {
			return valueResult(ir.IRBool(true), out), nil
		}
	}
	return valueResult(ir.IRBool(false), out), nil
}

func (o *Contains) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Item = fn(o.Item)
}

func (o *Contains) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &Contains{Item: o.Item}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}
