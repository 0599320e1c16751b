package resultop

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// Aggregate folds the sequence with Func, seeding the accumulator with
// the first item. It fails on an empty sequence.
//
// Func is a one-parameter lambda over the accumulator whose body refers
// to the current item through query source references, e.g.
// acc => (acc + [x]).
type Aggregate struct {
	Func expr.Expr
}

func (*Aggregate) Name() string     { return "Aggregate" }
func (o *Aggregate) String() string { return render("Aggregate", o.Func) }

func (o *Aggregate) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence("Aggregate", in)
	if err != nil {
		return nil, err
	}
	fn, err := accumulator("Aggregate", o.Func)
	if err != nil {
		return nil, err
	}
	acc := fn.Params[0].T
	if !seq.Item.AssignableTo(acc) {
		return nil, shape.Mismatch("Aggregate", acc, seq.Item, "items cannot seed the accumulator")
	}
	if !fn.Body.Type().AssignableTo(acc) {
		return nil, shape.Mismatch("Aggregate", acc, fn.Body.Type(), "func result does not fit the accumulator")
	}
	return shape.Scalar{T: acc}, nil
}

func (o *Aggregate) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	if len(seq.Items) == 0 {
		return nil, opError(o.Name(), ErrNoElements)
	}
	acc, err := fold(o.Name(), seq, o.Func.(*expr.Lambda), env, seq.Items[0], seq.Items[1:])
	if err != nil {
		return nil, err
	}
	return valueResult(acc, out), nil
}

func (o *Aggregate) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Func = fn(o.Func)
}

func (o *Aggregate) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &Aggregate{Func: o.Func}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}

// AggregateFromSeed folds the sequence with Func starting from Seed. An
// optional ResultSelector maps the final accumulator to the result.
type AggregateFromSeed struct {
	Seed           expr.Expr
	Func           expr.Expr
	ResultSelector expr.Expr
}

func (*AggregateFromSeed) Name() string { return "Aggregate" }

func (o *AggregateFromSeed) String() string {
	if o.ResultSelector == nil {
		return render("Aggregate", o.Seed, o.Func)
	}
	return render("Aggregate", o.Seed, o.Func, o.ResultSelector)
}

func (o *AggregateFromSeed) OutputShape(in shape.Shape) (shape.Shape, error) {
	if _, err := shape.AsSequence("Aggregate", in); err != nil {
		return nil, err
	}
	fn, err := accumulator("Aggregate", o.Func)
	if err != nil {
		return nil, err
	}
	acc := fn.Params[0].T
	if seed := o.Seed.Type(); !typesMatch(seed, acc) {
		return nil, shape.Mismatch("Aggregate", acc, seed, "seed type must match the accumulator type")
	}
	if !fn.Body.Type().AssignableTo(acc) {
		return nil, shape.Mismatch("Aggregate", acc, fn.Body.Type(), "func result does not fit the accumulator")
	}
	if o.ResultSelector == nil {
		return shape.Scalar{T: acc}, nil
	}
	sel, err := accumulator("Aggregate", o.ResultSelector)
	if err != nil {
		return nil, err
	}
	if p := sel.Params[0].T; !typesMatch(p, acc) {
		return nil, shape.Mismatch("Aggregate", acc, p, "result selector must take the accumulator type")
	}
	return shape.Scalar{T: sel.Body.Type()}, nil
}

func (o *AggregateFromSeed) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	seed, err := expr.Eval(o.Seed, env)
	if err != nil {
		return nil, opError(o.Name(), err)
	}
	acc, err := fold(o.Name(), seq, o.Func.(*expr.Lambda), env, seed, seq.Items)
	if err != nil {
		return nil, err
	}
	if o.ResultSelector != nil {
		if acc, err = expr.Invoke(o.ResultSelector.(*expr.Lambda), env, acc); err != nil {
			return nil, opError(o.Name(), err)
		}
	}
	return valueResult(acc, out), nil
}

func (o *AggregateFromSeed) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Seed = fn(o.Seed)
	o.Func = fn(o.Func)
	if o.ResultSelector != nil {
		o.ResultSelector = fn(o.ResultSelector)
	}
}

func (o *AggregateFromSeed) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &AggregateFromSeed{Seed: o.Seed, Func: o.Func, ResultSelector: o.ResultSelector}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}

// accumulator checks that e is a one-parameter lambda.
func accumulator(name string, e expr.Expr) (*expr.Lambda, error) {
	l, ok := e.(*expr.Lambda)
	if !ok || len(l.Params) != 1 {
		return nil, &shape.ShapeError{
			Operator: name,
			Expected: "acc => ...",
			Actual:   e.String(),
			Message:  "expected a lambda over the accumulator",
		}
	}
	return l, nil
}

// typesMatch is exact type identity, with any matching everything.
func typesMatch(a, b *expr.Type) bool {
	return a.Kind == expr.KindAny || b.Kind == expr.KindAny || a.Equal(b)
}

// fold runs acc => body([item]) over items, binding acc and each item in
// turn.
func fold(name string, seq shape.StreamedSequence, fn *expr.Lambda, env *expr.Env, acc ir.IRValue, items ir.IRArray) (ir.IRValue, error) {
	step := itemLambda(seq, fn.Body)
	for i, item := range items {
		next, err := step.eval(env.Bind(fn.Params[0], acc), item)
		if err != nil {
			return nil, opError(name, fmt.Errorf("item %d: %w", i, err))
		}
		acc = next
	}
	return acc, nil
}
