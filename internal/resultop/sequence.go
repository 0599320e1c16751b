package resultop

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// Distinct drops repeated items, keeping the first occurrence.
type Distinct struct{}

func (*Distinct) Name() string   { return "Distinct" }
func (*Distinct) String() string { return "Distinct()" }

func (*Distinct) OutputShape(in shape.Shape) (shape.Shape, error) {
	return shape.AsSequence("Distinct", in)
}

func (o *Distinct) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	seen := newValueSet()
	var items ir.IRArray
	for _, item := range seq.Items {
		if seen.Add(item) {
			items = append(items, item)
		}
	}
	return sequenceResult(items, out), nil
}

func (*Distinct) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Distinct) Clone(*model.CloneContext) model.ResultOperator { return &Distinct{} }

// Reverse inverts the order of the items.
type Reverse struct{}

func (*Reverse) Name() string   { return "Reverse" }
func (*Reverse) String() string { return "Reverse()" }

func (*Reverse) OutputShape(in shape.Shape) (shape.Shape, error) {
	return shape.AsSequence("Reverse", in)
}

func (o *Reverse) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	items := make(ir.IRArray, len(seq.Items))
	for i, item := range seq.Items {
		items[len(items)-1-i] = item
	}
	return sequenceResult(items, out), nil
}

func (*Reverse) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Reverse) Clone(*model.CloneContext) model.ResultOperator { return &Reverse{} }

// Take keeps the first Count items.
type Take struct {
	Count expr.Expr
}

func (*Take) Name() string     { return "Take" }
func (o *Take) String() string { return render("Take", o.Count) }

func (o *Take) OutputShape(in shape.Shape) (shape.Shape, error) {
	return countedShape("Take", o.Count, in)
}

func (o *Take) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	n, err := evalCount(o.Name(), o.Count, env, len(seq.Items))
	if err != nil {
		return nil, err
	}
	return sequenceResult(seq.Items[:n:n], out), nil
}

func (o *Take) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Count = fn(o.Count)
}

func (o *Take) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &Take{Count: o.Count}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}

// Skip drops the first Count items.
type Skip struct {
	Count expr.Expr
}

func (*Skip) Name() string     { return "Skip" }
func (o *Skip) String() string { return render("Skip", o.Count) }

func (o *Skip) OutputShape(in shape.Shape) (shape.Shape, error) {
	return countedShape("Skip", o.Count, in)
}

func (o *Skip) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	n, err := evalCount(o.Name(), o.Count, env, len(seq.Items))
	if err != nil {
		return nil, err
	}
	return sequenceResult(seq.Items[n:], out), nil
}

func (o *Skip) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Count = fn(o.Count)
}

func (o *Skip) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &Skip{Count: o.Count}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}

// countedShape validates a Take/Skip count: a non-negative integer
// constant.
func countedShape(name string, count expr.Expr, in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence(name, in)
	if err != nil {
		return nil, err
	}
	c, ok := count.(*expr.Constant)
	if !ok {
		return nil, &shape.ShapeError{
			Operator: name,
			Expected: "constant count",
			Actual:   count.String(),
			Message:  "count must be known before execution",
		}
	}
	n, ok := c.Value.(ir.IRInt)
	if !ok {
		return nil, shape.Mismatch(name, expr.Int, c.Type(), "count must be an integer")
	}
	if n < 0 {
		return nil, &shape.ShapeError{
			Operator: name,
			Expected: "count >= 0",
			Actual:   c.String(),
			Message:  "count must not be negative",
		}
	}
	return seq, nil
}

// evalCount evaluates a count and clamps it to [0, limit].
func evalCount(name string, count expr.Expr, env *expr.Env, limit int) (int, error) {
	v, err := expr.Eval(count, env)
	if err != nil {
		return 0, opError(name, err)
	}
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, opError(name, fmt.Errorf("count evaluated to %s, want int", ir.KindName(v)))
	}
	return int(max(0, min(int64(n), int64(limit)))), nil
}

// Cast converts every item to T. A value that cannot be converted fails
// execution.
type Cast struct {
	T *expr.Type
}

func (*Cast) Name() string     { return "Cast" }
func (o *Cast) String() string { return "Cast<" + o.T.String() + ">()" }

func (o *Cast) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence("Cast", in)
	if err != nil {
		return nil, err
	}
	return seq.WithItem(o.T), nil
}

func (o *Cast) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	items := make(ir.IRArray, len(seq.Items))
	for i, item := range seq.Items {
		if items[i], err = o.T.Convert(item); err != nil {
			return nil, opError(o.Name(), fmt.Errorf("item %d: %w", i, err))
		}
	}
	return sequenceResult(items, out), nil
}

func (*Cast) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (o *Cast) Clone(*model.CloneContext) model.ResultOperator { return &Cast{T: o.T} }

// OfType keeps the items that are instances of T.
type OfType struct {
	T *expr.Type
}

func (*OfType) Name() string     { return "OfType" }
func (o *OfType) String() string { return "OfType<" + o.T.String() + ">()" }

func (o *OfType) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence("OfType", in)
	if err != nil {
		return nil, err
	}
	return seq.WithItem(o.T), nil
}

func (o *OfType) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	var items ir.IRArray
	for _, item := range seq.Items {
		if o.T.Accepts(item) {
			items = append(items, item)
		}
	}
	return sequenceResult(items, out), nil
}

func (*OfType) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (o *OfType) Clone(*model.CloneContext) model.ResultOperator { return &OfType{T: o.T} }

// DefaultIfEmpty replaces an empty sequence with a one-item sequence
// holding Default, or the item type's default when Default is nil.
type DefaultIfEmpty struct {
	Default expr.Expr
}

func (*DefaultIfEmpty) Name() string { return "DefaultIfEmpty" }

func (o *DefaultIfEmpty) String() string {
	if o.Default == nil {
		return "DefaultIfEmpty()"
	}
	return render("DefaultIfEmpty", o.Default)
}

func (o *DefaultIfEmpty) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence("DefaultIfEmpty", in)
	if err != nil {
		return nil, err
	}
	if o.Default != nil && !o.Default.Type().AssignableTo(seq.Item) {
		return nil, shape.Mismatch("DefaultIfEmpty", seq.Item, o.Default.Type(), "default value does not fit the item type")
	}
	return seq, nil
}

func (o *DefaultIfEmpty) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	if len(seq.Items) > 0 {
		return sequenceResult(seq.Items, out), nil
	}
	v := seq.Info.Item.Default()
	if o.Default != nil {
		if v, err = expr.Eval(o.Default, env); err != nil {
			return nil, opError(o.Name(), err)
		}
	}
	return sequenceResult(ir.IRArray{v}, out), nil
}

func (o *DefaultIfEmpty) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	if o.Default != nil {
		o.Default = fn(o.Default)
	}
}

func (o *DefaultIfEmpty) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &DefaultIfEmpty{Default: o.Default}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}
