package resultop

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// setKind selects the combination performed by a SetOperator.
type setKind int

const (
	setUnion setKind = iota
	setConcat
	setIntersect
	setExcept
)

var setNames = [...]string{"Union", "Concat", "Intersect", "Except"}

// SetOperator combines the input with a second sequence, Source2.
// Union, Intersect and Except produce distinct items; Concat keeps
// duplicates. Items keep their first-seen order.
type SetOperator struct {
	kind    setKind
	Source2 expr.Expr
}

// NewUnion returns the operator for the union of input and source2.
func NewUnion(source2 expr.Expr) *SetOperator { return &SetOperator{kind: setUnion, Source2: source2} }

// NewConcat returns the operator appending source2 to the input.
func NewConcat(source2 expr.Expr) *SetOperator { return &SetOperator{kind: setConcat, Source2: source2} }

// NewIntersect returns the operator keeping input items found in source2.
func NewIntersect(source2 expr.Expr) *SetOperator {
	return &SetOperator{kind: setIntersect, Source2: source2}
}

// NewExcept returns the operator for input minus source2.
func NewExcept(source2 expr.Expr) *SetOperator { return &SetOperator{kind: setExcept, Source2: source2} }

func (o *SetOperator) Name() string   { return setNames[o.kind] }
func (o *SetOperator) String() string { return render(o.Name(), o.Source2) }

func (o *SetOperator) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence(o.Name(), in)
	if err != nil {
		return nil, err
	}
	t := o.Source2.Type()
	var other *expr.Type
	switch t.Kind {
	case expr.KindSequence:
		other = t.Elem
	case expr.KindAny:
		other = expr.Any
	default:
		return nil, shape.Mismatch(o.Name(), seq.DataType(), t, "second source must be a sequence")
	}
	switch o.kind {
	case setUnion, setConcat:
		// The result keeps the input's item type, so added items must fit it.
		if !other.AssignableTo(seq.Item) {
			return nil, shape.Mismatch(o.Name(), seq.DataType(), t, "second source items do not fit the input item type")
		}
	default:
		if expr.Widen(seq.Item, other) == nil {
			return nil, shape.Mismatch(o.Name(), seq.DataType(), t, "sources have incompatible item types")
		}
	}
	return seq, nil
}

func (o *SetOperator) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	v, err := expr.Eval(o.Source2, env)
	if err != nil {
		return nil, opError(o.Name(), err)
	}
	second, ok := v.(ir.IRArray)
	if !ok {
		return nil, opError(o.Name(), fmt.Errorf("second source evaluated to %s, want array", ir.KindName(v)))
	}

	var items ir.IRArray
	switch o.kind {
	case setConcat:
		items = make(ir.IRArray, 0, len(seq.Items)+len(second))
		items = append(append(items, seq.Items...), second...)
	case setUnion:
		seen := newValueSet()
		for _, item := range append(append(ir.IRArray{}, seq.Items...), second...) {
			if seen.Add(item) {
				items = append(items, item)
			}
		}
	case setIntersect, setExcept:
		other := newValueSet()
		for _, item := range second {
			other.Add(item)
		}
		keep := o.kind == setIntersect
		seen := newValueSet()
		for _, item := range seq.Items {
			if other.Contains(item) == keep && seen.Add(item) {
				items = append(items, item)
			}
		}
	}
	return sequenceResult(items, out), nil
}

func (o *SetOperator) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Source2 = fn(o.Source2)
}

func (o *SetOperator) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := &SetOperator{kind: o.kind, Source2: o.Source2}
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}
