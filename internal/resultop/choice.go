package resultop

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// Pick selects which item a Choice returns.
type Pick int

const (
	PickFirst Pick = iota
	PickLast
	PickSingle
)

var pickNames = [...]string{"First", "Last", "Single"}

func (p Pick) String() string { return pickNames[p] }

// Choice returns one item of the sequence. With OrDefault an empty
// sequence yields the item type's default instead of failing.
// PickSingle fails when more than one item is present.
type Choice struct {
	Pick      Pick
	OrDefault bool
}

func (o *Choice) Name() string {
	if o.OrDefault {
		return o.Pick.String() + "OrDefault"
	}
	return o.Pick.String()
}

func (o *Choice) String() string { return o.Name() + "()" }

func (o *Choice) OutputShape(in shape.Shape) (shape.Shape, error) {
	seq, err := shape.AsSequence(o.Name(), in)
	if err != nil {
		return nil, err
	}
	return shape.SingleValue{T: seq.Item, ReturnDefaultWhenEmpty: o.OrDefault}, nil
}

func (o *Choice) ExecuteInMemory(input shape.Data, _ *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	items := seq.Items
	switch {
	case len(items) == 0 && o.OrDefault:
		return valueResult(seq.Info.Item.Default(), out), nil
	case len(items) == 0:
		return nil, opError(o.Name(), ErrNoElements)
	case o.Pick == PickSingle && len(items) > 1:
		return nil, opError(o.Name(), ErrMoreThanOne)
	}

	var v ir.IRValue
	if o.Pick == PickLast {
		v = items[len(items)-1]
	} else {
		v = items[0]
	}
	return valueResult(v, out), nil
}

func (*Choice) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (o *Choice) Clone(*model.CloneContext) model.ResultOperator {
	return &Choice{Pick: o.Pick, OrDefault: o.OrDefault}
}
