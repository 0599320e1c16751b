package execute

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// Execution failures.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrNotASequence  = errors.New("value is not a sequence")
	ErrShapeMismatch = errors.New("model output does not match the requested execution")
)

// Executor runs finished query models. Each entry point matches one
// output shape kind.
type Executor interface {
	ExecuteScalar(ctx context.Context, m *model.QueryModel) (ir.IRValue, error)
	ExecuteSingle(ctx context.Context, m *model.QueryModel, returnDefaultWhenEmpty bool) (ir.IRValue, error)
	ExecuteCollection(ctx context.Context, m *model.QueryModel) (ir.IRArray, error)
}

// Execute runs m through the entry point its output shape selects and
// returns the result together with that shape.
func Execute(ctx context.Context, ex Executor, m *model.QueryModel) (shape.Data, error) {
	out, err := m.OutputShape()
	if err != nil {
		return nil, fmt.Errorf("output shape: %w", err)
	}

	switch s := out.(type) {
	case shape.Sequence:
		items, err := ex.ExecuteCollection(ctx, m)
		if err != nil {
			return nil, err
		}
		return shape.StreamedSequence{Items: items, Info: s}, nil
	case shape.SingleValue:
		v, err := ex.ExecuteSingle(ctx, m, s.ReturnDefaultWhenEmpty)
		if err != nil {
			return nil, err
		}
		return shape.StreamedValue{Value: v, Info: s}, nil
	case shape.Scalar:
		v, err := ex.ExecuteScalar(ctx, m)
		if err != nil {
			return nil, err
		}
		return shape.StreamedValue{Value: v, Info: s}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported output shape %s", ErrShapeMismatch, out)
	}
}

// Result converts executed data to a plain value: the items of a
// sequence, or the single value.
func Result(d shape.Data) ir.IRValue {
	switch v := d.(type) {
	case shape.StreamedSequence:
		if v.Items == nil {
			return ir.IRArray{}
		}
		return v.Items
	case shape.StreamedValue:
		if v.Value == nil {
			return ir.IRNull{}
		}
		return v.Value
	default:
		return ir.IRNull{}
	}
}
