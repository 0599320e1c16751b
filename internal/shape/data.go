package shape

import (
	"fmt"

	"github.com/roach88/qmodel/internal/ir"
)

// Data is streamed run-time data together with its shape.
type Data interface {
	DataShape() Shape
	data()
}

// StreamedSequence holds the items of a sequence shape.
type StreamedSequence struct {
	Items ir.IRArray
	Info  Sequence
}

func (StreamedSequence) data() {}

func (s StreamedSequence) DataShape() Shape { return s.Info }

// StreamedValue holds the value of a single-value or scalar shape.
type StreamedValue struct {
	Value ir.IRValue
	Info  Shape
}

func (StreamedValue) data() {}

func (s StreamedValue) DataShape() Shape { return s.Info }

// Items returns the items of a sequence, or an error naming operator.
func Items(operator string, d Data) (StreamedSequence, error) {
	seq, ok := d.(StreamedSequence)
	if !ok {
		return StreamedSequence{}, fmt.Errorf("%s: expected a streamed sequence, got %s", operator, d.DataShape())
	}
	return seq, nil
}
