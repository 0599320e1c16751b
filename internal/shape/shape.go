package shape

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
)

// Shape is the sealed descriptor of streamed data.
type Shape interface {
	// DataType is the type of the whole data: seq<T> for sequences, T otherwise.
	DataType() *expr.Type
	String() string
	Equal(other Shape) bool
	shape()
}

// Sequence is a stream of items of type Item. ItemExpression describes one
// item in terms of the query sources that produce it.
type Sequence struct {
	ItemExpression expr.Expr
	Item           *expr.Type
}

// NewSequence derives the item type from the item expression.
func NewSequence(itemExpression expr.Expr) Sequence {
	return Sequence{ItemExpression: itemExpression, Item: itemExpression.Type()}
}

func (Sequence) shape() {}

func (s Sequence) DataType() *expr.Type { return expr.SequenceOf(s.Item) }

func (s Sequence) String() string { return "seq<" + s.Item.String() + ">" }

func (s Sequence) Equal(other Shape) bool {
	o, ok := other.(Sequence)
	if !ok || !s.Item.Equal(o.Item) {
		return false
	}
	return exprText(s.ItemExpression) == exprText(o.ItemExpression)
}

// WithItem returns a sequence of a different item type over the same
// item expression.
func (s Sequence) WithItem(t *expr.Type) Sequence {
	return Sequence{ItemExpression: s.ItemExpression, Item: t}
}

// SingleValue is one item taken from a sequence (First, Last, Single).
type SingleValue struct {
	T                      *expr.Type
	ReturnDefaultWhenEmpty bool
}

func (SingleValue) shape() {}

func (s SingleValue) DataType() *expr.Type { return s.T }

func (s SingleValue) String() string {
	if s.ReturnDefaultWhenEmpty {
		return "single<" + s.T.String() + "> or default"
	}
	return "single<" + s.T.String() + ">"
}

func (s SingleValue) Equal(other Shape) bool {
	o, ok := other.(SingleValue)
	return ok && s.ReturnDefaultWhenEmpty == o.ReturnDefaultWhenEmpty && s.T.Equal(o.T)
}

// Scalar is a value computed from a whole sequence (Count, Sum, Any, ...).
type Scalar struct {
	T *expr.Type
}

func (Scalar) shape() {}

func (s Scalar) DataType() *expr.Type { return s.T }

func (s Scalar) String() string { return "scalar<" + s.T.String() + ">" }

func (s Scalar) Equal(other Shape) bool {
	o, ok := other.(Scalar)
	return ok && s.T.Equal(o.T)
}

// AsSequence returns in as a Sequence or a ShapeError naming operator.
func AsSequence(operator string, in Shape) (Sequence, error) {
	seq, ok := in.(Sequence)
	if !ok {
		return Sequence{}, &ShapeError{
			Operator: operator,
			Expected: "seq<T>",
			Actual:   describe(in),
			Message:  "operator can only follow a sequence",
		}
	}
	return seq, nil
}

// ShapeError reports structurally incompatible shapes or types.
type ShapeError struct {
	Operator string
	Expected string
	Actual   string
	Message  string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("%s: expected %s, got %s", e.Operator, e.Expected, e.Actual)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Mismatch builds a ShapeError from two descriptors.
func Mismatch(operator string, expected, actual fmt.Stringer, format string, args ...any) *ShapeError {
	return &ShapeError{
		Operator: operator,
		Expected: expected.String(),
		Actual:   actual.String(),
		Message:  fmt.Sprintf(format, args...),
	}
}

func describe(s Shape) string {
	if s == nil {
		return "nothing"
	}
	return s.String()
}

func exprText(e expr.Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}
