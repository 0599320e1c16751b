package model

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/shape"
)

// ResultOperator post-processes the projected sequence: it aggregates it,
// picks from it, or reshapes it. Implementations live in package resultop.
type ResultOperator interface {
	// Name is the operator name used in renderings, e.g. "Count".
	Name() string
	// OutputShape computes the operator's output from its input shape.
	OutputShape(input shape.Shape) (shape.Shape, error)
	// ExecuteInMemory evaluates the operator over materialized input.
	ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error)
	// TransformExpressions replaces every owned expression with fn(expr).
	TransformExpressions(fn func(expr.Expr) expr.Expr)
	// Clone copies the operator, registering it in ctx first when it is a
	// query source.
	Clone(ctx *CloneContext) ResultOperator
	String() string
}
