package nodes

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/registry"
)

// KindMainSource is the kind of the node that starts every chain. It is
// created by the parser, never looked up in a registry.
const KindMainSource registry.Kind = "MainSource"

// MainSourceNode is the free-standing sequence (or bound placeholder) a
// chain starts from. Applying it creates the model.
type MainSourceNode struct {
	identifier string
	Expression expr.Expr
	ItemType   *expr.Type
}

// NewMainSource creates a main source over a sequence expression.
func NewMainSource(identifier string, sequence expr.Expr, itemType *expr.Type) *MainSourceNode {
	return &MainSourceNode{identifier: identifier, Expression: sequence, ItemType: itemType}
}

func (*MainSourceNode) Kind() registry.Kind { return KindMainSource }

func (*MainSourceNode) Source() Node { return nil }

func (n *MainSourceNode) AssociatedIdentifier() string { return n.identifier }

func (n *MainSourceNode) Resolve(param *expr.Parameter, e expr.Expr, ctx *ClauseGenerationContext) expr.Expr {
	return referenceTo(n, param, e, ctx)
}

// Apply creates an identity model over the sequence. m must be nil.
func (n *MainSourceNode) Apply(m *model.QueryModel, ctx *ClauseGenerationContext) (*model.QueryModel, error) {
	if m != nil {
		return nil, &ApplyError{Call: n.Expression.String(), Err: fmt.Errorf("a main source must start the chain")}
	}
	from := model.NewMainFromClause(n.identifier, n.ItemType, n.Expression)
	ctx.Add(n, from)
	return model.NewIdentity(from), nil
}
