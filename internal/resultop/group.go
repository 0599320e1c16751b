package resultop

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/shape"
)

// Group partitions the sequence by KeySelector, projecting each member
// through ElementSelector. Groups appear in the order their keys are
// first seen. A Group is a query source: clauses following it refer to
// one grouping through a reference to the operator.
type Group struct {
	name            string
	KeySelector     expr.Expr
	ElementSelector expr.Expr
}

// NewGroup creates a group-by whose groupings are named name.
func NewGroup(name string, keySelector, elementSelector expr.Expr) *Group {
	return &Group{name: name, KeySelector: keySelector, ElementSelector: elementSelector}
}

func (*Group) Name() string { return "GroupBy" }

func (o *Group) String() string { return render("GroupBy", o.KeySelector, o.ElementSelector) }

func (o *Group) ItemName() string { return o.name }

func (o *Group) ItemType() *expr.Type {
	return expr.GroupingOf(o.KeySelector.Type(), o.ElementSelector.Type())
}

func (o *Group) OutputShape(in shape.Shape) (shape.Shape, error) {
	if _, err := shape.AsSequence("GroupBy", in); err != nil {
		return nil, err
	}
	return shape.NewSequence(model.NewRef(o)), nil
}

func (o *Group) ExecuteInMemory(input shape.Data, env *expr.Env) (shape.Data, error) {
	seq, out, err := streamed(o, input)
	if err != nil {
		return nil, err
	}
	keyOf := itemLambda(seq, o.KeySelector)
	elementOf := itemLambda(seq, o.ElementSelector)

	index := make(map[uint64][]int)
	var groups []ir.IRGrouping
	for _, item := range seq.Items {
		key, err := keyOf.eval(env, item)
		if err != nil {
			return nil, opError(o.Name(), err)
		}
		elem, err := elementOf.eval(env, item)
		if err != nil {
			return nil, opError(o.Name(), err)
		}
		h := ir.Hash(key)
		found := -1
		for _, gi := range index[h] {
			if ir.Equal(groups[gi].Key, key) {
				found = gi
				break
			}
		}
		if found < 0 {
			found = len(groups)
			index[h] = append(index[h], found)
			groups = append(groups, ir.IRGrouping{Key: key})
		}
		groups[found].Elements = append(groups[found].Elements, elem)
	}

	items := make(ir.IRArray, len(groups))
	for i, g := range groups {
		items[i] = g
	}
	return sequenceResult(items, out), nil
}

func (o *Group) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.KeySelector = fn(o.KeySelector)
	o.ElementSelector = fn(o.ElementSelector)
}

// Clone registers the copy before adjusting its selectors.
func (o *Group) Clone(ctx *model.CloneContext) model.ResultOperator {
	out := NewGroup(o.name, o.KeySelector, o.ElementSelector)
	ctx.Mapping.Add(o, out)
	out.TransformExpressions(ctx.AdjustReferences)
	return out
}
