package nodes

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/registry"
	"github.com/roach88/qmodel/internal/resultop"
)

// Node kinds.
const (
	KindWhere             registry.Kind = "Where"
	KindSelect            registry.Kind = "Select"
	KindSelectMany        registry.Kind = "SelectMany"
	KindJoin              registry.Kind = "Join"
	KindGroupJoin         registry.Kind = "GroupJoin"
	KindOrderBy           registry.Kind = "OrderBy"
	KindOrderByDescending registry.Kind = "OrderByDescending"
	KindThenBy            registry.Kind = "ThenBy"
	KindThenByDescending  registry.Kind = "ThenByDescending"
	KindGroupBy           registry.Kind = "GroupBy"
	KindCount             registry.Kind = "Count"
	KindLongCount         registry.Kind = "LongCount"
	KindSum               registry.Kind = "Sum"
	KindAverage           registry.Kind = "Average"
	KindMin               registry.Kind = "Min"
	KindMax               registry.Kind = "Max"
	KindAny               registry.Kind = "Any"
	KindAll               registry.Kind = "All"
	KindContains          registry.Kind = "Contains"
	KindFirst             registry.Kind = "First"
	KindFirstOrDefault    registry.Kind = "FirstOrDefault"
	KindLast              registry.Kind = "Last"
	KindLastOrDefault     registry.Kind = "LastOrDefault"
	KindSingle            registry.Kind = "Single"
	KindSingleOrDefault   registry.Kind = "SingleOrDefault"
	KindAggregate         registry.Kind = "Aggregate"
	KindAggregateFromSeed registry.Kind = "AggregateFromSeed"
	KindDistinct          registry.Kind = "Distinct"
	KindTake              registry.Kind = "Take"
	KindSkip              registry.Kind = "Skip"
	KindReverse           registry.Kind = "Reverse"
	KindCast              registry.Kind = "Cast"
	KindOfType            registry.Kind = "OfType"
	KindUnion             registry.Kind = "Union"
	KindConcat            registry.Kind = "Concat"
	KindIntersect         registry.Kind = "Intersect"
	KindExcept            registry.Kind = "Except"
	KindDefaultIfEmpty    registry.Kind = "DefaultIfEmpty"
)

// Factory describes how to construct one node kind from call arguments.
type Factory struct {
	// MinArgs and MaxArgs bound the argument count, source included.
	MinArgs, MaxArgs int
	// Lambdas lists the argument positions (source = 0) that must hold
	// function literals when present.
	Lambdas []int
	// New builds the node. args holds arguments 1..MaxArgs-1; omitted
	// trailing arguments are nil. Lambda positions hold *expr.Lambda.
	New func(info ParseInfo, args []expr.Expr) (Node, error)
}

// IsLambdaSlot reports whether argument position i must be a function
// literal.
func (f Factory) IsLambdaSlot(i int) bool {
	for _, l := range f.Lambdas {
		if l == i {
			return true
		}
	}
	return false
}

// FactoryFor returns the factory of kind.
func FactoryFor(kind registry.Kind) (Factory, bool) {
	f, ok := factories[kind]
	return f, ok
}

func lambdaAt(args []expr.Expr, i int) *expr.Lambda {
	if args[i] == nil {
		return nil
	}
	return args[i].(*expr.Lambda)
}

func singleParam(l *expr.Lambda) error {
	if len(l.Params) != 1 {
		return fmt.Errorf("%s takes %d parameters, want 1", l, len(l.Params))
	}
	return nil
}

func params(l *expr.Lambda, want int) error {
	if len(l.Params) != want {
		return fmt.Errorf("%s takes %d parameters, want %d", l, len(l.Params), want)
	}
	return nil
}

// filtered puts a synthesized Where node in front of a result operator
// that was called with a predicate.
func filtered(info ParseInfo, predicate *expr.Lambda) (ParseInfo, error) {
	if predicate == nil {
		return info, nil
	}
	if err := singleParam(predicate); err != nil {
		return info, err
	}
	where := NewWhere(ParseInfo{Identifier: predicate.Params[0].Name, Source: info.Source, CallText: info.CallText}, predicate)
	info.Source = where
	return info, nil
}

// projected puts a synthesized Select node in front of a result operator
// that was called with a selector.
func projected(info ParseInfo, selector *expr.Lambda) (ParseInfo, error) {
	if selector == nil {
		return info, nil
	}
	if err := singleParam(selector); err != nil {
		return info, err
	}
	sel := NewSelect(ParseInfo{Identifier: selector.Params[0].Name, Source: info.Source, CallText: info.CallText}, selector)
	info.Source = sel
	return info, nil
}

// scalar builds a factory for a non-streaming operator without
// expressions, optionally preceded by a Where or Select node.
func scalar(kind registry.Kind, optional func(ParseInfo, *expr.Lambda) (ParseInfo, error), op func() model.ResultOperator) Factory {
	f := Factory{MinArgs: 1, MaxArgs: 1}
	if optional != nil {
		f.MaxArgs, f.Lambdas = 2, []int{1}
	}
	f.New = func(info ParseInfo, args []expr.Expr) (Node, error) {
		if optional != nil {
			var err error
			if info, err = optional(info, lambdaAt(args, 0)); err != nil {
				return nil, err
			}
		}
		return newResultNode(kind, info, false, func(*ResultOperatorNode, *ClauseGenerationContext) (model.ResultOperator, error) {
			return op(), nil
		}), nil
	}
	return f
}

// streaming builds a factory for a sequence-preserving operator taking
// plain value arguments.
func streaming(kind registry.Kind, minArgs, maxArgs int, op func(args []expr.Expr) (model.ResultOperator, error)) Factory {
	return Factory{
		MinArgs: minArgs,
		MaxArgs: maxArgs,
		New: func(info ParseInfo, args []expr.Expr) (Node, error) {
			return newResultNode(kind, info, true, func(*ResultOperatorNode, *ClauseGenerationContext) (model.ResultOperator, error) {
				return op(args)
			}), nil
		},
	}
}

func choice(kind registry.Kind, pick resultop.Pick, orDefault bool) Factory {
	return scalar(kind, filtered, func() model.ResultOperator {
		return &resultop.Choice{Pick: pick, OrDefault: orDefault}
	})
}

func typed(kind registry.Kind, op func(t *expr.Type) model.ResultOperator) Factory {
	return Factory{
		MinArgs: 1,
		MaxArgs: 1,
		New: func(info ParseInfo, _ []expr.Expr) (Node, error) {
			var t *expr.Type
			switch {
			case len(info.TypeArgs) > 0:
				t = info.TypeArgs[0]
			case info.ResultType != nil && info.ResultType.Kind == expr.KindSequence:
				t = info.ResultType.Elem
			default:
				return nil, fmt.Errorf("%s requires a type argument", kind)
			}
			return newResultNode(kind, info, true, func(*ResultOperatorNode, *ClauseGenerationContext) (model.ResultOperator, error) {
				return op(t), nil
			}), nil
		},
	}
}

var factories = map[registry.Kind]Factory{
	KindWhere: {MinArgs: 2, MaxArgs: 2, Lambdas: []int{1}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		pred := lambdaAt(args, 0)
		if err := singleParam(pred); err != nil {
			return nil, err
		}
		return NewWhere(info, pred), nil
	}},
	KindSelect: {MinArgs: 2, MaxArgs: 2, Lambdas: []int{1}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		sel := lambdaAt(args, 0)
		if err := singleParam(sel); err != nil {
			return nil, err
		}
		return NewSelect(info, sel), nil
	}},
	KindSelectMany: {MinArgs: 2, MaxArgs: 3, Lambdas: []int{1, 2}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		collection, result := lambdaAt(args, 0), lambdaAt(args, 1)
		if err := singleParam(collection); err != nil {
			return nil, err
		}
		if result != nil {
			if err := params(result, 2); err != nil {
				return nil, err
			}
		}
		return NewSelectMany(info, collection, result), nil
	}},
	KindJoin: {MinArgs: 5, MaxArgs: 5, Lambdas: []int{2, 3, 4}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		outerKey, innerKey, result, err := joinArgs(args)
		if err != nil {
			return nil, err
		}
		return NewJoin(info, args[0], outerKey, innerKey, result), nil
	}},
	KindGroupJoin: {MinArgs: 5, MaxArgs: 5, Lambdas: []int{2, 3, 4}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		outerKey, innerKey, result, err := joinArgs(args)
		if err != nil {
			return nil, err
		}
		return NewGroupJoin(info, args[0], outerKey, innerKey, result), nil
	}},
	KindOrderBy:           ordering(NewOrderBy, model.Ascending),
	KindOrderByDescending: ordering(NewOrderBy, model.Descending),
	KindThenBy:            ordering(NewThenBy, model.Ascending),
	KindThenByDescending:  ordering(NewThenBy, model.Descending),
	KindGroupBy: {MinArgs: 2, MaxArgs: 3, Lambdas: []int{1, 2}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		key, element := lambdaAt(args, 0), lambdaAt(args, 1)
		if err := singleParam(key); err != nil {
			return nil, err
		}
		if element != nil {
			if err := singleParam(element); err != nil {
				return nil, err
			}
		}
		return newResultNode(KindGroupBy, info, true, func(n *ResultOperatorNode, ctx *ClauseGenerationContext) (model.ResultOperator, error) {
			if err := n.resolvableSource(); err != nil {
				return nil, err
			}
			k := resolveLambda(n.source, key, ctx)
			var e expr.Expr
			if element != nil {
				e = resolveLambda(n.source, element, ctx)
			} else {
				e = n.source.Resolve(key.Params[0], key.Params[0], ctx)
			}
			return resultop.NewGroup(n.identifier, k, e), nil
		}), nil
	}},

	KindCount:     scalar(KindCount, filtered, func() model.ResultOperator { return &resultop.Count{} }),
	KindLongCount: scalar(KindLongCount, filtered, func() model.ResultOperator { return &resultop.LongCount{} }),
	KindAny:       scalar(KindAny, filtered, func() model.ResultOperator { return &resultop.Any{} }),
	KindSum:       scalar(KindSum, projected, func() model.ResultOperator { return &resultop.Sum{} }),
	KindAverage:   scalar(KindAverage, projected, func() model.ResultOperator { return &resultop.Average{} }),
	KindMin:       scalar(KindMin, projected, func() model.ResultOperator { return &resultop.Min{} }),
	KindMax:       scalar(KindMax, projected, func() model.ResultOperator { return &resultop.Max{} }),

	KindFirst:           choice(KindFirst, resultop.PickFirst, false),
	KindFirstOrDefault:  choice(KindFirstOrDefault, resultop.PickFirst, true),
	KindLast:            choice(KindLast, resultop.PickLast, false),
	KindLastOrDefault:   choice(KindLastOrDefault, resultop.PickLast, true),
	KindSingle:          choice(KindSingle, resultop.PickSingle, false),
	KindSingleOrDefault: choice(KindSingleOrDefault, resultop.PickSingle, true),

	KindAll: {MinArgs: 2, MaxArgs: 2, Lambdas: []int{1}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		pred := lambdaAt(args, 0)
		if err := singleParam(pred); err != nil {
			return nil, err
		}
		return newResultNode(KindAll, info, false, func(n *ResultOperatorNode, ctx *ClauseGenerationContext) (model.ResultOperator, error) {
			if err := n.resolvableSource(); err != nil {
				return nil, err
			}
			return &resultop.All{Predicate: resolveLambda(n.source, pred, ctx)}, nil
		}), nil
	}},
	KindContains: {MinArgs: 2, MaxArgs: 2, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		return newResultNode(KindContains, info, false, func(*ResultOperatorNode, *ClauseGenerationContext) (model.ResultOperator, error) {
			return &resultop.Contains{Item: args[0]}, nil
		}), nil
	}},
	KindAggregate: {MinArgs: 2, MaxArgs: 2, Lambdas: []int{1}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		fn := lambdaAt(args, 0)
		if err := params(fn, 2); err != nil {
			return nil, err
		}
		return newResultNode(KindAggregate, info, false, func(n *ResultOperatorNode, ctx *ClauseGenerationContext) (model.ResultOperator, error) {
			if err := n.resolvableSource(); err != nil {
				return nil, err
			}
			return &resultop.Aggregate{Func: accumulate(n, fn, ctx)}, nil
		}), nil
	}},
	KindAggregateFromSeed: {MinArgs: 3, MaxArgs: 4, Lambdas: []int{2, 3}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		seed, fn, result := args[0], lambdaAt(args, 1), lambdaAt(args, 2)
		if err := params(fn, 2); err != nil {
			return nil, err
		}
		if result != nil {
			if err := singleParam(result); err != nil {
				return nil, err
			}
		}
		return newResultNode(KindAggregateFromSeed, info, false, func(n *ResultOperatorNode, ctx *ClauseGenerationContext) (model.ResultOperator, error) {
			if err := n.resolvableSource(); err != nil {
				return nil, err
			}
			op := &resultop.AggregateFromSeed{Seed: seed, Func: accumulate(n, fn, ctx)}
			if result != nil {
				op.ResultSelector = result
			}
			return op, nil
		}), nil
	}},

	KindDistinct: streaming(KindDistinct, 1, 1, func([]expr.Expr) (model.ResultOperator, error) { return &resultop.Distinct{}, nil }),
	KindReverse:  streaming(KindReverse, 1, 1, func([]expr.Expr) (model.ResultOperator, error) { return &resultop.Reverse{}, nil }),
	KindTake:     streaming(KindTake, 2, 2, func(args []expr.Expr) (model.ResultOperator, error) { return &resultop.Take{Count: args[0]}, nil }),
	KindSkip:     streaming(KindSkip, 2, 2, func(args []expr.Expr) (model.ResultOperator, error) { return &resultop.Skip{Count: args[0]}, nil }),
	KindUnion:    streaming(KindUnion, 2, 2, func(args []expr.Expr) (model.ResultOperator, error) { return resultop.NewUnion(args[0]), nil }),
	KindConcat:   streaming(KindConcat, 2, 2, func(args []expr.Expr) (model.ResultOperator, error) { return resultop.NewConcat(args[0]), nil }),
	KindIntersect: streaming(KindIntersect, 2, 2, func(args []expr.Expr) (model.ResultOperator, error) {
		return resultop.NewIntersect(args[0]), nil
	}),
	KindExcept: streaming(KindExcept, 2, 2, func(args []expr.Expr) (model.ResultOperator, error) { return resultop.NewExcept(args[0]), nil }),
	KindDefaultIfEmpty: streaming(KindDefaultIfEmpty, 1, 2, func(args []expr.Expr) (model.ResultOperator, error) {
		return &resultop.DefaultIfEmpty{Default: args[0]}, nil
	}),
	KindCast:   typed(KindCast, func(t *expr.Type) model.ResultOperator { return &resultop.Cast{T: t} }),
	KindOfType: typed(KindOfType, func(t *expr.Type) model.ResultOperator { return &resultop.OfType{T: t} }),
}

func ordering(build func(ParseInfo, *expr.Lambda, model.Direction) *OrderByNode, dir model.Direction) Factory {
	return Factory{MinArgs: 2, MaxArgs: 2, Lambdas: []int{1}, New: func(info ParseInfo, args []expr.Expr) (Node, error) {
		key := lambdaAt(args, 0)
		if err := singleParam(key); err != nil {
			return nil, err
		}
		return build(info, key, dir), nil
	}}
}

func joinArgs(args []expr.Expr) (outerKey, innerKey, result *expr.Lambda, err error) {
	outerKey, innerKey, result = lambdaAt(args, 1), lambdaAt(args, 2), lambdaAt(args, 3)
	if err = singleParam(outerKey); err != nil {
		return
	}
	if err = singleParam(innerKey); err != nil {
		return
	}
	err = params(result, 2)
	return
}

// accumulate turns (acc, x) => body into acc => body', with x resolved
// against n's source.
func accumulate(n *ResultOperatorNode, fn *expr.Lambda, ctx *ClauseGenerationContext) *expr.Lambda {
	body := n.source.Resolve(fn.Params[1], fn.Body, ctx)
	return &expr.Lambda{Params: []*expr.Parameter{fn.Params[0]}, Body: body}
}
