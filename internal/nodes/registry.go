package nodes

import (
	"github.com/roach88/qmodel/internal/registry"
)

// Declaring types of the standard operators.
const (
	Queryable  = "Queryable"
	Enumerable = "Enumerable"
)

// standardOperator lists one overload of a standard operator: its
// argument count (source included) and generic arity.
type standardOperator struct {
	kind         registry.Kind
	name         string
	arity        int
	genericArity int
}

var standardOperators = []standardOperator{
	{KindWhere, "Where", 2, 1},
	{KindSelect, "Select", 2, 2},
	{KindSelectMany, "SelectMany", 2, 2},
	{KindSelectMany, "SelectMany", 3, 3},
	{KindJoin, "Join", 5, 4},
	{KindGroupJoin, "GroupJoin", 5, 4},
	{KindOrderBy, "OrderBy", 2, 2},
	{KindOrderByDescending, "OrderByDescending", 2, 2},
	{KindThenBy, "ThenBy", 2, 2},
	{KindThenByDescending, "ThenByDescending", 2, 2},
	{KindGroupBy, "GroupBy", 2, 2},
	{KindGroupBy, "GroupBy", 3, 3},
	{KindCount, "Count", 1, 1},
	{KindCount, "Count", 2, 1},
	{KindLongCount, "LongCount", 1, 1},
	{KindLongCount, "LongCount", 2, 1},
	{KindSum, "Sum", 1, 0},
	{KindSum, "Sum", 2, 1},
	{KindAverage, "Average", 1, 0},
	{KindAverage, "Average", 2, 1},
	{KindMin, "Min", 1, 1},
	{KindMin, "Min", 2, 2},
	{KindMax, "Max", 1, 1},
	{KindMax, "Max", 2, 2},
	{KindAny, "Any", 1, 1},
	{KindAny, "Any", 2, 1},
	{KindAll, "All", 2, 1},
	{KindContains, "Contains", 2, 1},
	{KindFirst, "First", 1, 1},
	{KindFirst, "First", 2, 1},
	{KindFirstOrDefault, "FirstOrDefault", 1, 1},
	{KindFirstOrDefault, "FirstOrDefault", 2, 1},
	{KindLast, "Last", 1, 1},
	{KindLast, "Last", 2, 1},
	{KindLastOrDefault, "LastOrDefault", 1, 1},
	{KindLastOrDefault, "LastOrDefault", 2, 1},
	{KindSingle, "Single", 1, 1},
	{KindSingle, "Single", 2, 1},
	{KindSingleOrDefault, "SingleOrDefault", 1, 1},
	{KindSingleOrDefault, "SingleOrDefault", 2, 1},
	{KindAggregate, "Aggregate", 2, 1},
	{KindAggregateFromSeed, "Aggregate", 3, 2},
	{KindAggregateFromSeed, "Aggregate", 4, 3},
	{KindDistinct, "Distinct", 1, 1},
	{KindTake, "Take", 2, 1},
	{KindSkip, "Skip", 2, 1},
	{KindReverse, "Reverse", 1, 1},
	{KindCast, "Cast", 1, 1},
	{KindOfType, "OfType", 1, 1},
	{KindUnion, "Union", 2, 1},
	{KindConcat, "Concat", 2, 1},
	{KindIntersect, "Intersect", 2, 1},
	{KindExcept, "Except", 2, 1},
	{KindDefaultIfEmpty, "DefaultIfEmpty", 1, 1},
	{KindDefaultIfEmpty, "DefaultIfEmpty", 2, 1},
}

// QueryableSignature returns the signature of the standard operator name
// taking arity arguments (source included), declared on Queryable. An
// unknown operator gets generic arity 0.
func QueryableSignature(name string, arity int) registry.Signature {
	return StandardSignature(Queryable, name, arity)
}

// StandardSignature is QueryableSignature for any declaring type.
func StandardSignature(declaring, name string, arity int) registry.Signature {
	sig := registry.Signature{Declaring: declaring, Name: name, Arity: arity}
	for _, op := range standardOperators {
		if op.name == name && op.arity == arity {
			sig.GenericArity = op.genericArity
			break
		}
	}
	return sig
}

// NewDefaultRegistry maps every standard operator overload on Queryable
// and Enumerable to its node kind. Contains and Count on any other
// declaring type fall back to a name match.
//
// The registry is built once and must not be changed after it is shared.
func NewDefaultRegistry() registry.Registry {
	exact := registry.NewSignatureRegistry()
	for _, op := range standardOperators {
		for _, declaring := range []string{Queryable, Enumerable} {
			exact.Register(op.kind, registry.Signature{
				Declaring:    declaring,
				Name:         op.name,
				Arity:        op.arity,
				GenericArity: op.genericArity,
			})
		}
	}

	byName := registry.NewNameRegistry()
	byName.Register(KindContains, "Contains")
	byName.Register(KindCount, "Count")

	return registry.Compound{exact, byName}
}
