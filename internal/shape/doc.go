// Package shape describes what flows between the elements of a query
// model: a sequence of items, a single item, or a scalar.
//
// Shapes are pure values. Result operators compute their output shape
// from their input shape (see resultop), and a query model threads its
// projection's shape through its operators to get the final one. Nothing
// here is mutated in place; every transformation returns a new value.
//
// Data is the run-time counterpart: a StreamedSequence carries the items
// of a Sequence shape, a StreamedValue the value of a SingleValue or
// Scalar shape.
package shape
