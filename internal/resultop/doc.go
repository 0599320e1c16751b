// Package resultop implements the result operators of a query model.
//
// Each operator computes its output shape from its input shape and can
// execute itself over a materialized input sequence:
//
//	Distinct Take Skip Reverse Union Concat      seq<T> -> seq<T>
//	Intersect Except DefaultIfEmpty
//	Cast<U> OfType<U>                            seq<T> -> seq<U>
//	Count LongCount                              seq<T> -> scalar<int|long>
//	Sum Average Min Max                          seq<T> -> scalar<R>
//	Any All Contains                             seq<T> -> scalar<bool>
//	First Last Single (+OrDefault)               seq<T> -> single<T>
//	Aggregate (seeded or not)                    seq<T> -> scalar<R>
//	GroupBy                                      seq<T> -> seq<grouping<K, E>>
//
// Expressions an operator owns (predicates, selectors, seeds) are written
// in terms of query sources. ExecuteInMemory reverse-resolves them against
// the input's item expression to get per-item lambdas.
package resultop
