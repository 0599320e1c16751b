// Package execute is the boundary between a finished query model and
// whatever runs it.
//
// ARCHITECTURE:
//
//	QueryModel -> OutputShape -> Execute dispatch
//	                               |-- seq<T>       -> ExecuteCollection
//	                               |-- single<T>    -> ExecuteSingle
//	                               +-- scalar<T>    -> ExecuteScalar
//
// A backend implements Executor. InMemory is the fallback that needs no
// backend at all: it evaluates the main source, body clauses and
// projection locally, then hands the projected sequence to each result
// operator's ExecuteInMemory.
//
// CRITICAL PATTERNS:
//
//   - Rows flow as bound environments, one *expr.Env per tuple. A clause
//     that introduces a query source binds it; later expressions read it
//     through QuerySourceRef.
//   - Correlated sub-queries run in the environment of the row that
//     evaluates them, so references to outer sources resolve normally.
//   - Order-by sorts are stable; ties keep their incoming order.
package execute
