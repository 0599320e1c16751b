// Package nodes implements the intermediate nodes a call chain is parsed
// into before it becomes a query model.
//
// ARCHITECTURE:
//
// The parser builds one node per operator call, inside-out, so every node
// holds its source node:
//
//	people.Where(p => p.age > 30).Select(p => p.name).Count()
//
//	MainSource(people) <- Where <- Select <- Count
//
// Turning the chain into a model is a two-step protocol:
//
//   - Apply(model, ctx) first applies the source node, then adds this
//     node's clause or result operator to the model. Nodes that introduce
//     a query source (MainSource, SelectMany, Join, GroupJoin, GroupBy)
//     register it in the ClauseGenerationContext.
//   - Resolve(param, e, ctx) rewrites e, written in terms of the node's
//     output item param, into an expression over query sources. Nodes
//     forward to their source before substituting; source-introducing
//     nodes substitute a reference to the source they registered.
//
// CRITICAL PATTERNS:
//   - A clause node whose source is a streaming result operator (Take,
//     Distinct, GroupBy, ...) wraps the model built so far into a
//     sub-query and starts a new model over it.
//   - Optional predicates and selectors of result operators (Count(p),
//     Sum(sel)) become Where and Select nodes in front of the operator.
//   - Resolving an unapplied node, resolving through a scalar operator,
//     and registering a node twice are contract violations and panic.
//   - Node kinds are built from a factory table keyed by registry.Kind.
//     NewDefaultRegistry maps the standard operator signatures to them.
package nodes
