// Package parse turns a raw call chain into a query model.
//
// ARCHITECTURE:
//
//	chain.Node --ParseTree--> nodes.Node --Apply--> model.QueryModel
//
// ParseTree walks the chain inside-out: the source argument of every call
// is parsed first, down to a free-standing sequence or a bound placeholder
// that becomes the main source. Each call's signature is resolved through
// a registry.Registry to a node kind, and the kind's nodes.Factory binds
// the call's arguments positionally.
//
// Each node's identifier comes from the parameter name of the first
// single-parameter function literal of the call that consumes it, so
// people.Where(p => ...) names the main source p. When there is none the
// parser generates generated_0, generated_1, ... (numbered per Parser).
//
// Call chains in argument positions (Union(other.Where(...))) and chains
// embedded in function literal bodies are parsed into SubQuery
// expressions.
//
// CRITICAL PATTERNS:
//   - Every failure is a *ParseError naming the offending call text and
//     wrapping one of the Err* sentinels.
//   - A Parser is not safe for concurrent use. Cache serializes access to
//     its parser and hands out clones of cached models.
//   - Chains deeper than the configured maximum fail with ErrTooDeep
//     instead of exhausting the stack.
package parse
