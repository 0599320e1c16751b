// Package registry maps operator call signatures to the intermediate node
// kinds that understand them.
//
// Two strategies compose through Compound, first match wins:
//
//	SignatureRegistry   exact match on declaring type, name, arity and
//	                    generic arity; closed generic instantiations
//	                    resolve to their open definition
//	NameRegistry        name-only fallback for arbitrary sequence APIs
//
// A registry is configuration: build it once at start-up, then hand it to
// the parser as the read-only Registry interface. Registering while
// parsers are running is not supported.
package registry
