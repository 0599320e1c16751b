package model

import (
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
)

// QuerySourceMapping maps original query sources to their copies while a
// model is cloned. Lookups fall back to an optional read-only outer
// mapping, which carries sources of enclosing models.
//
// Registering a source twice or getting a source that was never registered
// is a programming error and panics.
type QuerySourceMapping struct {
	entries map[expr.QuerySource]expr.QuerySource
	outer   *QuerySourceMapping
}

// NewQuerySourceMapping creates an empty mapping over outer (may be nil).
func NewQuerySourceMapping(outer *QuerySourceMapping) *QuerySourceMapping {
	return &QuerySourceMapping{entries: make(map[expr.QuerySource]expr.QuerySource), outer: outer}
}

// Add registers old -> replacement in this mapping.
func (m *QuerySourceMapping) Add(old, replacement expr.QuerySource) {
	if _, exists := m.entries[old]; exists {
		panic(fmt.Sprintf("query source [%s] is already mapped", old.ItemName()))
	}
	m.entries[old] = replacement
}

// Lookup finds the replacement for old here or in an outer mapping.
func (m *QuerySourceMapping) Lookup(old expr.QuerySource) (expr.QuerySource, bool) {
	for cur := m; cur != nil; cur = cur.outer {
		if r, ok := cur.entries[old]; ok {
			return r, true
		}
	}
	return nil, false
}

// Contains reports whether old is mapped here or in an outer mapping.
func (m *QuerySourceMapping) Contains(old expr.QuerySource) bool {
	_, ok := m.Lookup(old)
	return ok
}

// Get returns the replacement for old and panics when there is none.
func (m *QuerySourceMapping) Get(old expr.QuerySource) expr.QuerySource {
	r, ok := m.Lookup(old)
	if !ok {
		panic(fmt.Sprintf("query source [%s] is not mapped", old.ItemName()))
	}
	return r
}

// Len returns the number of local entries.
func (m *QuerySourceMapping) Len() int { return len(m.entries) }

// CloneContext carries the mapping and the model under construction
// through a clone pass.
type CloneContext struct {
	Mapping *QuerySourceMapping
	// Owner is the clone being built; nested sub-query clones get it as
	// their parent.
	Owner *QueryModel
}

// NewCloneContext creates a context over mapping.
func NewCloneContext(mapping *QuerySourceMapping) *CloneContext {
	return &CloneContext{Mapping: mapping}
}

// AdjustReferences rewrites e so that references to mapped sources point
// at their replacements, and nested sub-queries are cloned with the
// current mapping as their outer mapping. Unmapped references are kept.
func (ctx *CloneContext) AdjustReferences(e expr.Expr) expr.Expr {
	return expr.Rewrite(e, func(n expr.Expr) expr.Expr {
		switch node := n.(type) {
		case *QuerySourceRef:
			if r, ok := ctx.Mapping.Lookup(node.Source); ok {
				return NewRef(r)
			}
		case *SubQuery:
			clone := node.Model.CloneWith(ctx.Mapping)
			if ctx.Owner != nil {
				clone.SetParent(ctx.Owner)
			}
			return NewSubQuery(clone)
		}
		return n
	})
}

func (ctx *CloneContext) adjust(e expr.Expr) expr.Expr {
	return ctx.AdjustReferences(e)
}
