package compiler

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// Table is a named source of rows. Rows are optional; a table without
// inline rows is read from the store at run time.
type Table struct {
	Name string
	Type *expr.Type
	Rows ir.IRArray
}

// Op is one operator call in a query pipeline.
//
// Args are written as text: a lambda ("p => p.age > 30"), a table or
// query name (a sequence argument), or a closed value ("2", "{a: 1}").
// Type is the type argument of Cast and OfType; on other operators it
// overrides the inferred result type.
type Op struct {
	Op   string   `yaml:"op" json:"op"`
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
	Type string   `yaml:"type,omitempty" json:"type,omitempty"`
}

// Query is a named pipeline of operator calls over a source, which is
// a table or another query.
type Query struct {
	Name   string
	Source string
	Ops    []Op
}

// Program is a compiled set of tables and queries, in declaration order.
type Program struct {
	Tables  []*Table
	Queries []*Query
}

// Table returns the table called name, or nil.
func (p *Program) Table(name string) *Table {
	for _, t := range p.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Query returns the query called name, or nil.
func (p *Program) Query(name string) *Query {
	for _, q := range p.Queries {
		if q.Name == name {
			return q
		}
	}
	return nil
}

// Rows returns the inline rows of every table that declares some,
// keyed by table name.
func (p *Program) Rows() map[string]ir.IRArray {
	rows := make(map[string]ir.IRArray)
	for _, t := range p.Tables {
		if t.Rows != nil {
			rows[t.Name] = t.Rows
		}
	}
	return rows
}
