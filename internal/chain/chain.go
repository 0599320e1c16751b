// Package chain is the raw call-chain AST a host front-end hands to the
// parser: operator calls whose first argument is their source, ending in a
// free-standing sequence or a bound placeholder.
package chain

import (
	"fmt"
	"strings"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/registry"
)

// Node is one element of a raw call chain.
type Node interface {
	// Text renders the literal call text used in diagnostics.
	Text() string
	chainNode()
}

// Call is an operator invocation. Args[0] is the source; the rest bind to
// the operator's parameter slots positionally. A nil ReturnType marks a
// void call.
type Call struct {
	Signature  registry.Signature
	Args       []Node
	ReturnType *expr.Type
}

func (*Call) chainNode() {}

func (c *Call) Text() string {
	var b strings.Builder
	if len(c.Args) > 0 {
		b.WriteString(c.Args[0].Text())
		b.WriteByte('.')
	}
	b.WriteString(c.Signature.Name)
	if c.Signature.IsClosed() {
		b.WriteString("<" + strings.Join(c.Signature.TypeArgs, ", ") + ">")
	}
	b.WriteByte('(')
	for i := 1; i < len(c.Args); i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(c.Args[i].Text())
	}
	b.WriteByte(')')
	return b.String()
}

// Source returns the call's source argument, or nil for a call without
// arguments.
func (c *Call) Source() Node {
	if len(c.Args) == 0 {
		return nil
	}
	return c.Args[0]
}

// Sequence is a free-standing sequence value, such as a table.
type Sequence struct {
	Expr expr.Expr
}

func (*Sequence) chainNode() {}

func (s *Sequence) Text() string { return s.Expr.String() }

// ItemType is the element type of the sequence.
func (s *Sequence) ItemType() *expr.Type { return expr.ItemType(s.Expr) }

// Placeholder is a sequence bound elsewhere and referenced by parameter.
type Placeholder struct {
	Param *expr.Parameter
}

func (*Placeholder) chainNode() {}

func (p *Placeholder) Text() string { return p.Param.Name }

// ItemType is the element type of the placeholder's sequence type.
func (p *Placeholder) ItemType() *expr.Type { return expr.ItemType(p.Param) }

// Quote is a function literal argument.
type Quote struct {
	Lambda *expr.Lambda
}

func (*Quote) chainNode() {}

func (q *Quote) Text() string { return q.Lambda.String() }

// Func is a compiled or captured function value. It cannot be inspected,
// so operators that need a lambda reject it.
type Func struct {
	Name string
}

func (*Func) chainNode() {}

func (f *Func) Text() string { return f.Name }

// Value is a plain value argument such as a count or a seed.
type Value struct {
	Expr expr.Expr
}

func (*Value) chainNode() {}

func (v *Value) Text() string { return v.Expr.String() }

// Nested embeds a call chain inside an expression, such as a lambda body
// that counts a related sequence. The parser replaces it with a sub-query.
type Nested struct {
	expr.ExtensionBase
	Call *Call
}

func (n *Nested) Type() *expr.Type { return n.Call.ReturnType }

func (n *Nested) String() string { return n.Call.Text() }

func (n *Nested) Children() []expr.Expr { return nil }

func (n *Nested) RewriteChildren(func(expr.Expr) expr.Expr) expr.Expr { return n }

func (n *Nested) Eval(*expr.Env) (ir.IRValue, error) {
	return nil, fmt.Errorf("call chain %s was never parsed", n.Call.Text())
}
