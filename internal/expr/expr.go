package expr

import (
	"strings"

	"github.com/roach88/qmodel/internal/ir"
)

// Expr is a node of an expression tree.
// The built-in nodes are Constant, Parameter, Lambda, Binary, Unary,
// Member, Record and Table. Other packages add nodes by embedding
// ExtensionBase and implementing Extension.
type Expr interface {
	Type() *Type
	String() string
	exprNode()
}

// Extension is a node defined outside this package (query source
// references, nested sub-queries). Rewrite, Walk and Eval dispatch to it.
type Extension interface {
	Expr
	// Children returns the sub-expressions Rewrite and Walk descend into.
	Children() []Expr
	// RewriteChildren returns a copy with each child replaced by fn(child),
	// or the receiver itself when nothing changed.
	RewriteChildren(fn func(Expr) Expr) Expr
	Eval(env *Env) (ir.IRValue, error)
}

// ExtensionBase seals an Extension into the Expr hierarchy.
type ExtensionBase struct{}

func (ExtensionBase) exprNode() {}

// QuerySource is anything a reference can point at: a from clause, a
// join, a group-by result. Implemented in package model.
type QuerySource interface {
	ItemName() string
	ItemType() *Type
}

// Constant is a literal value.
type Constant struct {
	Value ir.IRValue
	T     *Type
}

// NewConstant infers the constant's type from its value.
func NewConstant(v ir.IRValue) *Constant {
	return &Constant{Value: v, T: TypeOfValue(v)}
}

func (c *Constant) exprNode()   {}
func (c *Constant) Type() *Type { return c.T }
func (c *Constant) String() string {
	if s, ok := c.Value.(ir.IRString); ok {
		return quote(string(s))
	}
	b, err := ir.MarshalIRValue(c.Value)
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// TypeOfValue returns the most specific type for a run-time value.
func TypeOfValue(v ir.IRValue) *Type {
	switch v.(type) {
	case ir.IRInt:
		return Int
	case ir.IRDecimal:
		return Float
	case ir.IRBool:
		return Bool
	case ir.IRString:
		return String
	default:
		return Any
	}
}

// Parameter is a named lambda parameter or a placeholder for the item
// flowing out of an operator. Parameters compare by identity.
type Parameter struct {
	Name string
	T    *Type
}

// NewParameter creates a parameter; a nil type means any.
func NewParameter(name string, t *Type) *Parameter {
	if t == nil {
		t = Any
	}
	return &Parameter{Name: name, T: t}
}

func (p *Parameter) exprNode()      {}
func (p *Parameter) Type() *Type    { return p.T }
func (p *Parameter) String() string { return p.Name }

// Lambda is a function literal.
type Lambda struct {
	Params []*Parameter
	Body   Expr
}

func (l *Lambda) exprNode() {}

// Type is the type of the lambda's result.
func (l *Lambda) Type() *Type { return l.Body.Type() }

func (l *Lambda) String() string {
	if len(l.Params) == 1 {
		return l.Params[0].Name + " => " + l.Body.String()
	}
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.Name
	}
	return "(" + strings.Join(names, ", ") + ") => " + l.Body.String()
}

// BinaryOp is a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpText = [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}

func (op BinaryOp) String() string { return binaryOpText[op] }

// IsComparison reports whether op yields a bool from two operands.
func (op BinaryOp) IsComparison() bool { return op >= OpEq && op <= OpGe }

// IsLogical reports whether op is && or ||.
func (op BinaryOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// Binary applies a binary operator.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

func (b *Binary) exprNode() {}

func (b *Binary) Type() *Type {
	if b.Op.IsComparison() || b.Op.IsLogical() {
		return Bool
	}
	lt, rt := b.Left.Type(), b.Right.Type()
	if lt.Kind == KindAny || rt.Kind == KindAny {
		return Any
	}
	if b.Op == OpAdd && lt.Kind == KindString && rt.Kind == KindString {
		return String
	}
	if w := Widen(lt, rt); w != nil {
		return w
	}
	return Any
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

// UnaryOp is a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
)

// Unary applies ! or unary minus.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (u *Unary) exprNode() {}

func (u *Unary) Type() *Type {
	if u.Op == OpNot {
		return Bool
	}
	return u.Operand.Type()
}

func (u *Unary) String() string {
	if u.Op == OpNot {
		return "!" + u.Operand.String()
	}
	return "-" + u.Operand.String()
}

// Member reads a field of a record or grouping.
type Member struct {
	Target Expr
	Name   string
	T      *Type
}

// NewMember resolves the member's type from the target's type.
// ok is false when the target type has no such member.
func NewMember(target Expr, name string) (m *Member, ok bool) {
	t, ok := target.Type().Field(name)
	if !ok {
		return nil, false
	}
	return &Member{Target: target, Name: name, T: t}, true
}

func (m *Member) exprNode()      {}
func (m *Member) Type() *Type    { return m.T }
func (m *Member) String() string { return m.Target.String() + "." + m.Name }

// RecordField is one member initializer of a Record expression.
type RecordField struct {
	Name  string
	Value Expr
}

// Record builds an anonymous record, e.g. {name: p.name, n: 1}.
type Record struct {
	Fields []RecordField
}

func (r *Record) exprNode() {}

func (r *Record) Type() *Type {
	fields := make([]Field, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = Field{Name: f.Name, Type: f.Value.Type()}
	}
	return RecordOf("", fields...)
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Table is a named external sequence, looked up in the Catalog at
// evaluation time. T is always a sequence type.
type Table struct {
	Name string
	T    *Type
}

func (t *Table) exprNode()      {}
func (t *Table) Type() *Type    { return t.T }
func (t *Table) String() string { return t.Name }

// ItemType returns the element type of a sequence-typed expression,
// or Any when e is not a sequence.
func ItemType(e Expr) *Type {
	if t := e.Type(); t.Kind == KindSequence {
		return t.Elem
	}
	return Any
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
