package expr

import (
	"fmt"
	"strconv"

	"github.com/roach88/qmodel/internal/ir"
)

// ParseLambda parses a function literal such as
//
//	p => p.age > 30
//	(acc, x) => acc + x
//	p => {name: p.name, adult: p.age >= 18}
//
// paramTypes types the parameters positionally; when given, the count
// must match. Without types every parameter is any.
func ParseLambda(src string, paramTypes ...*Type) (*Lambda, error) {
	p, err := newParser(src, false)
	if err != nil {
		return nil, err
	}
	names, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if len(paramTypes) > 0 && len(paramTypes) != len(names) {
		return nil, p.errorf(0, "lambda declares %d parameters, want %d", len(names), len(paramTypes))
	}

	l := &Lambda{Params: make([]*Parameter, len(names))}
	for i, name := range names {
		var t *Type
		if i < len(paramTypes) {
			t = paramTypes[i]
		}
		l.Params[i] = NewParameter(name, t)
		p.scope[name] = l.Params[i]
	}
	if l.Body, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return l, nil
}

// ParseExpr parses a closed expression (no parameters), e.g. "12" or
// "{a: 1}". Used for seeds, counts and other value arguments.
func ParseExpr(src string) (Expr, error) {
	p, err := newParser(src, false)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseType parses a type expression:
//
//	int | long | float | decimal | string | bool | any
//	seq<T> | grouping<K, E> | Name{field: T, ...}
func ParseType(src string) (*Type, error) {
	p, err := newParser(src, true)
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error.
// Use only in tests or for literal types known to be valid.
func MustParseType(src string) *Type {
	t, err := ParseType(src)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src   string
	toks  []token
	pos   int
	scope map[string]*Parameter
}

func newParser(src string, angle bool) (*parser, error) {
	toks, err := lex(src, angle)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks, scope: map[string]*Parameter{}}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Source: p.src, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind) error {
	t := p.next()
	if t.kind != kind {
		if t.kind == tokEOF {
			return p.errorf(t.pos, "unexpected end of input")
		}
		return p.errorf(t.pos, "unexpected %q", t.text)
	}
	return nil
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

// parseParams reads "x =>" or "(a, b) =>".
func (p *parser) parseParams() ([]string, error) {
	var names []string
	if p.peek().kind == tokLParen {
		p.next()
		for p.peek().kind != tokRParen {
			t := p.next()
			if t.kind != tokIdent {
				return nil, p.errorf(t.pos, "expected parameter name, got %q", t.text)
			}
			names = append(names, t.text)
			if p.peek().kind == tokComma {
				p.next()
			}
		}
		p.next()
	} else {
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t.pos, "expected parameter name, got %q", t.text)
		}
		names = append(names, t.text)
	}
	if len(names) == 0 {
		return nil, p.errorf(0, "lambda must declare at least one parameter")
	}
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			return nil, p.errorf(0, "duplicate parameter %q", n)
		}
		seen[n] = true
	}
	if err := p.expect(tokArrow); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (Expr, error) {
	return p.parseLeftAssoc(p.parseAnd, map[string]BinaryOp{"||": OpOr})
}

func (p *parser) parseAnd() (Expr, error) {
	return p.parseLeftAssoc(p.parseComparison, map[string]BinaryOp{"&&": OpAnd})
}

var comparisonOps = map[string]BinaryOp{
	"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		if op, ok := comparisonOps[t.text]; ok {
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &Binary{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.parseLeftAssoc(p.parseMultiplicative, map[string]BinaryOp{"+": OpAdd, "-": OpSub})
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseLeftAssoc(p.parseUnary, map[string]BinaryOp{"*": OpMul, "/": OpDiv, "%": OpMod})
}

func (p *parser) parseLeftAssoc(operand func() (Expr, error), ops map[string]BinaryOp) (Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		op, ok := ops[t.text]
		if t.kind != tokOp || !ok {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		b := &Binary{Op: op, Left: left, Right: right}
		if err := p.checkBinary(b, t.pos); err != nil {
			return nil, err
		}
		left = b
	}
}

// checkBinary rejects operand types that can never work, such as
// string * int or int && bool.
func (p *parser) checkBinary(b *Binary, pos int) error {
	lt, rt := b.Left.Type(), b.Right.Type()
	if lt.Kind == KindAny || rt.Kind == KindAny {
		return nil
	}
	switch {
	case b.Op.IsLogical():
		if lt.Kind != KindBool || rt.Kind != KindBool {
			return p.errorf(pos, "operator %s needs bool operands, got %s and %s", b.Op, lt, rt)
		}
	case b.Op == OpAdd && lt.Kind == KindString && rt.Kind == KindString:
	default:
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return p.errorf(pos, "operator %s not defined for %s and %s", b.Op, lt, rt)
		}
	}
	return nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch {
	case p.isOp("!"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNot, Operand: operand}, nil
	case p.isOp("-"):
		t := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negative literals so "-3" stays a constant.
		if c, ok := operand.(*Constant); ok {
			switch v := c.Value.(type) {
			case ir.IRInt:
				return NewConstant(-v), nil
			case ir.IRDecimal:
				return NewConstant(ir.NewIRDecimal(v.Neg())), nil
			}
		}
		if ot := operand.Type(); ot.Kind != KindAny && !ot.IsNumeric() {
			return nil, p.errorf(t.pos, "unary - not defined for %s", ot)
		}
		return &Unary{Op: OpNegate, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokDot {
		p.next()
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t.pos, "expected member name, got %q", t.text)
		}
		m, ok := NewMember(e, t.text)
		if !ok {
			return nil, p.errorf(t.pos, "type %s has no member %q", e.Type(), t.text)
		}
		e = m
	}
	return e, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t.pos, "integer out of range: %s", t.text)
		}
		return NewConstant(ir.IRInt(n)), nil
	case tokDecimal:
		d, err := ir.ParseIRDecimal(t.text)
		if err != nil {
			return nil, p.errorf(t.pos, "%v", err)
		}
		return NewConstant(d), nil
	case tokString:
		return NewConstant(ir.IRString(t.text)), nil
	case tokIdent:
		switch t.text {
		case "true":
			return NewConstant(ir.IRBool(true)), nil
		case "false":
			return NewConstant(ir.IRBool(false)), nil
		case "null":
			return &Constant{Value: ir.IRNull{}, T: Any}, nil
		}
		if param, ok := p.scope[t.text]; ok {
			return param, nil
		}
		return nil, p.errorf(t.pos, "unknown identifier %q", t.text)
	case tokLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tokLBrace:
		return p.parseRecord()
	case tokEOF:
		return nil, p.errorf(t.pos, "unexpected end of input")
	default:
		return nil, p.errorf(t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) parseRecord() (Expr, error) {
	r := &Record{}
	seen := map[string]bool{}
	for p.peek().kind != tokRBrace {
		name := p.next()
		if name.kind != tokIdent {
			return nil, p.errorf(name.pos, "expected field name, got %q", name.text)
		}
		if seen[name.text] {
			return nil, p.errorf(name.pos, "duplicate field %q", name.text)
		}
		seen[name.text] = true
		if err := p.expect(tokColon); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		r.Fields = append(r.Fields, RecordField{Name: name.text, Value: v})
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return r, nil
}

var namedTypes = map[string]*Type{
	"any":     Any,
	"bool":    Bool,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"decimal": Float,
	"string":  String,
}

func (p *parser) parseType() (*Type, error) {
	t := p.next()
	switch t.kind {
	case tokLBrace:
		return p.parseRecordType("")
	case tokIdent:
	default:
		return nil, p.errorf(t.pos, "expected type, got %q", t.text)
	}

	if named, ok := namedTypes[t.text]; ok {
		return named, nil
	}
	switch t.text {
	case "seq":
		if err := p.expect(tokLAngle); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRAngle); err != nil {
			return nil, err
		}
		return SequenceOf(elem), nil
	case "grouping":
		if err := p.expect(tokLAngle); err != nil {
			return nil, err
		}
		key, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokComma); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRAngle); err != nil {
			return nil, err
		}
		return GroupingOf(key, elem), nil
	}
	if p.peek().kind == tokLBrace {
		p.next()
		return p.parseRecordType(t.text)
	}
	return nil, p.errorf(t.pos, "unknown type %q", t.text)
}

func (p *parser) parseRecordType(name string) (*Type, error) {
	var fields []Field
	for p.peek().kind != tokRBrace {
		fname := p.next()
		if fname.kind != tokIdent {
			return nil, p.errorf(fname.pos, "expected field name, got %q", fname.text)
		}
		if err := p.expect(tokColon); err != nil {
			return nil, err
		}
		ft, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, F(fname.text, ft))
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return RecordOf(name, fields...), nil
}
