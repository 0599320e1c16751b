package expr

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/qmodel/internal/ir"
	"github.com/shopspring/decimal"
)

// Arithmetic failures.
var (
	// ErrDivideByZero is returned by / and % with a zero divisor.
	ErrDivideByZero = errors.New("division by zero")
	// ErrIntegerOverflow is returned when an integer result does not
	// fit in 64 bits.
	ErrIntegerOverflow = errors.New("integer overflow")
)

// Catalog resolves named tables to their rows.
type Catalog interface {
	Rows(ctx context.Context, table string) (ir.IRArray, error)
}

// SubQueryRunner evaluates a nested query expression in env.
type SubQueryRunner func(env *Env, sub Extension) (ir.IRValue, error)

// Env binds parameters and query sources to values during evaluation.
// Envs are immutable; Bind returns a child that shadows its parent.
type Env struct {
	ctx     context.Context
	catalog Catalog
	runner  SubQueryRunner

	parent *Env
	key    any
	value  ir.IRValue
}

// NewEnv creates a root environment. catalog and runner may be nil when
// the expressions involved reference no tables or sub-queries.
func NewEnv(ctx context.Context, catalog Catalog, runner SubQueryRunner) *Env {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Env{ctx: ctx, catalog: catalog, runner: runner}
}

// Context returns the context evaluation runs under.
func (e *Env) Context() context.Context { return e.ctx }

// Catalog returns the table catalog, possibly nil.
func (e *Env) Catalog() Catalog { return e.catalog }

// Bind returns a child env where key (a *Parameter or a QuerySource)
// evaluates to v.
func (e *Env) Bind(key any, v ir.IRValue) *Env {
	return &Env{ctx: e.ctx, catalog: e.catalog, runner: e.runner, parent: e, key: key, value: v}
}

// Lookup finds the innermost binding for key.
func (e *Env) Lookup(key any) (ir.IRValue, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.parent != nil && cur.key == key {
			return cur.value, true
		}
	}
	return nil, false
}

// RunSubQuery evaluates a nested query with e as its outer environment.
func (e *Env) RunSubQuery(sub Extension) (ir.IRValue, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("no sub-query runner configured for %s", sub)
	}
	return e.runner(e, sub)
}

// Invoke evaluates a lambda with its parameters bound to args.
func Invoke(l *Lambda, env *Env, args ...ir.IRValue) (ir.IRValue, error) {
	if len(args) != len(l.Params) {
		return nil, fmt.Errorf("lambda %s takes %d arguments, got %d", l, len(l.Params), len(args))
	}
	for i, p := range l.Params {
		env = env.Bind(p, args[i])
	}
	return Eval(l.Body, env)
}

// Eval evaluates e in env.
func Eval(e Expr, env *Env) (ir.IRValue, error) {
	switch n := e.(type) {
	case *Constant:
		return n.Value, nil
	case *Parameter:
		v, ok := env.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unbound parameter %q", n.Name)
		}
		return v, nil
	case *Lambda:
		return nil, fmt.Errorf("cannot evaluate lambda %s as a value", n)
	case *Binary:
		return evalBinary(n, env)
	case *Unary:
		return evalUnary(n, env)
	case *Member:
		target, err := Eval(n.Target, env)
		if err != nil {
			return nil, err
		}
		return memberValue(target, n.Name)
	case *Record:
		obj := make(ir.IRObject, len(n.Fields))
		for _, f := range n.Fields {
			v, err := Eval(f.Value, env)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			obj[f.Name] = v
		}
		return obj, nil
	case *Table:
		if env.catalog == nil {
			return nil, fmt.Errorf("no catalog configured for table %q", n.Name)
		}
		rows, err := env.catalog.Rows(env.ctx, n.Name)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", n.Name, err)
		}
		return rows, nil
	case Extension:
		return n.Eval(env)
	default:
		return nil, fmt.Errorf("cannot evaluate %T", e)
	}
}

// EvalBool evaluates a predicate. Null counts as false.
func EvalBool(e Expr, env *Env) (bool, error) {
	v, err := Eval(e, env)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case ir.IRBool:
		return bool(b), nil
	case ir.IRNull:
		return false, nil
	default:
		return false, fmt.Errorf("predicate %s produced %s, want bool", e, ir.KindName(v))
	}
}

func memberValue(target ir.IRValue, name string) (ir.IRValue, error) {
	switch t := target.(type) {
	case ir.IRNull, nil:
		return ir.IRNull{}, nil
	case ir.IRObject:
		if v, ok := t[name]; ok {
			return v, nil
		}
		return ir.IRNull{}, nil
	case ir.IRGrouping:
		switch name {
		case "key":
			return t.Key, nil
		case "elements":
			return t.Elements, nil
		case "count":
			return ir.IRInt(len(t.Elements)), nil
		}
	}
	return nil, fmt.Errorf("%s value has no member %q", ir.KindName(target), name)
}

func evalUnary(u *Unary, env *Env) (ir.IRValue, error) {
	v, err := Eval(u.Operand, env)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case ir.IRNull:
		return val, nil
	case ir.IRBool:
		if u.Op == OpNot {
			return !val, nil
		}
	case ir.IRInt:
		if u.Op == OpNegate {
			return -val, nil
		}
	case ir.IRDecimal:
		if u.Op == OpNegate {
			return ir.NewIRDecimal(val.Neg()), nil
		}
	}
	return nil, fmt.Errorf("operator %s not defined for %s", u.String(), ir.KindName(v))
}

func evalBinary(b *Binary, env *Env) (ir.IRValue, error) {
	left, err := Eval(b.Left, env)
	if err != nil {
		return nil, err
	}

	if b.Op.IsLogical() {
		lb, ok := left.(ir.IRBool)
		if !ok {
			return nil, fmt.Errorf("operator %s needs bool operands, got %s", b.Op, ir.KindName(left))
		}
		if b.Op == OpAnd && !bool(lb) || b.Op == OpOr && bool(lb) {
			return lb, nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(ir.IRBool)
		if !ok {
			return nil, fmt.Errorf("operator %s needs bool operands, got %s", b.Op, ir.KindName(right))
		}
		return rb, nil
	}

	right, err := Eval(b.Right, env)
	if err != nil {
		return nil, err
	}
	return Apply(b.Op, left, right)
}

// Apply computes left op right for arithmetic and comparison operators.
// Arithmetic on null yields null; ordering comparisons with null are false.
func Apply(op BinaryOp, left, right ir.IRValue) (ir.IRValue, error) {
	switch op {
	case OpEq:
		return ir.IRBool(ir.Equal(left, right)), nil
	case OpNe:
		return ir.IRBool(!ir.Equal(left, right)), nil
	case OpLt, OpLe, OpGt, OpGe:
		if isNull(left) || isNull(right) {
			return ir.IRBool(false), nil
		}
		c, err := ir.Compare(left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpLt:
			return ir.IRBool(c < 0), nil
		case OpLe:
			return ir.IRBool(c <= 0), nil
		case OpGt:
			return ir.IRBool(c > 0), nil
		default:
			return ir.IRBool(c >= 0), nil
		}
	case OpAnd, OpOr:
		lb, lok := left.(ir.IRBool)
		rb, rok := right.(ir.IRBool)
		if !lok || !rok {
			return nil, fmt.Errorf("operator %s needs bool operands", op)
		}
		if op == OpAnd {
			return lb && rb, nil
		}
		return lb || rb, nil
	}

	if isNull(left) || isNull(right) {
		return ir.IRNull{}, nil
	}
	if ls, ok := left.(ir.IRString); ok && op == OpAdd {
		if rs, ok := right.(ir.IRString); ok {
			return ls + rs, nil
		}
	}
	if li, ok := left.(ir.IRInt); ok {
		if ri, ok := right.(ir.IRInt); ok {
			return intArith(op, li, ri)
		}
	}
	ld, lok := ir.AsDecimal(left)
	rd, rok := ir.AsDecimal(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %s not defined for %s and %s", op, ir.KindName(left), ir.KindName(right))
	}
	return decimalArith(op, ld, rd)
}

func intArith(op BinaryOp, l, r ir.IRInt) (ir.IRValue, error) {
	switch op {
	case OpAdd:
		sum := l + r
		if (l > 0 && r > 0 && sum < 0) || (l < 0 && r < 0 && sum >= 0) {
			return nil, overflow(op, l, r)
		}
		return sum, nil
	case OpSub:
		diff := l - r
		if (r > 0 && diff > l) || (r < 0 && diff < l) {
			return nil, overflow(op, l, r)
		}
		return diff, nil
	case OpMul:
		if l == 0 || r == 0 {
			return ir.IRInt(0), nil
		}
		product := l * r
		if product/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return nil, overflow(op, l, r)
		}
		return product, nil
	case OpDiv:
		if r == 0 {
			return nil, ErrDivideByZero
		}
		if l == math.MinInt64 && r == -1 {
			return nil, overflow(op, l, r)
		}
		return l / r, nil
	case OpMod:
		if r == 0 {
			return nil, ErrDivideByZero
		}
		return l % r, nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %s", op)
}

func overflow(op BinaryOp, l, r ir.IRInt) error {
	return fmt.Errorf("%w: %d %s %d", ErrIntegerOverflow, l, op, r)
}

func decimalArith(op BinaryOp, l, r decimal.Decimal) (ir.IRValue, error) {
	switch op {
	case OpAdd:
		return ir.NewIRDecimal(l.Add(r)), nil
	case OpSub:
		return ir.NewIRDecimal(l.Sub(r)), nil
	case OpMul:
		return ir.NewIRDecimal(l.Mul(r)), nil
	case OpDiv:
		if r.IsZero() {
			return nil, ErrDivideByZero
		}
		return ir.NewIRDecimal(l.Div(r)), nil
	case OpMod:
		if r.IsZero() {
			return nil, ErrDivideByZero
		}
		return ir.NewIRDecimal(l.Mod(r)), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %s", op)
}

func isNull(v ir.IRValue) bool {
	switch v.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}
