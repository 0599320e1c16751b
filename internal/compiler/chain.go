package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/qmodel/internal/chain"
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/nodes"
)

// Chain builds the call chain of the query called name. Lambda
// parameters are typed from the item type flowing into each call.
func (p *Program) Chain(name string) (chain.Node, error) {
	b := &chainBuilder{prog: p, active: make(map[string]bool)}
	node, _, err := b.query(name)
	return node, err
}

type chainBuilder struct {
	prog   *Program
	active map[string]bool
}

// query returns the chain of a query and its result type.
func (b *chainBuilder) query(name string) (chain.Node, *expr.Type, error) {
	q := b.prog.Query(name)
	if q == nil {
		return nil, nil, &CompileError{Field: "query", Message: fmt.Sprintf("unknown query %q", name)}
	}
	if b.active[name] {
		return nil, nil, &CompileError{Field: "query." + name, Message: "query depends on itself"}
	}
	b.active[name] = true
	defer delete(b.active, name)

	node, ret, found, err := b.named(q.Source)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, &CompileError{
			Field:   fmt.Sprintf("query.%s.source", name),
			Message: fmt.Sprintf("%q is neither a table nor a query", q.Source),
		}
	}

	for i, op := range q.Ops {
		node, ret, err = b.call(fmt.Sprintf("query.%s.ops[%d]", name, i), node, ret, op)
		if err != nil {
			return nil, nil, err
		}
	}
	return node, ret, nil
}

// named resolves a table or query name to a sequence argument.
func (b *chainBuilder) named(name string) (chain.Node, *expr.Type, bool, error) {
	if t := b.prog.Table(name); t != nil {
		seq := expr.SequenceOf(t.Type)
		return &chain.Sequence{Expr: &expr.Table{Name: t.Name, T: seq}}, seq, true, nil
	}
	if b.prog.Query(name) != nil {
		node, ret, err := b.query(name)
		return node, ret, true, err
	}
	return nil, nil, false, nil
}

func (b *chainBuilder) call(field string, src chain.Node, in *expr.Type, op Op) (chain.Node, *expr.Type, error) {
	if op.Op == "" {
		return nil, nil, &CompileError{Field: field + ".op", Message: "operator name is required"}
	}
	item := elem(in)
	arity := len(op.Args) + 1

	args := make([]chain.Node, 0, arity)
	args = append(args, src)
	var seed, inner *expr.Type
	bodies := make([]*expr.Type, 0, len(op.Args))
	for i, text := range op.Args {
		pos := i + 1
		node, t, err := b.arg(text, paramTypes(op.Op, pos, arity, item, seed, inner))
		if err != nil {
			return nil, nil, &CompileError{Field: fmt.Sprintf("%s.args[%d]", field, i), Message: err.Error()}
		}
		if pos == 1 {
			switch op.Op {
			case "Join", "GroupJoin", "SelectMany":
				inner = elem(t)
			case "Aggregate":
				seed = t
			}
		}
		args = append(args, node)
		bodies = append(bodies, t)
	}

	sig := nodes.QueryableSignature(op.Op, arity)
	ret := resultType(op.Op, item, inner, bodies)
	typeText := strings.TrimSpace(op.Type)
	if typeText != "" {
		t, err := expr.ParseType(typeText)
		if err != nil {
			return nil, nil, &CompileError{Field: field + ".type", Message: err.Error()}
		}
		switch op.Op {
		case "Cast", "OfType":
			sig.TypeArgs = []string{typeText}
			ret = expr.SequenceOf(t)
		default:
			ret = t
		}
	}

	return &chain.Call{Signature: sig, Args: args, ReturnType: ret}, ret, nil
}

// arg converts one argument text to a chain node and the type it
// contributes: a lambda's body type, a sequence type, or a value type.
func (b *chainBuilder) arg(text string, types []*expr.Type) (chain.Node, *expr.Type, error) {
	text = strings.TrimSpace(text)
	if node, t, found, err := b.named(text); found || err != nil {
		return node, t, err
	}

	if head, body, ok := strings.Cut(text, "=>"); ok {
		node, t, found, err := b.named(strings.TrimSpace(body))
		if err != nil {
			return nil, nil, err
		}
		if found {
			l, err := sequenceLambda(head, node, types)
			if err != nil {
				return nil, nil, err
			}
			return &chain.Quote{Lambda: l}, t, nil
		}

		l, err := expr.ParseLambda(text, types...)
		if err != nil {
			return nil, nil, err
		}
		return &chain.Quote{Lambda: l}, l.Body.Type(), nil
	}

	e, err := expr.ParseExpr(text)
	if err != nil {
		return nil, nil, err
	}
	return &chain.Value{Expr: e}, e.Type(), nil
}

// sequenceLambda builds "p => orders" style lambdas whose body is a
// whole table or query.
func sequenceLambda(head string, body chain.Node, types []*expr.Type) (*expr.Lambda, error) {
	head = strings.TrimSpace(head)
	head = strings.TrimSuffix(strings.TrimPrefix(head, "("), ")")
	var names []string
	for _, n := range strings.Split(head, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) != len(types) {
		return nil, fmt.Errorf("lambda declares %d parameters, want %d", len(names), len(types))
	}

	l := &expr.Lambda{Params: make([]*expr.Parameter, len(names))}
	for i, n := range names {
		l.Params[i] = expr.NewParameter(n, types[i])
	}
	switch n := body.(type) {
	case *chain.Sequence:
		l.Body = n.Expr
	case *chain.Call:
		l.Body = &chain.Nested{Call: n}
	default:
		return nil, fmt.Errorf("%s cannot be a lambda body", body.Text())
	}
	return l, nil
}

// paramTypes types the parameters of the lambda at argument position
// pos. Most operators pass the current item; joins, SelectMany and
// Aggregate pass the inner item or the accumulator as well.
func paramTypes(op string, pos, arity int, item, seed, inner *expr.Type) []*expr.Type {
	switch op {
	case "Join", "GroupJoin":
		switch pos {
		case 3:
			return []*expr.Type{inner}
		case 4:
			if op == "GroupJoin" {
				return []*expr.Type{item, expr.SequenceOf(inner)}
			}
			return []*expr.Type{item, inner}
		}
	case "SelectMany":
		if pos == 2 {
			return []*expr.Type{item, inner}
		}
	case "Aggregate":
		switch {
		case arity == 2:
			return []*expr.Type{item, item}
		case pos == 2:
			return []*expr.Type{seed, item}
		case pos == 3:
			return []*expr.Type{seed}
		}
	}
	return []*expr.Type{item}
}

func resultType(op string, item, inner *expr.Type, bodies []*expr.Type) *expr.Type {
	at := func(i int, fallback *expr.Type) *expr.Type {
		if i < len(bodies) && bodies[i] != nil {
			return bodies[i]
		}
		return fallback
	}

	switch op {
	case "Where", "OrderBy", "OrderByDescending", "ThenBy", "ThenByDescending",
		"Distinct", "Reverse", "Take", "Skip", "Union", "Concat", "Intersect", "Except",
		"DefaultIfEmpty":
		return expr.SequenceOf(item)
	case "Select":
		return expr.SequenceOf(at(0, item))
	case "SelectMany":
		if len(bodies) > 1 {
			return expr.SequenceOf(bodies[1])
		}
		return expr.SequenceOf(orAny(inner))
	case "Join", "GroupJoin":
		return expr.SequenceOf(at(3, expr.Any))
	case "GroupBy":
		return expr.SequenceOf(expr.GroupingOf(at(0, expr.Any), at(1, item)))
	case "Cast", "OfType":
		return expr.SequenceOf(expr.Any)
	case "Count":
		return expr.Int
	case "LongCount":
		return expr.Long
	case "Average":
		return expr.Float
	case "Any", "All", "Contains":
		return expr.Bool
	case "Sum", "Min", "Max":
		return at(0, item)
	case "Aggregate":
		switch len(bodies) {
		case 1:
			return item
		case 2:
			return at(0, item)
		default:
			return at(2, item)
		}
	default:
		return item
	}
}

// elem returns the item type of a sequence type, or any.
func elem(t *expr.Type) *expr.Type {
	if t != nil && t.Kind == expr.KindSequence {
		return t.Elem
	}
	return expr.Any
}

func orAny(t *expr.Type) *expr.Type {
	if t == nil {
		return expr.Any
	}
	return t
}
