package parse

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/qmodel/internal/chain"
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/nodes"
	"github.com/roach88/qmodel/internal/registry"
)

// DefaultMaxDepth bounds call nesting, sub-queries included.
const DefaultMaxDepth = 256

// Parser parses call chains with one registry.
type Parser struct {
	registry  registry.Registry
	maxDepth  int
	logger    *slog.Logger
	generated int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the maximum call nesting depth.
//
// Default: 256 (DefaultMaxDepth)
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// WithLogger sets the logger for per-call debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New creates a parser over reg, typically nodes.NewDefaultRegistry().
func New(reg registry.Registry, opts ...Option) *Parser {
	p := &Parser{
		registry: reg,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseTree builds the intermediate node chain for root.
func (p *Parser) ParseTree(root chain.Node) (nodes.Node, error) {
	p.generated = 0
	return p.parseNode(root, "", 0)
}

// Parse builds and validates the query model for root. Generated
// identifiers are numbered per call, so equal chains render equally.
// A Parser is not safe for concurrent use.
func (p *Parser) Parse(root chain.Node) (*model.QueryModel, error) {
	p.generated = 0
	m, err := p.parseModel(root, 0)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, &ParseError{Call: root.Text(), Reason: err.Error(), Err: errors.Join(ErrInvalidModel, err)}
	}
	p.logger.Debug("query parsed",
		"chain", root.Text(),
		"model", m.String(),
	)
	return m, nil
}

// parseModel parses root and applies its node chain to a new model.
// Sub-query models found in the result get it as their parent.
func (p *Parser) parseModel(root chain.Node, depth int) (*model.QueryModel, error) {
	node, err := p.parseNode(root, "", depth)
	if err != nil {
		return nil, err
	}
	m, err := node.Apply(nil, nodes.NewClauseGenerationContext())
	if err != nil {
		var applyErr *nodes.ApplyError
		if errors.As(err, &applyErr) {
			return nil, &ParseError{Call: applyErr.Call, Reason: applyErr.Err.Error(), Err: errors.Join(ErrInvalidCall, err)}
		}
		return nil, &ParseError{Call: root.Text(), Reason: err.Error(), Err: errors.Join(ErrInvalidCall, err)}
	}
	adoptSubQueries(m)
	return m, nil
}

func adoptSubQueries(m *model.QueryModel) {
	m.TransformExpressions(func(e expr.Expr) expr.Expr {
		expr.Walk(e, func(n expr.Expr) bool {
			if sq, ok := n.(*model.SubQuery); ok {
				if sq.Model.Parent() == nil {
					sq.Model.SetParent(m)
				}
				adoptSubQueries(sq.Model)
			}
			return true
		})
		return e
	})
}

func (p *Parser) nextIdentifier() string {
	id := fmt.Sprintf("generated_%d", p.generated)
	p.generated++
	return id
}

func (p *Parser) parseNode(n chain.Node, identifier string, depth int) (nodes.Node, error) {
	if depth > p.maxDepth {
		return nil, parseError(n.Text(), ErrTooDeep, "nesting exceeds %d levels", p.maxDepth)
	}
	if identifier == "" {
		identifier = p.nextIdentifier()
	}

	switch node := n.(type) {
	case *chain.Call:
		return p.parseCall(node, identifier, depth)
	case *chain.Sequence:
		return nodes.NewMainSource(identifier, node.Expr, node.ItemType()), nil
	case *chain.Placeholder:
		return nodes.NewMainSource(identifier, node.Param, node.ItemType()), nil
	default:
		return nil, parseError(n.Text(), ErrNotASource, "%T cannot start a call chain", n)
	}
}

func (p *Parser) parseCall(call *chain.Call, identifier string, depth int) (nodes.Node, error) {
	text := call.Text()
	if call.ReturnType == nil {
		return nil, parseError(text, ErrVoidCall, "%s returns nothing", call.Signature)
	}
	kind, err := p.registry.Resolve(call.Signature)
	if err != nil {
		return nil, &ParseError{Call: text, Reason: err.Error(), Err: errors.Join(ErrUnregistered, err)}
	}
	factory, ok := nodes.FactoryFor(kind)
	if !ok {
		return nil, parseError(text, ErrUnregistered, "no node factory for kind %s", kind)
	}
	switch n := len(call.Args); {
	case n < factory.MinArgs:
		return nil, parseError(text, ErrTooFewArguments, "%s needs at least %d arguments, got %d", kind, factory.MinArgs, n)
	case n > factory.MaxArgs:
		return nil, parseError(text, ErrTooManyArguments, "%s takes at most %d arguments, got %d", kind, factory.MaxArgs, n)
	}

	source, err := p.parseNode(call.Args[0], sourceIdentifier(call), depth+1)
	if err != nil {
		return nil, err
	}

	args := make([]expr.Expr, factory.MaxArgs-1)
	for i := 1; i < len(call.Args); i++ {
		if args[i-1], err = p.argument(call, factory, i, depth); err != nil {
			return nil, err
		}
	}

	info := nodes.ParseInfo{
		Identifier: identifier,
		Source:     source,
		CallText:   text,
		ResultType: call.ReturnType,
	}
	for _, arg := range call.Signature.TypeArgs {
		t, err := expr.ParseType(arg)
		if err != nil {
			return nil, &ParseError{Call: text, Reason: err.Error(), Err: errors.Join(ErrInvalidCall, err)}
		}
		info.TypeArgs = append(info.TypeArgs, t)
	}

	node, err := factory.New(info, args)
	if err != nil {
		return nil, &ParseError{Call: text, Reason: err.Error(), Err: errors.Join(ErrInvalidCall, err)}
	}
	p.logger.Debug("call parsed",
		"kind", kind,
		"identifier", identifier,
		"depth", depth,
	)
	return node, nil
}

// sourceIdentifier names the items flowing into call after the first
// single-parameter function literal among its arguments.
func sourceIdentifier(call *chain.Call) string {
	for _, arg := range call.Args[1:] {
		if q, ok := arg.(*chain.Quote); ok && len(q.Lambda.Params) == 1 {
			return q.Lambda.Params[0].Name
		}
	}
	return ""
}

// argument converts call argument i to an expression.
func (p *Parser) argument(call *chain.Call, factory nodes.Factory, i int, depth int) (expr.Expr, error) {
	arg := call.Args[i]
	if factory.IsLambdaSlot(i) {
		switch a := arg.(type) {
		case *chain.Quote:
			return p.expandNested(a.Lambda, depth)
		case *chain.Func:
			return nil, parseError(call.Text(), ErrCompiledLambda,
				"argument %d is the compiled function %s; pass a function literal", i, a.Name)
		default:
			return nil, parseError(call.Text(), ErrNotLambda,
				"argument %d (%s) must be a function literal", i, arg.Text())
		}
	}

	switch a := arg.(type) {
	case *chain.Quote:
		return p.expandNested(a.Lambda, depth)
	case *chain.Value:
		return p.expandNested(a.Expr, depth)
	case *chain.Sequence:
		return a.Expr, nil
	case *chain.Placeholder:
		return a.Param, nil
	case *chain.Call:
		m, err := p.parseModel(a, depth+1)
		if err != nil {
			return nil, err
		}
		return model.NewSubQuery(m), nil
	case *chain.Func:
		return nil, parseError(call.Text(), ErrCompiledLambda,
			"argument %d is the compiled function %s, which cannot be inspected", i, a.Name)
	default:
		return nil, parseError(call.Text(), ErrInvalidCall, "unsupported argument %T", arg)
	}
}

// expandNested parses call chains embedded in e into sub-queries.
func (p *Parser) expandNested(e expr.Expr, depth int) (expr.Expr, error) {
	var firstErr error
	out := expr.Rewrite(e, func(n expr.Expr) expr.Expr {
		nested, ok := n.(*chain.Nested)
		if !ok || firstErr != nil {
			return n
		}
		m, err := p.parseModel(nested.Call, depth+1)
		if err != nil {
			firstErr = err
			return n
		}
		return model.NewSubQuery(m)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
