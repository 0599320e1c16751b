package execute

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/observability"
	"github.com/roach88/qmodel/internal/shape"
)

// InMemory evaluates query models without a backend. Tables are read
// from its catalog.
type InMemory struct {
	catalog expr.Catalog
	tracer  *observability.Tracer
	logger  *slog.Logger
}

// Option configures an InMemory executor.
type Option func(*InMemory)

// WithTracer sets the tracer for execute and operator spans.
//
// Default: no-op tracer (observability.NewNoopTracer)
func WithTracer(t *observability.Tracer) Option {
	return func(x *InMemory) {
		x.tracer = t
	}
}

// WithLogger sets the logger for per-model debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(x *InMemory) {
		x.logger = logger
	}
}

// NewInMemory creates an executor over catalog. catalog may be nil when
// models only read sub-queries and constants.
func NewInMemory(catalog expr.Catalog, opts ...Option) *InMemory {
	x := &InMemory{
		catalog: catalog,
		tracer:  observability.NewNoopTracer(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

var _ Executor = (*InMemory)(nil)

func (x *InMemory) ExecuteCollection(ctx context.Context, m *model.QueryModel) (ir.IRArray, error) {
	data, err := x.execute(ctx, m)
	if err != nil {
		return nil, err
	}
	seq, ok := data.(shape.StreamedSequence)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a collection", ErrShapeMismatch, data.DataShape())
	}
	return seq.Items, nil
}

// ExecuteSingle runs a model ending in First, Last, Single or one of
// their OrDefault forms. returnDefaultWhenEmpty must agree with the
// model's own choice operator.
func (x *InMemory) ExecuteSingle(ctx context.Context, m *model.QueryModel, returnDefaultWhenEmpty bool) (ir.IRValue, error) {
	out, err := m.OutputShape()
	if err != nil {
		return nil, fmt.Errorf("output shape: %w", err)
	}
	single, ok := out.(shape.SingleValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a single value", ErrShapeMismatch, out)
	}
	if single.ReturnDefaultWhenEmpty != returnDefaultWhenEmpty {
		return nil, fmt.Errorf("%w: model returns %s", ErrShapeMismatch, single)
	}
	return x.value(ctx, m)
}

func (x *InMemory) ExecuteScalar(ctx context.Context, m *model.QueryModel) (ir.IRValue, error) {
	out, err := m.OutputShape()
	if err != nil {
		return nil, fmt.Errorf("output shape: %w", err)
	}
	if _, ok := out.(shape.Scalar); !ok {
		return nil, fmt.Errorf("%w: %s is not a scalar", ErrShapeMismatch, out)
	}
	return x.value(ctx, m)
}

func (x *InMemory) value(ctx context.Context, m *model.QueryModel) (ir.IRValue, error) {
	data, err := x.execute(ctx, m)
	if err != nil {
		return nil, err
	}
	v, ok := data.(shape.StreamedValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a single value", ErrShapeMismatch, data.DataShape())
	}
	return v.Value, nil
}

func (x *InMemory) execute(ctx context.Context, m *model.QueryModel) (shape.Data, error) {
	rendering := m.String()
	id, err := ir.QueryID(rendering)
	if err != nil {
		return nil, err
	}

	ctx, span := x.tracer.StartExecute(ctx, rendering, id)
	defer span.End()
	logger := observability.LoggerWithTrace(ctx, x.logger)

	data, err := x.run(expr.NewEnv(ctx, x.catalog, x.runSubQuery), m)
	if err != nil {
		x.tracer.RecordError(span, err)
		return nil, err
	}
	if seq, ok := data.(shape.StreamedSequence); ok {
		span.SetAttributes(observability.ResultCountAttr(len(seq.Items)))
	}
	logger.Debug("model executed",
		"query_id", id,
		"shape", data.DataShape().String(),
	)
	return data, nil
}

// runSubQuery evaluates a nested model in the environment of the row
// that references it.
func (x *InMemory) runSubQuery(env *expr.Env, sub expr.Extension) (ir.IRValue, error) {
	sq, ok := sub.(*model.SubQuery)
	if !ok {
		return nil, fmt.Errorf("unsupported sub-query expression %T", sub)
	}
	_, span := x.tracer.StartSpan(env.Context(), observability.SpanSubQuery, observability.ModelAttr(sq.Model.String()))
	defer span.End()

	data, err := x.run(env, sq.Model)
	if err != nil {
		x.tracer.RecordError(span, err)
		return nil, err
	}
	return Result(data), nil
}

// run evaluates m with env as the outer environment.
func (x *InMemory) run(env *expr.Env, m *model.QueryModel) (shape.Data, error) {
	rows, err := sequence(env, m.MainFrom.FromExpression)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.MainFrom, err)
	}
	tuples := make([]*expr.Env, len(rows))
	for i, row := range rows {
		tuples[i] = env.Bind(m.MainFrom, row)
	}

	for _, c := range m.BodyClauses {
		if tuples, err = applyClause(c, tuples); err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
	}

	items := make(ir.IRArray, len(tuples))
	for i, t := range tuples {
		if items[i], err = expr.Eval(m.Select.Selector, t); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Select, err)
		}
	}

	var data shape.Data = shape.StreamedSequence{Items: items, Info: m.SelectShape()}
	for _, op := range m.ResultOperators {
		_, span := x.tracer.StartOperator(env.Context(), op.Name())
		data, err = op.ExecuteInMemory(data, env)
		x.tracer.RecordError(span, err)
		span.End()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return data, nil
}

// sequence evaluates e to the items it stands for. A grouping stands for
// its elements and null for no items.
func sequence(env *expr.Env, e expr.Expr) (ir.IRArray, error) {
	v, err := expr.Eval(e, env)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case ir.IRArray:
		return s, nil
	case ir.IRGrouping:
		return s.Elements, nil
	case nil, ir.IRNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrNotASequence, e, ir.KindName(v))
	}
}

func applyClause(c model.BodyClause, tuples []*expr.Env) ([]*expr.Env, error) {
	switch clause := c.(type) {
	case *model.AdditionalFromClause:
		return crossJoin(clause, tuples)
	case *model.JoinClause:
		return innerJoin(clause, tuples)
	case *model.GroupJoinClause:
		return groupJoin(clause, tuples)
	case *model.WhereClause:
		return filter(clause, tuples)
	case *model.OrderByClause:
		return orderBy(clause, tuples)
	case *model.LetClause:
		out := make([]*expr.Env, len(tuples))
		for i, t := range tuples {
			v, err := expr.Eval(clause.Expression, t)
			if err != nil {
				return nil, err
			}
			out[i] = t.Bind(clause, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported body clause %T", c)
	}
}

func crossJoin(c *model.AdditionalFromClause, tuples []*expr.Env) ([]*expr.Env, error) {
	var out []*expr.Env
	for _, t := range tuples {
		rows, err := sequence(t, c.FromExpression)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, t.Bind(c, row))
		}
	}
	return out, nil
}

// matches returns the inner items of join whose key equals the outer key
// of t. Null keys match nothing.
func matches(join *model.JoinClause, t *expr.Env) (ir.IRArray, error) {
	outerKey, err := expr.Eval(join.OuterKeySelector, t)
	if err != nil {
		return nil, err
	}
	inner, err := sequence(t, join.InnerSequence)
	if err != nil {
		return nil, err
	}
	matched := ir.IRArray{}
	if isNull(outerKey) {
		return matched, nil
	}
	for _, item := range inner {
		innerKey, err := expr.Eval(join.InnerKeySelector, t.Bind(join, item))
		if err != nil {
			return nil, err
		}
		if ir.Equal(outerKey, innerKey) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func innerJoin(c *model.JoinClause, tuples []*expr.Env) ([]*expr.Env, error) {
	var out []*expr.Env
	for _, t := range tuples {
		matched, err := matches(c, t)
		if err != nil {
			return nil, err
		}
		for _, item := range matched {
			out = append(out, t.Bind(c, item))
		}
	}
	return out, nil
}

func groupJoin(c *model.GroupJoinClause, tuples []*expr.Env) ([]*expr.Env, error) {
	out := make([]*expr.Env, len(tuples))
	for i, t := range tuples {
		matched, err := matches(c.Join, t)
		if err != nil {
			return nil, err
		}
		out[i] = t.Bind(c, matched)
	}
	return out, nil
}

func filter(c *model.WhereClause, tuples []*expr.Env) ([]*expr.Env, error) {
	out := tuples[:0:0]
	for _, t := range tuples {
		ok, err := expr.EvalBool(c.Predicate, t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func orderBy(c *model.OrderByClause, tuples []*expr.Env) ([]*expr.Env, error) {
	orderings := c.Orderings()
	type keyed struct {
		env  *expr.Env
		keys []ir.IRValue
	}
	rows := make([]keyed, len(tuples))
	for i, t := range tuples {
		rows[i] = keyed{env: t, keys: make([]ir.IRValue, len(orderings))}
		for j, o := range orderings {
			k, err := expr.Eval(o.Expression, t)
			if err != nil {
				return nil, err
			}
			rows[i].keys[j] = k
		}
	}

	var sortErr error
	slices.SortStableFunc(rows, func(a, b keyed) int {
		for j, o := range orderings {
			cmp, err := ir.Compare(a.keys[j], b.keys[j])
			if err != nil {
				if sortErr == nil {
					sortErr = fmt.Errorf("order by %s: %w", o.Expression, err)
				}
				return 0
			}
			if o.Direction == model.Descending {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp
			}
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}

	out := make([]*expr.Env, len(rows))
	for i, r := range rows {
		out[i] = r.env
	}
	return out, nil
}

func isNull(v ir.IRValue) bool {
	switch v.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}
