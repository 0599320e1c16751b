package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/qmodel/internal/compiler"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/model"
	"github.com/roach88/qmodel/internal/nodes"
	"github.com/roach88/qmodel/internal/observability"
	"github.com/roach88/qmodel/internal/parse"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Query string // parse only this query
}

// ParsedQuery is the printed form of one parsed query.
type ParsedQuery struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Shape   string `json:"shape"`
	QueryID string `json:"query_id"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <query-dir>",
		Short: "Parse queries into query models",
		Long: `Parse every query defined in a CUE directory into a query model and
print its canonical rendering, output shape and query id.

Example:
  qmodel parse ./queries
  qmodel parse ./queries --query adults --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "parse only the named query")

	return cmd
}

func runParse(opts *ParseOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	prog, err := loadProgram(formatter, dir)
	if err != nil {
		return err
	}

	names, err := queryNames(prog, opts.Query)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidQuery, err)
	}

	b, err := newModelBuilder(prog, opts.logger(cmd), opts.tracer())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	parsed := make([]ParsedQuery, 0, len(names))
	for _, name := range names {
		formatter.VerboseLog("Parsing query: %s", name)
		pq, _, err := b.build(commandContext(cmd), name)
		if err != nil {
			return outputQueryError(formatter, name, err)
		}
		parsed = append(parsed, pq)
	}

	if formatter.JSON() {
		return formatter.Success(parsed)
	}
	for _, pq := range parsed {
		fmt.Fprintln(formatter.Writer, pq.Name)
		fmt.Fprintf(formatter.Writer, "  model: %s\n", pq.Model)
		fmt.Fprintf(formatter.Writer, "  shape: %s\n", pq.Shape)
		fmt.Fprintf(formatter.Writer, "  id:    %s\n", pq.QueryID)
	}
	return nil
}

// loadProgram loads and validates the definitions in dir, reporting any
// failure through formatter.
func loadProgram(formatter *OutputFormatter, dir string) (*compiler.Program, error) {
	loaded, err := LoadQueries(dir)
	if err != nil {
		return nil, outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	if errs := compiler.Validate(loaded.Program, nil); len(errs) > 0 {
		return nil, outputValidationErrors(formatter, errs)
	}
	return loaded.Program, nil
}

// queryNames returns the queries to process: only, or all of them in
// declaration order.
func queryNames(prog *compiler.Program, only string) ([]string, error) {
	if only != "" {
		if prog.Query(only) == nil {
			return nil, fmt.Errorf("unknown query %q", only)
		}
		return []string{only}, nil
	}
	names := make([]string, len(prog.Queries))
	for i, q := range prog.Queries {
		names[i] = q.Name
	}
	return names, nil
}

// QueryError is a failure to turn one query into a model or result.
type QueryError struct {
	Code string
	Err  error
}

func (e *QueryError) Error() string { return e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// modelBuilder parses the queries of one program. Queries that expand
// to the same chain are parsed once.
type modelBuilder struct {
	prog   *compiler.Program
	models *parse.Cache
	tracer *observability.Tracer
}

func newModelBuilder(prog *compiler.Program, logger *slog.Logger, tracer *observability.Tracer) (*modelBuilder, error) {
	parser := parse.New(nodes.NewDefaultRegistry(), parse.WithLogger(logger))
	models, err := parse.NewCache(parser, parse.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &modelBuilder{prog: prog, models: models, tracer: tracer}, nil
}

// build parses the query called name and computes its shape and id.
func (b *modelBuilder) build(ctx context.Context, name string) (ParsedQuery, *model.QueryModel, error) {
	root, err := b.prog.Chain(name)
	if err != nil {
		return ParsedQuery{}, nil, &QueryError{Code: ErrCodeInvalidQuery, Err: err}
	}

	_, span := b.tracer.StartParse(ctx, root.Text())
	defer span.End()
	m, err := b.models.Parse(root)
	if err != nil {
		b.tracer.RecordError(span, err)
		return ParsedQuery{}, nil, &QueryError{Code: ErrCodeParseFailed, Err: err}
	}

	out, err := m.OutputShape()
	if err != nil {
		b.tracer.RecordError(span, err)
		return ParsedQuery{}, nil, &QueryError{Code: ErrCodeShape, Err: err}
	}

	rendering := m.String()
	id, err := ir.QueryID(rendering)
	if err != nil {
		return ParsedQuery{}, nil, &QueryError{Code: ErrCodeGeneric, Err: err}
	}
	span.SetAttributes(
		observability.ModelAttr(rendering),
		observability.ShapeAttr(out.String()),
		observability.QueryIDAttr(id),
	)

	return ParsedQuery{Name: name, Model: rendering, Shape: out.String(), QueryID: id}, m, nil
}

// outputQueryError reports a query that failed to build, parse or run.
// These are failures of the query, not of the command (exit code 1).
func outputQueryError(formatter *OutputFormatter, name string, err error) error {
	code := ErrCodeGeneric
	var qe *QueryError
	if errors.As(err, &qe) {
		code = qe.Code
	}
	msg := fmt.Sprintf("query %s: %v", name, err)
	_ = formatter.Error(code, msg, nil)
	return WrapExitError(ExitFailure, code, err)
}
