package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qmodel/internal/compiler"
	"github.com/roach88/qmodel/internal/execute"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Query    string
	Database string
}

// RunResult is the printed form of one executed query.
type RunResult struct {
	ParsedQuery
	Result json.RawMessage `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-dir>",
		Short: "Parse and execute a query in memory",
		Long: `Parse a query into a query model and execute it in memory.

Tables read their inline rows when the definition has them; other tables
are read from the SQLite catalog given with --db (see qmodel load).

Example:
  qmodel run ./queries --query adults
  qmodel run ./queries --query adults --db ./catalog.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "name of the query to run (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to a SQLite catalog for tables without inline rows")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runQuery(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)
	ctx := commandContext(cmd)

	prog, err := loadProgram(formatter, dir)
	if err != nil {
		return err
	}
	if _, err := queryNames(prog, opts.Query); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidQuery, err)
	}

	catalogs := execute.Catalogs{execute.MapCatalog(prog.Rows())}
	if opts.Database != "" {
		st, err := store.Open(opts.Database, store.WithLogger(logger))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		if err := checkStoredTypes(ctx, prog, st); err != nil {
			return outputQueryError(formatter, opts.Query, &QueryError{Code: ErrCodeBadRows, Err: err})
		}
		catalogs = append(catalogs, st)
		formatter.VerboseLog("Reading stored tables from %s", opts.Database)
	}

	tracer := opts.tracer()
	b, err := newModelBuilder(prog, logger, tracer)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	pq, m, err := b.build(ctx, opts.Query)
	if err != nil {
		return outputQueryError(formatter, opts.Query, err)
	}
	formatter.VerboseLog("Model: %s", pq.Model)

	ex := execute.NewInMemory(catalogs, execute.WithLogger(logger), execute.WithTracer(tracer))
	data, err := execute.Execute(ctx, ex, m)
	if err != nil {
		return outputQueryError(formatter, opts.Query, &QueryError{Code: ErrCodeExecFailed, Err: err})
	}
	value, err := ir.MarshalCanonical(execute.Result(data))
	if err != nil {
		return outputQueryError(formatter, opts.Query, &QueryError{Code: ErrCodeExecFailed, Err: err})
	}

	logger.Debug("query executed", "query", opts.Query, "query_id", pq.QueryID)

	if formatter.JSON() {
		return formatter.Success(RunResult{ParsedQuery: pq, Result: value})
	}
	fmt.Fprintf(formatter.Writer, "model:  %s\n", pq.Model)
	fmt.Fprintf(formatter.Writer, "shape:  %s\n", pq.Shape)
	fmt.Fprintf(formatter.Writer, "result: %s\n", value)
	return nil
}

// checkStoredTypes verifies that every table read from the store was
// declared with the type it was stored under.
func checkStoredTypes(ctx context.Context, prog *compiler.Program, st *store.Store) error {
	for _, t := range prog.Tables {
		if t.Rows != nil {
			continue
		}
		stored, err := st.TableType(ctx, t.Name)
		if errors.Is(err, execute.ErrUnknownTable) {
			continue
		}
		if err != nil {
			return err
		}
		if !stored.Equal(t.Type) {
			return fmt.Errorf("table %q is declared as %s but stored as %s", t.Name, t.Type, stored)
		}
	}
	return nil
}
