package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qmodel/internal/execute"
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Type string // item type; required when the table does not exist yet
}

// LoadSummary reports what a load stored.
type LoadSummary struct {
	Table string   `json:"table"`
	Type  string   `json:"type"`
	Rows  int      `json:"rows"`
	IDs   []string `json:"ids"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <db> <table> <rows.yaml>",
		Short: "Store rows in a SQLite catalog",
		Long: `Append rows from a YAML list to a table in a SQLite catalog, creating
the database and the table as needed. Every row is checked against the
table type; a file with one bad row stores nothing.

Example:
  qmodel load ./catalog.db people ./people.yaml --type 'Person{name: string, age: int}'
  qmodel load ./catalog.db people ./more-people.yaml`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "item type of the table, e.g. '{name: string, age: int}'")

	return cmd
}

func runLoad(opts *LoadOptions, dbPath, table, rowsPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	rows, err := readRows(rowsPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadRows, err)
	}
	formatter.VerboseLog("Read %d row(s) from %s", len(rows), rowsPath)

	st, err := store.Open(dbPath, store.WithLogger(opts.logger(cmd)))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err)
	}
	defer st.Close()

	itemType, err := tableType(ctx, st, table, opts.Type)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidTable, err)
	}

	ids, err := st.Insert(ctx, table, rows)
	if err != nil {
		code := ErrCodeWriteFailed
		if errors.Is(err, store.ErrRowType) {
			code = ErrCodeBadRows
		}
		return formatter.Fail(ExitFailure, code, err)
	}

	summary := LoadSummary{Table: table, Type: itemType.String(), Rows: len(ids), IDs: ids}
	if formatter.JSON() {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ stored %d row(s) in %s (%s)\n", summary.Rows, summary.Table, summary.Type)
	return nil
}

// tableType creates table with typeText, or returns the stored type
// when typeText is empty.
func tableType(ctx context.Context, st *store.Store, table, typeText string) (*expr.Type, error) {
	if typeText == "" {
		t, err := st.TableType(ctx, table)
		if errors.Is(err, execute.ErrUnknownTable) {
			return nil, fmt.Errorf("table %q does not exist; pass --type to create it", table)
		}
		return t, err
	}

	t, err := expr.ParseType(typeText)
	if err != nil {
		return nil, fmt.Errorf("--type: %w", err)
	}
	if err := st.CreateTable(ctx, table, t); err != nil {
		return nil, err
	}
	return t, nil
}

// readRows decodes a YAML list of rows.
func readRows(path string) (ir.IRArray, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows file: %w", err)
	}

	var raw []any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse rows file %s: %w", path, err)
	}

	rows := make(ir.IRArray, len(raw))
	for i, r := range raw {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = v
	}
	return rows, nil
}
