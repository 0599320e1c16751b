package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qmodel/internal/compiler"
	"github.com/roach88/qmodel/internal/execute"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/nodes"
	"github.com/roach88/qmodel/internal/parse"
)

// Harness runs scenarios with a fixed registry and silenced logs.
type Harness struct {
	parser *parse.Parser
	logger *slog.Logger
}

// New creates a harness. A nil logger discards all output.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{
		parser: parse.New(nodes.NewDefaultRegistry(), parse.WithLogger(logger)),
		logger: logger,
	}
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the call chain from the source table and ops
// 2. Parse it into a query model
// 3. Compute the output shape
// 4. Execute in memory over the inline rows
// 5. Check the expect clause against what happened
//
// The returned error is reserved for scenarios that cannot be run at
// all, such as malformed rows; pipeline failures are part of the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := scenario.program()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	if stage, err := h.execute(ctx, prog, scenario.Name, result); err != nil {
		result.fail(stage, err)
		h.logger.DebugContext(ctx, "scenario failed",
			"scenario", scenario.Name,
			"stage", stage,
			"error", err,
		)
	}

	checkExpectations(scenario, result)

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"query_id", result.QueryID,
	)
	return result, nil
}

// execute fills result with the model, shape and value of the query
// called name, stopping at the first stage that fails.
func (h *Harness) execute(ctx context.Context, prog *compiler.Program, name string, result *Result) (Stage, error) {
	root, err := prog.Chain(name)
	if err != nil {
		return StageBuild, err
	}

	m, err := h.parser.Parse(root)
	if err != nil {
		return StageParse, err
	}
	result.Model = m.String()
	if result.QueryID, err = ir.QueryID(result.Model); err != nil {
		return StageParse, err
	}

	out, err := m.OutputShape()
	if err != nil {
		return StageShape, err
	}
	result.Shape = out.String()

	ex := execute.NewInMemory(execute.MapCatalog(prog.Rows()), execute.WithLogger(h.logger))
	data, err := execute.Execute(ctx, ex, m)
	if err != nil {
		return StageExecute, err
	}
	result.Value = execute.Result(data)
	return "", nil
}
