package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qmodel/internal/ir"
)

// Snapshot renders the observable outcome of a run as canonical JSON:
// the scenario name, the model rendering, the output shape and the
// result. A failed run records its stage and error instead of a result.
func Snapshot(name string, result *Result) ([]byte, error) {
	snap := map[string]any{
		"name": name,
	}
	if result.Model != "" {
		snap["model"] = result.Model
	}
	if result.Shape != "" {
		snap["shape"] = result.Shape
	}
	if result.Err != nil {
		snap["error"] = map[string]any{
			"stage":   string(result.Stage),
			"message": result.Err.Error(),
		}
	} else {
		snap["result"] = result.Value
	}
	return ir.MarshalCanonical(snap)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
