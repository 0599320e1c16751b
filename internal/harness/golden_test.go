package harness

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/compiler"
)

// TestScenarioFiles runs every scenario under testdata/scenarios. They
// double as reference examples of the scenario format.
func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// Regenerate with: go test ./internal/harness -run TestGolden -update
func TestGolden(t *testing.T) {
	for _, name := range []string{"adults", "oslo_count", "oldest_two"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot(t *testing.T) {
	ok, err := Run(scenario(Expect{Shape: "scalar<int>"}, compiler.Op{Op: "Count"}))
	require.NoError(t, err)

	data, err := Snapshot("count", ok)
	require.NoError(t, err)
	assert.Equal(t,
		`{"model":"from generated_1 in people select [generated_1] => Count()","name":"count","result":3,"shape":"scalar<int>"}`,
		string(data))

	failed := &Result{Stage: StageExecute, Err: errors.New("boom"), Model: "m"}
	data, err = Snapshot("failed", failed)
	require.NoError(t, err)
	assert.Equal(t, `{"error":{"message":"boom","stage":"execute"},"model":"m","name":"failed"}`, string(data))
}

func TestSnapshot_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "adults.yaml"))
	require.NoError(t, err)

	var first []byte
	for i := 0; i < 5; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := Snapshot(scenario.Name, result)
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		assert.Equal(t, string(first), string(data))
	}
}
