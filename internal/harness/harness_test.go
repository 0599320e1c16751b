package harness

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/compiler"
	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/resultop"
	"github.com/roach88/qmodel/internal/shape"
)

func people() Source {
	return Source{
		Name: "people",
		Type: "Person{name: string, age: int, city: string}",
		Rows: []any{
			map[string]any{"name": "ann", "age": 34, "city": "oslo"},
			map[string]any{"name": "bob", "age": 27, "city": "rome"},
			map[string]any{"name": "cy", "age": 41, "city": "oslo"},
		},
	}
}

func scenario(expect Expect, ops ...compiler.Op) *Scenario {
	return &Scenario{
		Name:        "q",
		Description: "test",
		Source:      people(),
		Ops:         ops,
		Expect:      expect,
	}
}

func where(lambda string) compiler.Op  { return compiler.Op{Op: "Where", Args: []string{lambda}} }
func selectOp(lambda string) compiler.Op { return compiler.Op{Op: "Select", Args: []string{lambda}} }

func TestRun_ProducesModelShapeAndValue(t *testing.T) {
	result, err := Run(scenario(Expect{Shape: "seq<string>"},
		where("p => p.age > 30"),
		selectOp("p => p.name"),
	))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "from p in people where ([p].age > 30) select [p].name", result.Model)
	assert.Equal(t, "seq<string>", result.Shape)
	assert.Equal(t, ir.MustQueryID(result.Model), result.QueryID)
	assert.True(t, ir.Equal(ir.IRArray{ir.IRString("ann"), ir.IRString("cy")}, result.Value))
	assert.NoError(t, result.Err)
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := scenario(Expect{
		Model: "from p in people select [p]",
		Shape: "scalar<int>",
	}, where("p => p.age > 30"))

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expectation failed: model")
	assert.Contains(t, result.Errors[1], "expectation failed: shape")
	assert.Contains(t, result.Errors[1], "Actual: seq<Person{name: string, age: int, city: string}>")
}

func TestRun_ResultMismatch(t *testing.T) {
	s := scenario(Expect{}, selectOp("p => p.age"), compiler.Op{Op: "Sum"})
	require.NoError(t, s.Expect.Result.Encode(100))

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: 100")
	assert.Contains(t, result.Errors[0], "Actual: 102")
}

func TestRun_Stages(t *testing.T) {
	tests := []struct {
		name  string
		ops   []compiler.Op
		stage Stage
		check func(t *testing.T, err error)
	}{
		{
			name:  "build",
			ops:   []compiler.Op{where("p => p.age >")},
			stage: StageBuild,
			check: func(t *testing.T, err error) {
				var ce *compiler.CompileError
				assert.ErrorAs(t, err, &ce)
			},
		},
		{
			name:  "shape",
			ops:   []compiler.Op{{Op: "Take", Args: []string{"-1"}}},
			stage: StageShape,
			check: func(t *testing.T, err error) {
				var se *shape.ShapeError
				assert.ErrorAs(t, err, &se)
			},
		},
		{
			name:  "execute",
			ops:   []compiler.Op{where("p => p.age > 100"), {Op: "Single"}},
			stage: StageExecute,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, resultop.ErrNoElements)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(scenario(Expect{Error: "x"}, tt.ops...))
			require.NoError(t, err)

			assert.Equal(t, tt.stage, result.Stage)
			require.Error(t, result.Err)
			tt.check(t, result.Err)
			assert.Nil(t, result.Value)
		})
	}
}

func TestRun_ExpectedError(t *testing.T) {
	ops := []compiler.Op{where("p => p.age > 100"), {Op: "First"}}

	result, err := Run(scenario(Expect{Error: "no elements"}, ops...))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotEmpty(t, result.Model, "the model is built before execution fails")

	result, err = Run(scenario(Expect{Error: "something else"}, ops...))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "execute error")

	result, err = Run(scenario(Expect{Error: "no elements"}, where("p => p.age > 30")))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "Actual: no error")
}

func TestRun_UnexpectedError(t *testing.T) {
	result, err := Run(scenario(Expect{Shape: "seq<string>"}, compiler.Op{Op: "Frobnicate"}))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, StageParse, result.Stage)
	assert.Contains(t, result.Errors[0], "Expected: no error")
}

func TestRun_MalformedRows(t *testing.T) {
	s := scenario(Expect{Shape: "seq<string>"})
	s.Source.Rows = append(s.Source.Rows, 7)

	_, err := Run(s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.rows[3]: row must be an object")
}

func TestHarness_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(logger).Run(context.Background(), scenario(Expect{Shape: "seq<string>"}, compiler.Op{Op: "Frobnicate"}))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "scenario failed")
	assert.Contains(t, buf.String(), "stage=parse")
	assert.Contains(t, buf.String(), "scenario finished")
}

func TestExpectationError(t *testing.T) {
	err := &ExpectationError{Check: "shape", Expected: "seq<int>", Actual: "scalar<int>"}

	assert.Equal(t, "expectation failed: shape\n  Expected: seq<int>\n  Actual: scalar<int>", err.Error())
	assert.False(t, errors.Is(err, resultop.ErrNoElements))
}
