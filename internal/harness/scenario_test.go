package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/ir"
)

const validScenario = `
name: adults
description: "Where then Select"
source:
  name: people
  type: "Person{name: string, age: int}"
  rows:
    - {name: ann, age: 34}
    - {name: bob, age: 27}
ops:
  - op: Where
    args: ["p => p.age > 30"]
  - op: Select
    args: ["p => p.name"]
expect:
  shape: "seq<string>"
  result: [ann]
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "adults", scenario.Name)
	assert.Equal(t, "people", scenario.Source.Name)
	assert.Len(t, scenario.Source.Rows, 2)
	require.Len(t, scenario.Ops, 2)
	assert.Equal(t, "Where", scenario.Ops[0].Op)
	assert.Equal(t, []string{"p => p.age > 30"}, scenario.Ops[0].Args)
	assert.Equal(t, "seq<string>", scenario.Expect.Shape)
	assert.True(t, scenario.Expect.HasResult())

	want, err := scenario.Expect.ResultValue()
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRArray{ir.IRString("ann")}, want))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(validScenario + "expects: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_NullResultIsAnExpectation(t *testing.T) {
	src := `
name: none
description: "null result"
source: {name: xs, type: int, rows: []}
ops: [{op: FirstOrDefault}]
expect:
  result: null
`
	scenario, err := ParseScenario([]byte(src))
	require.NoError(t, err)

	require.True(t, scenario.Expect.HasResult())
	want, err := scenario.Expect.ResultValue()
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, want)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing name",
			src:  `{description: d, source: {name: xs, type: int}, expect: {shape: "seq<int>"}}`,
			want: "name is required",
		},
		{
			name: "missing description",
			src:  `{name: n, source: {name: xs, type: int}, expect: {shape: "seq<int>"}}`,
			want: "description is required",
		},
		{
			name: "missing source",
			src:  `{name: n, description: d, expect: {shape: "seq<int>"}}`,
			want: "source.name is required",
		},
		{
			name: "source named like the scenario",
			src:  `{name: n, description: d, source: {name: n, type: int}, expect: {shape: "seq<int>"}}`,
			want: "must differ",
		},
		{
			name: "bad type",
			src:  `{name: n, description: d, source: {name: xs, type: "seq<"}, expect: {shape: "seq<int>"}}`,
			want: "source.type",
		},
		{
			name: "op without a name",
			src:  `{name: n, description: d, source: {name: xs, type: int}, ops: [{args: ["1"]}], expect: {shape: "seq<int>"}}`,
			want: "ops[0]: op is required",
		},
		{
			name: "nothing expected",
			src:  `{name: n, description: d, source: {name: xs, type: int}}`,
			want: "expect needs at least one",
		},
		{
			name: "result and error",
			src:  `{name: n, description: d, source: {name: xs, type: int}, expect: {result: 1, error: boom}}`,
			want: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProgramFromScenario(t *testing.T) {
	scenario, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)

	prog, err := scenario.program()
	require.NoError(t, err)

	require.Len(t, prog.Tables, 1)
	assert.Equal(t, "Person{name: string, age: int}", prog.Tables[0].Type.String())
	require.NotNil(t, prog.Query("adults"))
	assert.Equal(t, "people", prog.Query("adults").Source)

	rows := prog.Rows()["people"]
	require.Len(t, rows, 2)
	assert.True(t, ir.Equal(ir.IRObject{"name": ir.IRString("bob"), "age": ir.IRInt(27)}, rows[1]))
}
