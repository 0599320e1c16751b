package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopQueries = `
package shop

table: people: {
	type: "Person{name: string, age: int, city: string}"
	rows: [
		{name: "ann", age: 34, city: "oslo"},
		{name: "bob", age: 27, city: "rome"},
		{name: "cy", age: 41, city: "oslo"},
	]
}

table: archive: {
	type: "Person{name: string, age: int, city: string}"
}

query: adults: {
	source: "people"
	ops: [
		{op: "Where", args: ["p => p.age > 30"]},
		{op: "Select", args: ["p => p.name"]},
	]
}

query: osloCount: {
	source: "people"
	ops: [{op: "Count", args: ["p => p.city == \"oslo\""]}]
}

query: archived: {
	source: "archive"
	ops: [{op: "Select", args: ["p => p.name"]}]
}
`

// writeQueryDir writes src as the only CUE file of a fresh directory.
func writeQueryDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries.cue"), []byte(src), 0644))
	return dir
}

func TestValidateValidQueries(t *testing.T) {
	dir := writeQueryDir(t, shopQueries)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ 2 table(s), 3 query(s) valid")
}

func TestValidateValidQueriesJSON(t *testing.T) {
	dir := writeQueryDir(t, shopQueries)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Tables)
	assert.Equal(t, 3, resp.Data.Queries)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestValidateCompileError(t *testing.T) {
	dir := writeQueryDir(t, `
package shop

table: people: {}

query: q: {source: "people"}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidTable, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "row type is required")
}

func TestValidateInvalidQueries(t *testing.T) {
	dir := writeQueryDir(t, `
package shop

table: people: type: "Person{name: string, age: int}"

query: lost: {source: "nowhere"}

query: odd: {
	source: "people"
	ops: [{op: "Frobnicate", args: ["p => p.age"]}]
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "neither a table nor a query")
	assert.Contains(t, output, "no operator Frobnicate")
}

func TestValidateInvalidQueriesJSON(t *testing.T) {
	dir := writeQueryDir(t, `
package shop

table: people: type: "Person{name: string, age: int}"

query: a: {source: "b"}
query: b: {source: "a"}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, "E105", resp.Data.Errors[0].Code)
}

func TestValidateVerboseOutput(t *testing.T) {
	dir := writeQueryDir(t, shopQueries)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)

	// Verbose logs go to stderr to avoid corrupting JSON output
	assert.Contains(t, stderrBuf.String(), "Found 1 CUE file(s)")
	assert.NotContains(t, stdoutBuf.String(), "Found")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{"table.people.type", ErrCodeInvalidTable},
		{"table", ErrCodeInvalidTable},
		{"query.adults.ops[0].op", ErrCodeInvalidQuery},
		{"query", ErrCodeInvalidQuery},
		{"cue", ErrCodeGeneric},
		{"rows", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapFieldToErrorCode(tt.field))
		})
	}
}
