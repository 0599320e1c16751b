package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmodel/internal/ir"
	"github.com/roach88/qmodel/internal/store"
)

const personType = "Person{name: string, age: int, city: string}"

func writeRows(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func executeLoad(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewLoadCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func storedRows(t *testing.T, dbPath, table string) ir.IRArray {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	rows, err := st.Rows(context.Background(), table)
	require.NoError(t, err)
	return rows
}

func TestLoadCreatesTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	rows := writeRows(t, `
- {name: dee, age: 19, city: lima}
- {name: eve, age: 34, city: rome}
`)

	out, err := executeLoad(t, "text", dbPath, "archive", rows, "--type", personType)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ stored 2 row(s) in archive ("+personType+")")

	got := storedRows(t, dbPath, "archive")
	require.Len(t, got, 2)
	assert.Equal(t, ir.IRString("dee"), got[0].(ir.IRObject)["name"])
	assert.Equal(t, ir.IRInt(34), got[1].(ir.IRObject)["age"])
}

func TestLoadAppendsToExistingTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	_, err := executeLoad(t, "text", dbPath, "archive", writeRows(t, "- {name: dee, age: 19, city: lima}\n"), "--type", personType)
	require.NoError(t, err)

	out, err := executeLoad(t, "json", dbPath, "archive", writeRows(t, "- {name: eve, age: 34, city: rome}\n"))
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   LoadSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "archive", resp.Data.Table)
	assert.Equal(t, personType, resp.Data.Type)
	assert.Equal(t, 1, resp.Data.Rows)
	require.Len(t, resp.Data.IDs, 1)

	got := storedRows(t, dbPath, "archive")
	require.Len(t, got, 2)
	assert.Equal(t, ir.IRString("eve"), got[1].(ir.IRObject)["name"])
}

func TestLoadMissingTableWithoutType(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	out, err := executeLoad(t, "text", dbPath, "archive", writeRows(t, "- 1\n"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "pass --type to create it")
}

func TestLoadConflictingType(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	_, err := executeLoad(t, "text", dbPath, "nums", writeRows(t, "- 1\n"), "--type", "int")
	require.NoError(t, err)

	_, err = executeLoad(t, "text", dbPath, "nums", writeRows(t, "- a\n"), "--type", "string")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTableExists))
}

func TestLoadRejectsBadRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	rows := writeRows(t, `
- {name: dee, age: 19, city: lima}
- {name: eve, city: rome}
`)

	out, err := executeLoad(t, "text", dbPath, "archive", rows, "--type", personType)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errors.Is(err, store.ErrRowType))
	assert.Contains(t, out, "Error [E023]")
	assert.Contains(t, out, `missing field "age"`)

	// Nothing from the file was stored.
	assert.Empty(t, storedRows(t, dbPath, "archive"))
}

func TestLoadBadTypeFlag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	out, err := executeLoad(t, "text", dbPath, "nums", writeRows(t, "- 1\n"), "--type", "seq<")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--type")
}

func TestLoadUnreadableRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	out, err := executeLoad(t, "text", dbPath, "nums", filepath.Join(t.TempDir(), "missing.yaml"), "--type", "int")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "failed to read rows file")
}

func TestReadRows(t *testing.T) {
	rows, err := readRows(writeRows(t, "- {n: 1}\n- {n: 2.5}\n- null\n"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ir.IRInt(1), rows[0].(ir.IRObject)["n"])
	assert.Equal(t, ir.IRNull{}, rows[2])

	_, err = readRows(writeRows(t, "n: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rows file")
}
