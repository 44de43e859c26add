package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/sheetql/config"
	"github.com/vegasq/sheetql/query"
	"github.com/vegasq/sheetql/reader"
)

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	csv := "id,name,dept,salary\n1,A,X,100\n2,B,Y,200\n3,C,X,300\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employees.csv"), []byte(csv), 0o644))

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Format = "csv"

	provider := reader.NewDirProvider(dir)
	exec := query.NewExecutor(provider, query.NewTempStore())
	shell, err := New(cfg, provider, exec, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	shell.SetOutput(&buf)
	return shell, &buf
}

func TestDispatchSelect(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("SELECT name FROM employees.csv WHERE salary > 150"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"name", "B", "C"}, lines)
}

func TestDispatchCreateAndShowTables(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("CREATE TABLE top AS SELECT * FROM employees.csv WHERE salary > 150"))
	assert.Contains(t, buf.String(), "created table top (2 rows)")

	buf.Reset()
	require.NoError(t, shell.Dispatch("SHOW TABLES"))
	assert.Equal(t, "top", strings.TrimSpace(buf.String()))

	buf.Reset()
	require.NoError(t, shell.Dispatch("SELECT COUNT(*) FROM top"))
	assert.Contains(t, buf.String(), "2")
}

func TestDispatchShowDB(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("SHOW DB"))
	assert.Equal(t, "employees.csv", strings.TrimSpace(buf.String()))
}

func TestDispatchDropTable(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("CREATE TABLE t AS SELECT * FROM employees.csv"))
	buf.Reset()
	require.NoError(t, shell.Dispatch("DROP TABLE t"))
	assert.Contains(t, buf.String(), "dropped t")
	assert.Error(t, shell.Dispatch("DROP TABLE t"))
}

func TestDispatchClearCache(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("SELECT * FROM employees.csv"))
	buf.Reset()
	require.NoError(t, shell.Dispatch("CLEAR CACHE"))
	assert.Contains(t, buf.String(), "cache cleared")
}

func TestDispatchFormatSwitch(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("FORMAT jsonl"))
	buf.Reset()
	require.NoError(t, shell.Dispatch("SELECT name FROM employees.csv WHERE id = 1"))
	assert.Contains(t, buf.String(), `"name":"A"`)
}

func TestDispatchHelpAndExit(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("HELP"))
	assert.Contains(t, buf.String(), "SHOW DB")
	assert.ErrorIs(t, shell.Dispatch("EXIT"), errExit)
	assert.ErrorIs(t, shell.Dispatch("quit"), errExit)
}

func TestDispatchLoadDB(t *testing.T) {
	shell, buf := newTestShell(t)
	require.NoError(t, shell.Dispatch("LOAD DB employees.csv"))
	assert.Contains(t, buf.String(), "loaded employees.csv: 1 relations")
}

func TestRunBatchStopsOnError(t *testing.T) {
	shell, _ := newTestShell(t)
	input := "SELECT * FROM employees.csv\nSELECT * FROM ghost\nSELECT * FROM employees.csv\n"
	err := shell.RunBatch(strings.NewReader(input))
	require.Error(t, err)
}

func TestRunBatchSkipsCommentsAndBlank(t *testing.T) {
	shell, buf := newTestShell(t)
	input := "-- a comment\n\nSELECT name FROM employees.csv WHERE id = 1\n"
	require.NoError(t, shell.RunBatch(strings.NewReader(input)))
	assert.Contains(t, buf.String(), "A")
}

func TestDispatchRedirection(t *testing.T) {
	shell, buf := newTestShell(t)
	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, shell.Dispatch("SELECT name FROM employees.csv > "+out))
	assert.Contains(t, buf.String(), "wrote 3 rows")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "name"))
}
