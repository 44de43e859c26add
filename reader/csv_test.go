package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/sheetql/table"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "people.csv",
		"id,name,salary\n1,Ann,100\n2,Bob,200.5\n3,Cid,\n")

	rel, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "salary"}, rel.ColumnNames())
	require.Len(t, rel.Rows, 3)
	assert.Equal(t, int64(1), rel.Rows[0]["id"])
	assert.Equal(t, "Ann", rel.Rows[0]["name"])
	assert.Equal(t, 200.5, rel.Rows[1]["salary"])
	assert.Nil(t, rel.Rows[2]["salary"])
}

func TestReadCSVRaggedRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ragged.csv", "a,b,c\n1,2\n")
	rel, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rel.Rows, 1)
	assert.Equal(t, int64(2), rel.Rows[0]["b"])
	assert.Nil(t, rel.Rows[0]["c"])
}

func TestReadCSVEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", "")
	rel, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, rel.Columns)
	assert.Empty(t, rel.Rows)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestCoerceCell(t *testing.T) {
	assert.Equal(t, int64(42), coerceCell("42"))
	assert.Equal(t, 1.5, coerceCell("1.5"))
	assert.Equal(t, true, coerceCell("TRUE"))
	assert.Equal(t, false, coerceCell("false"))
	assert.Nil(t, coerceCell("  "))
	assert.Nil(t, coerceCell("NA"))
	assert.Nil(t, coerceCell("n/a"))
	assert.Nil(t, coerceCell("NULL"))
	assert.Equal(t, "hello", coerceCell("hello"))
}

func TestCSVTypesInferred(t *testing.T) {
	path := writeFile(t, t.TempDir(), "typed.csv", "n,s\n1,hi\n")
	rel, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, table.TypeInt, rel.Columns[0].Type)
	assert.Equal(t, table.TypeText, rel.Columns[1].Type)
}
