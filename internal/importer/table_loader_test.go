package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTableParsesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.csv",
		"sku, name ,price\nS1,Shirt,10.00\nS2,Pants,20.00\n")

	table, err := LoadTable(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"sku", "name", "price"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "S1", table.Rows[0]["sku"])
	assert.Equal(t, "Pants", table.Rows[1]["name"])
	assert.True(t, table.HasColumn("price"))
	assert.False(t, table.HasColumn("missing"))
}

func TestLoadTableSkipsBlankRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.csv",
		"sku,name\nS1,Shirt\n,\nS2,Pants\n")

	table, err := LoadTable(path, nil)
	require.NoError(t, err)

	assert.Len(t, table.Rows, 2)
	assert.Equal(t, 0, table.SkippedRows)
}

func TestLoadTableCountsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.csv",
		"sku,name,price\nS1,Shirt,10.00\nS2,Pants\nS3,Hat,5.00\n")

	table, err := LoadTable(path, nil)
	require.NoError(t, err)

	assert.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.SkippedRows)
	assert.Equal(t, "S3", table.Rows[1]["sku"])
}

func TestLoadTableRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.csv", "")

	_, err := LoadTable(path, nil)
	assert.Error(t, err)
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"), nil)
	assert.Error(t, err)
}

func TestLoadTableTrimsCellWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.csv",
		"sku,name\n S1 , Shirt \n")

	table, err := LoadTable(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "S1", table.Rows[0]["sku"])
	assert.Equal(t, "Shirt", table.Rows[0]["name"])
}
