package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tpcpower/internal/columnar"
)

// writeParquet writes rows under columns to dir/name and returns the path
func writeParquet(t *testing.T, dir, name string, columns []columnar.Column, rows [][]columnar.Value) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := columnar.NewWriter(f, columns, nil)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	require.NoError(t, w.Close())
	return path
}

var textColumns = []columnar.Column{
	{Name: "time", Kind: columnar.KindString},
	{Name: "type", Kind: columnar.KindString},
	{Name: "name", Kind: columnar.KindString},
	{Name: "capacity", Kind: columnar.KindString},
	{Name: "used", Kind: columnar.KindString},
	{Name: "region", Kind: columnar.KindString},
}

func textRow(cells ...string) []columnar.Value {
	row := make([]columnar.Value, len(cells))
	for i, c := range cells {
		if c == "" {
			row[i] = columnar.NullValue()
			continue
		}
		row[i] = columnar.StringValue(c)
	}
	return row
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
