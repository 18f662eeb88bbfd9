package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, paths.WorkingDir)
	assert.True(t, filepath.IsAbs(paths.ExecutableDir))
}

func TestPathsResolve(t *testing.T) {
	wd := t.TempDir()
	exe := t.TempDir()
	p := &Paths{WorkingDir: wd, ExecutableDir: exe}

	require.NoError(t, os.WriteFile(filepath.Join(exe, "only-exe.parquet"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(wd, "both.parquet"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(exe, "both.parquet"), []byte("x"), 0644))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute is cleaned", "/srv/../srv/data.parquet", "/srv/data.parquet"},
		{"found next to executable", "only-exe.parquet", filepath.Join(exe, "only-exe.parquet")},
		{"working directory wins", "both.parquet", filepath.Join(wd, "both.parquet")},
		{"missing falls back to working directory", "nowhere.parquet", filepath.Join(wd, "nowhere.parquet")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Resolve(tt.in))
		})
	}
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	assert.False(t, FileExists(dir))
	require.NoError(t, EnsureDir(dir))
	assert.True(t, FileExists(dir))
}
