package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFileValidator_ValidateParquetFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   error
	}{
		{
			name: "magic at both ends",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "clean.parquet")
				require.NoError(t, os.WriteFile(path, []byte("PAR1....footer....PAR1"), 0644))
				return path
			},
		},
		{
			name: "csv renamed to parquet",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "clean.parquet")
				require.NoError(t, os.WriteFile(path, []byte("time,type,name\n2023-01-01,solar,S1\n"), 0644))
				return path
			},
			wantErr: ErrNotParquet,
		},
		{
			name: "truncated file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "clean.parquet")
				require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0644))
				return path
			},
			wantErr: ErrNotParquet,
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.parquet")
			},
			wantErr: ErrFileNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr: ErrNotAFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setupFunc(t)

			info, err := quietValidator().ValidateParquetFile(path)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(22), info.Size())
		})
	}
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "clean.csv")
	txtPath := filepath.Join(dir, "clean.txt")
	require.NoError(t, os.WriteFile(csvPath, []byte("time\n"), 0644))
	require.NoError(t, os.WriteFile(txtPath, []byte("time\n"), 0644))

	v := quietValidator()

	_, err := v.ValidateCSVFile(csvPath)
	assert.NoError(t, err)

	_, err = v.ValidateCSVFile(txtPath)
	assert.ErrorIs(t, err, ErrNotCSV)

	_, err = v.ValidateCSVFile(filepath.Join(dir, "absent.csv"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
	}{
		{
			name: "existing directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory is created",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new", "nested", "dir")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setupFunc(t)

			require.NoError(t, quietValidator().ValidateOutputDirectory(dir))

			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
			_, err = os.Stat(filepath.Join(dir, ".write_test"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestFileValidator_OutputDirectoryBlockedByFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := quietValidator().ValidateOutputDirectory(filepath.Join(blocker, "out"))
	assert.Error(t, err)
}

func TestNewFileValidator_NilLogger(t *testing.T) {
	v := NewFileValidator(nil)
	require.NotNil(t, v)
	assert.NotNil(t, v.logger)
}
