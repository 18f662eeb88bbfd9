package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// parquetMagic opens and closes every Parquet file
var parquetMagic = []byte("PAR1")

var (
	ErrFileNotFound = errors.New("file does not exist")
	ErrNotAFile     = errors.New("path is a directory")
	ErrNotParquet   = errors.New("file is not a parquet file")
	ErrNotCSV       = errors.New("file is not a csv file")
)

// FileValidator checks dataset inputs and export destinations before they are used
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path is an existing, readable regular file and returns its info
func (v *FileValidator) ValidateFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info, nil
}

// ValidateParquetFile checks that path exists and carries the Parquet magic
// bytes at both ends.
func (v *FileValidator) ValidateParquetFile(path string) (os.FileInfo, error) {
	info, err := v.ValidateFile(path)
	if err != nil {
		return nil, err
	}

	magicLen := int64(len(parquetMagic))
	if info.Size() < 2*magicLen {
		v.logger.Error("File too small to be parquet",
			slog.String("file", path),
			slog.Int64("size", info.Size()))
		return nil, fmt.Errorf("%w: %s", ErrNotParquet, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer file.Close()

	head := make([]byte, magicLen)
	tail := make([]byte, magicLen)
	if _, err := io.ReadFull(file, head); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := file.ReadAt(tail, info.Size()-magicLen); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !bytes.Equal(head, parquetMagic) || !bytes.Equal(tail, parquetMagic) {
		v.logger.Error("File is not a parquet file",
			slog.String("file", path))
		return nil, fmt.Errorf("%w: %s", ErrNotParquet, path)
	}

	return info, nil
}

// ValidateCSVFile checks that path exists and has a .csv extension
func (v *FileValidator) ValidateCSVFile(path string) (os.FileInfo, error) {
	info, err := v.ValidateFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return nil, fmt.Errorf("%w: %s (extension: %s)", ErrNotCSV, path, ext)
	}

	return info, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
