package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the two directories relative paths may be resolved against
type Paths struct {
	WorkingDir    string
	ExecutableDir string
}

// GetPaths returns the current working directory and the directory of the
// running executable with symlinks resolved.
func GetPaths() (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return &Paths{
		WorkingDir:    wd,
		ExecutableDir: filepath.Dir(exe),
	}, nil
}

// Resolve makes path absolute. A relative path is taken from the working
// directory, unless it only exists next to the executable.
func (p *Paths) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	fromWD := filepath.Join(p.WorkingDir, path)
	if FileExists(fromWD) {
		return fromWD
	}

	fromExe := filepath.Join(p.ExecutableDir, path)
	if FileExists(fromExe) {
		return fromExe
	}

	return fromWD
}

// ResolveDatasetPath rewrites c.Dataset.Path to an absolute path
func (c *Config) ResolveDatasetPath() error {
	paths, err := GetPaths()
	if err != nil {
		return err
	}
	c.Dataset.Path = paths.Resolve(c.Dataset.Path)
	return nil
}

// EnsureDir creates dir and its parents when missing
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
