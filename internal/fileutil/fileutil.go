// Package fileutil provides small file helpers shared by the trace sinks
// and tests.
package fileutil

import (
	"os"
	"path/filepath"
)

// MustTempDir creates a temporary directory and panics on failure.
// It is intended for tests.
func MustTempDir(pattern string) string {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		panic(err)
	}
	return dir
}

// OpenOrCreateFile opens the file for appending, creating it and any
// missing parent directories.
func OpenOrCreateFile(file string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
}

// FileExists reports whether the path exists.
func FileExists(file string) bool {
	_, err := os.Stat(file)
	return err == nil
}
