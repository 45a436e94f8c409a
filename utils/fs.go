package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileOperations provides file system utilities
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates directory if it doesn't exist
func (f *FileOperations) EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file
func (f *FileOperations) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// AtomicRename performs an atomic file rename operation
func (f *FileOperations) AtomicRename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// NextAvailablePath returns base unchanged if nothing occupies it yet,
// otherwise the first "stem-N.ext" sibling (N = 1, 2, ...) that doesn't
// exist, component I's collision avoidance for internal.Duplicate.
func (f *FileOperations) NextAvailablePath(base string) string {
	if !f.FileExists(base) {
		return base
	}

	for index := 1; ; index++ {
		candidate := PathWithSuffix(base, index)
		if !f.FileExists(candidate) {
			return candidate
		}
	}
}

// PathWithSuffix inserts "-N" before base's extension (or at the end, for
// an extensionless name): "report.pdf" at index 2 becomes "report-2.pdf".
func PathWithSuffix(base string, index int) string {
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	if stem == "" {
		stem = name
		ext = ""
	}

	candidate := fmt.Sprintf("%s-%d%s", stem, index, ext)
	if dir == "." {
		return candidate
	}
	return filepath.Join(dir, candidate)
}