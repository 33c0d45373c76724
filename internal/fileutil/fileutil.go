// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// encodingsByExtension maps source file extensions to content encodings.
var encodingsByExtension = map[string]string{
	".md":       "markdown",
	".markdown": "markdown",
	".html":     "html",
	".htm":      "html",
	".tex":      "latex",
	".txt":      "plaintext",
}

// EncodingForPath returns the content encoding implied by the file extension,
// or "" when the extension is not recognized.
func EncodingForPath(path string) string {
	return encodingsByExtension[strings.ToLower(filepath.Ext(path))]
}

// OutputPath derives the output file for input: same base name with extension,
// placed in outDir when set or next to the input otherwise.
func OutputPath(input, outDir, extension string) (string, error) {
	if err := ValidateExtension(extension); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "." + extension
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base), nil
	}
	return filepath.Join(outDir, base), nil
}

// WriteFileAtomic writes content to a temporary file in the target directory
// and renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path, content string, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".trustedmarkup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		cleanup()
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ValidateExtension checks that the extension is safe for use in file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
