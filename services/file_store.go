package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// stageFile writes a sibling temp file for path and syncs it to disk. The caller
// renames it into place (or removes it) once every staged file is ready.
func stageFile(path string, encode func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", path, err)
	}

	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := file.Name()

	buf := bufio.NewWriter(file)
	if err := encode(buf); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := buf.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("flush %s: %w", tmpPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close %s: %w", tmpPath, err)
	}
	return tmpPath, nil
}

// writeFileAtomic replaces path with the encoded content. Readers see either the
// old file or the new one.
func writeFileAtomic(path string, encode func(io.Writer) error) error {
	tmpPath, err := stageFile(path, encode)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // Clean up temp file
		return fmt.Errorf("failed to move file to final location: %w", err)
	}
	return nil
}

// encodeIndentedJSON writes v as two-space indented JSON, leaving non-ASCII text and
// HTML characters unescaped.
func encodeIndentedJSON(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
}
