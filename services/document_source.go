package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/models"
)

// DocumentSource enumerates the corpus for an ingestion run.
type DocumentSource interface {
	Documents(ctx context.Context) ([]models.Document, error)
}

// DirectorySource lists the files of one folder (not recursive) that the filter
// accepts, sorted by name.
type DirectorySource struct {
	dir    string
	accept func(name string) bool
}

// NewDirectorySource creates a source over dir. A nil accept admits every file.
func NewDirectorySource(dir string, accept func(name string) bool) *DirectorySource {
	return &DirectorySource{dir: dir, accept: accept}
}

func (s *DirectorySource) Documents(ctx context.Context) ([]models.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory %s: %w", s.dir, err)
	}

	docs := make([]models.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if s.accept != nil && !s.accept(name) {
			logger.Debug("Ignoring unsupported corpus file", "file", name)
			continue
		}
		docs = append(docs, models.Document{Name: name, Path: filepath.Join(s.dir, name)})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, ctx.Err()
}
