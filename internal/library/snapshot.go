package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aorestr/alpargatify/internal/domain"
)

// FileStore persists the enriched album snapshot as a single JSON file
// holding an array of album objects. The file is rewritten wholesale on
// every successful sync cycle. Implements domain.SnapshotStore.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a snapshot store backed by the given file path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the snapshot and indexes it by album id. A missing file is
// an empty snapshot; a corrupt or unreadable file degrades to an empty
// snapshot with a warning, never a fatal error.
func (s *FileStore) Load() map[string]domain.Album {
	snapshot := make(map[string]domain.Album)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache read error, starting fresh", "path", s.path, "error", err)
		}
		return snapshot
	}

	var albums []domain.Album
	if err := json.Unmarshal(data, &albums); err != nil {
		s.logger.Warn("cache corrupt, starting fresh", "path", s.path, "error", err)
		return snapshot
	}

	for _, album := range albums {
		if album.ID == "" {
			continue
		}
		snapshot[album.ID] = album
	}

	return snapshot
}

// Save atomically replaces the snapshot file: the new content is written
// to a temp file in the same directory and renamed over the old one, so
// a crash mid-write never leaves a truncated cache.
func (s *FileStore) Save(albums []domain.Album) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(albums)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".albums-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}
