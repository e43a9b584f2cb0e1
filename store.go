package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RecentProject is one entry of the recent-projects list.
type RecentProject struct {
	Name     string
	FilePath string
	Modified time.Time
	Created  time.Time
}

// FileStore is the file system as the canvas sees it: opaque blobs keyed
// by path.
type FileStore interface {
	SaveProjectBlob(ctx context.Context, path string, data []byte) error
	LoadProjectBlob(ctx context.Context, path string) ([]byte, error)
	SaveImageBlob(ctx context.Context, path string, data []byte) error
	ListRecentProjects(ctx context.Context, limit int) ([]RecentProject, error)
}

// LocalStore implements FileStore on the local disk. Recent projects are
// the project files in dir.
type LocalStore struct {
	dir    string
	logger *zap.Logger
}

func NewLocalStore(dir string, logger *zap.Logger) *LocalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "."
	}
	return &LocalStore{dir: dir, logger: logger}
}

func (s *LocalStore) SaveProjectBlob(ctx context.Context, path string, data []byte) error {
	return writeAtomic(path, data)
}

func (s *LocalStore) LoadProjectBlob(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project %s not found", path)
		}
		return nil, fmt.Errorf("failed to read project %s: %w", path, err)
	}
	return data, nil
}

func (s *LocalStore) SaveImageBlob(ctx context.Context, path string, data []byte) error {
	return writeAtomic(path, data)
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tempFile, err := os.CreateTemp(dir, ".flowboard-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if _, err := tempFile.Write(data); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempFile.Name(), path); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}

// ListRecentProjects returns the project files in the store directory,
// most recently modified first, capped at limit. The name falls back to
// the file's base name and the creation time to the file timestamp.
func (s *LocalStore) ListRecentProjects(ctx context.Context, limit int) ([]RecentProject, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var out []RecentProject
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), projectExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		rp := RecentProject{
			Name:     projectName(path),
			FilePath: path,
			Modified: info.ModTime(),
			Created:  info.ModTime(),
		}
		if meta, ok := s.peekMeta(path); ok {
			if strings.TrimSpace(meta.Name) != "" {
				rp.Name = meta.Name
			}
			if t, err := time.Parse(time.RFC3339, meta.Created); err == nil {
				rp.Created = t
			}
		}
		out = append(out, rp)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *LocalStore) peekMeta(path string) (ProjectMeta, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProjectMeta{}, false
	}
	var head struct {
		Meta ProjectMeta `json:"meta"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		s.logger.Debug("unreadable project meta", zap.String("path", path), zap.Error(err))
		return ProjectMeta{}, false
	}
	return head.Meta, true
}
