package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage persists uploaded blobs on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// ObjectPath builds the canonical blob path for an upload:
// documents/{uploaderID}/{epochMillis}_{originalFilename}.
func ObjectPath(uploaderID, originalName string, uploadedAt time.Time) string {
	return filepath.Join("documents", uploaderID, fmt.Sprintf("%d_%s", uploadedAt.UnixMilli(), filepath.Base(originalName)))
}

// SaveStream copies from reader into the target blob path.
func (s *LocalStorage) SaveStream(path string, r io.Reader) (string, error) {
	abs := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	return path, nil
}

// Open returns a read-only handle for the stored blob.
func (s *LocalStorage) Open(path string) (*os.File, error) {
	file, err := os.Open(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored blob if present.
func (s *LocalStorage) Delete(path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// ListOlderThan returns relative paths of blobs last modified before the cutoff.
// Used by the orphan sweeper to find blobs whose metadata write never landed.
func (s *LocalStorage) ListOlderThan(minAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-minAge)
	stale := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		stale = append(stale, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan uploads: %w", err)
	}
	return stale, nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(path string) string {
	return s.resolve(path)
}

func (s *LocalStorage) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}
