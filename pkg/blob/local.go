package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes payloads under a base directory. All keys are confined
// to the base directory to prevent path traversal.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a filesystem-backed storage rooted at baseDir,
// which is created if missing.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Join(ErrFailedToPut, err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Join(ErrFailedToPut, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Join(ErrFailedToPut, err)
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.baseDir+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return path, nil
}
