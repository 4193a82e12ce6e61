package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("storage key escapes base path")

type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) *LocalProvider {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		slog.Error("Failed to ensure local storage directory exists", "path", basePath, "error", err)
	}
	return &LocalProvider{
		basePath: basePath,
	}
}

func (p *LocalProvider) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", fullPath, err)
	}
	return f, nil
}

func (p *LocalProvider) GetURL(key string) string {
	fullPath := filepath.Join(p.basePath, key)
	abs, _ := filepath.Abs(fullPath)
	return fmt.Sprintf("file://%s", abs)
}

// resolve keeps keys inside basePath.
func (p *LocalProvider) resolve(key string) (string, error) {
	fullPath := filepath.Join(p.basePath, key)
	rel, err := filepath.Rel(p.basePath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return fullPath, nil
}
