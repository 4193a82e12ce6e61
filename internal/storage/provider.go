package storage

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

// Provider defines where load input files are read from.
type Provider interface {
	// OpenFile opens the stored file for reading.
	// The key is the relative path/filename for the object.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns a URL identifying the stored item, for logs and reports.
	GetURL(key string) string
}

// Open opens key from p, transparently decompressing keys ending in ".gz".
func Open(ctx context.Context, p Provider, key string) (io.ReadCloser, error) {
	rc, err := p.OpenFile(ctx, key)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(key, ".gz") {
		return rc, nil
	}

	zr, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", key, err)
	}
	return &gzipReadCloser{Reader: zr, src: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	src io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.src.Close(); err != nil {
		return err
	}
	return zerr
}

// TrimCompression strips a trailing ".gz" so the format can be read off the
// remaining extension.
func TrimCompression(key string) string {
	return strings.TrimSuffix(key, ".gz")
}
