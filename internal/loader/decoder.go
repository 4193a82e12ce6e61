package loader

import (
	"fmt"
	"io"
	"path"
	"strings"

	"mysql-loader/internal/storage"
)

// RowDecoder defines a common interface for the input formats (CSV, JSON, Excel).
// It allows the loader to be agnostic of the underlying file format.
type RowDecoder interface {
	// ReadHeader returns the column names. It must be called exactly once,
	// before any row is read.
	ReadHeader() ([]string, error)

	// ReadRow returns the next row, one value per header column. A nil value
	// is NULL. It returns io.EOF after the last row.
	ReadRow() ([]any, error)

	io.Closer
}

// NewDecoder returns a decoder for format reading from r.
func NewDecoder(format string, r io.Reader) (RowDecoder, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVDecoder(r), nil
	case "json", "jsonl", "ndjson":
		return NewJSONDecoder(r), nil
	case "excel", "xlsx":
		dec, err := NewExcelDecoder(r)
		if err != nil {
			return nil, err
		}
		return dec, nil
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}

// FormatFromKey guesses the input format from a file name, ignoring a
// trailing ".gz". It defaults to csv.
func FormatFromKey(key string) string {
	ext := strings.ToLower(path.Ext(storage.TrimCompression(key)))
	switch ext {
	case ".json", ".jsonl", ".ndjson":
		return "json"
	case ".xlsx":
		return "excel"
	default:
		return "csv"
	}
}
