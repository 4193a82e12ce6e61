package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

var ErrEmptyInput = errors.New("input has no rows")

// JSONDecoder reads JSON Lines: one object per line, keys are column names.
// The columns are the sorted keys of the first object; later objects may omit
// keys (read as NULL) and extra keys are ignored.
type JSONDecoder struct {
	dec     *json.Decoder
	columns []string
	pending map[string]any
}

func NewJSONDecoder(r io.Reader) *JSONDecoder {
	dec := json.NewDecoder(bufio.NewReaderSize(r, 64*1024))
	dec.UseNumber()
	return &JSONDecoder{dec: dec}
}

func (d *JSONDecoder) ReadHeader() ([]string, error) {
	first, err := d.next()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(first))
	for k := range first {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	d.columns = columns
	d.pending = first
	return columns, nil
}

func (d *JSONDecoder) ReadRow() ([]any, error) {
	obj := d.pending
	d.pending = nil
	if obj == nil {
		var err error
		if obj, err = d.next(); err != nil {
			return nil, err
		}
	}

	values := make([]any, len(d.columns))
	for i, c := range d.columns {
		values[i] = obj[c]
	}
	return values, nil
}

func (d *JSONDecoder) Close() error {
	return nil
}

func (d *JSONDecoder) next() (map[string]any, error) {
	var obj map[string]any
	if err := d.dec.Decode(&obj); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("invalid json line: %w", err)
	}
	if obj == nil {
		return nil, errors.New("invalid json line: expected an object, got null")
	}
	return obj, nil
}
