package loader

import (
	"bufio"
	"encoding/csv"
	"io"
)

// CSVDecoder reads comma separated input through a 64KB buffer.
// The literal NULL decodes to nil.
type CSVDecoder struct {
	r *csv.Reader
}

func NewCSVDecoder(r io.Reader) *CSVDecoder {
	cr := csv.NewReader(bufio.NewReaderSize(r, 64*1024))
	cr.ReuseRecord = true
	return &CSVDecoder{r: cr}
}

func (d *CSVDecoder) ReadHeader() ([]string, error) {
	rec, err := d.r.Read()
	if err != nil {
		return nil, err
	}
	header := make([]string, len(rec))
	copy(header, rec)
	return header, nil
}

func (d *CSVDecoder) ReadRow() ([]any, error) {
	rec, err := d.r.Read()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(rec))
	for i, s := range rec {
		values[i] = fromCSV(s)
	}
	return values, nil
}

func (d *CSVDecoder) Close() error {
	return nil
}

func fromCSV(s string) any {
	if s == "NULL" {
		return nil
	}
	// undo formula injection quoting applied on export
	if len(s) > 1 && s[0] == '\'' {
		switch s[1] {
		case '=', '+', '-', '@':
			return s[1:]
		}
	}
	return s
}
