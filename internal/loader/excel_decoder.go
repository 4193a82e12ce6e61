package loader

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelDecoder reads the first sheet of an .xlsx workbook. The first row is
// the header; empty cells decode to nil.
// The whole workbook is read into memory before the first row is returned.
type ExcelDecoder struct {
	f      *excelize.File
	rows   *excelize.Rows
	header int
}

func NewExcelDecoder(r io.Reader) (*ExcelDecoder, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, err
	}
	return &ExcelDecoder{f: f, rows: rows}, nil
}

func (e *ExcelDecoder) ReadHeader() ([]string, error) {
	if !e.rows.Next() {
		if err := e.rows.Error(); err != nil {
			return nil, err
		}
		return nil, ErrEmptyInput
	}
	cols, err := e.rows.Columns()
	if err != nil {
		return nil, err
	}
	e.header = len(cols)
	return cols, nil
}

func (e *ExcelDecoder) ReadRow() ([]any, error) {
	if !e.rows.Next() {
		if err := e.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	cols, err := e.rows.Columns()
	if err != nil {
		return nil, err
	}

	// trailing empty cells are not reported by the row iterator
	n := len(cols)
	if n < e.header {
		n = e.header
	}
	values := make([]any, n)
	for i, c := range cols {
		if c != "" {
			values[i] = c
		}
	}
	return values, nil
}

func (e *ExcelDecoder) Close() error {
	rerr := e.rows.Close()
	if err := e.f.Close(); err != nil {
		return err
	}
	return rerr
}
