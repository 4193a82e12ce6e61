package batch

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotPrepared         = errors.New("batch insert is not prepared")
	ErrEmptySchema         = errors.New("insert schema has no columns")
	ErrTooManyColumns      = errors.New("more values bound than columns in schema")
	ErrColumnCountMismatch = errors.New("row does not bind every column")
	ErrUpsertUnsupported   = errors.New("upsert is not supported by this dialect")
)

// RowWriter binds column values for the row being built, one column at a
// time in schema order.
type RowWriter interface {
	SetNull(t SQLType) error
	SetBoolean(v bool) error
	SetLong(v int64) error
	SetFloat(v float32) error
	SetDouble(v float64) error
	SetString(v string) error
	SetBytes(v []byte) error
	SetTimestamp(v time.Time) error
}

// ColumnTyper is implemented by writers that know the declared type of the
// column about to be bound.
type ColumnTyper interface {
	ColumnType() (SQLType, bool)
}

// BatchInsert accumulates rows and sends them to the database on Flush.
type BatchInsert interface {
	RowWriter

	// Prepare resets the batch for loading into table with the given schema.
	Prepare(ctx context.Context, table string, schema Schema) error

	// Add closes the current row. Every schema column must have been bound.
	Add() error

	// Flush executes the buffered rows. The buffer is cleared even on failure.
	Flush(ctx context.Context) error

	// Finish flushes any remaining rows.
	Finish(ctx context.Context) error

	Close() error

	// BatchWeight is an estimate of the buffered payload size in bytes.
	BatchWeight() int
	BatchRows() int

	// LastAffected returns the rows affected by the most recent Flush.
	LastAffected() int64
}

// Column describes one target column.
type Column struct {
	Name string
	// TypeName is the database's own spelling, e.g. "DOUBLE" or "FLOAT8".
	TypeName string
	Type     SQLType
}

// Schema is the ordered list of columns a batch binds per row.
type Schema []Column

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Dialect covers the SQL spelling differences between target databases.
type Dialect interface {
	QuoteIdentifier(name string) string
	// Placeholder returns the bind marker for the n-th parameter, 1-based.
	Placeholder(n int) string
	// UpsertClause returns the suffix turning an INSERT into an upsert.
	UpsertClause(columns []string) (string, error)
}
