package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardBatchInsert buffers rows in memory and sends them as a single
// multi-row INSERT on Flush.
type StandardBatchInsert struct {
	db      Execer
	dialect Dialect
	upsert  bool

	table  string
	schema Schema
	head   string
	tail   string

	// row holds the values of the row being built; args holds completed rows.
	row  []any
	args []any

	index        int
	batchWeight  int
	batchRows    int
	totalRows    int64
	lastAffected int64
	prepared     bool
}

// NewStandardBatchInsert creates a batch insert executing against db. With
// upsert set, rows colliding on a unique key update the existing row.
func NewStandardBatchInsert(db Execer, dialect Dialect, upsert bool) *StandardBatchInsert {
	return &StandardBatchInsert{
		db:      db,
		dialect: dialect,
		upsert:  upsert,
	}
}

func (b *StandardBatchInsert) Prepare(ctx context.Context, table string, schema Schema) error {
	if len(schema) == 0 {
		return ErrEmptySchema
	}

	var tail string
	if b.upsert {
		clause, err := b.dialect.UpsertClause(schema.Names())
		if err != nil {
			return err
		}
		tail = " " + clause
	}

	quoted := make([]string, len(schema))
	for i, c := range schema {
		quoted[i] = b.dialect.QuoteIdentifier(c.Name)
	}

	b.table = table
	b.schema = schema
	b.head = fmt.Sprintf("INSERT INTO %s (%s) VALUES ", QuoteQualified(b.dialect, table), strings.Join(quoted, ", "))
	b.tail = tail
	b.row = make([]any, 0, len(schema))
	b.args = b.args[:0]
	b.index = 0
	b.batchWeight = 0
	b.batchRows = 0
	b.totalRows = 0
	b.lastAffected = 0
	b.prepared = true
	return nil
}

func (b *StandardBatchInsert) BatchWeight() int {
	return b.batchWeight
}

func (b *StandardBatchInsert) BatchRows() int {
	return b.batchRows
}

func (b *StandardBatchInsert) LastAffected() int64 {
	return b.lastAffected
}

// ColumnType reports the declared type of the column the next setter binds.
func (b *StandardBatchInsert) ColumnType() (SQLType, bool) {
	if !b.prepared || b.index >= len(b.schema) {
		return Other, false
	}
	return b.schema[b.index].Type, true
}

func (b *StandardBatchInsert) Add() error {
	if !b.prepared {
		return ErrNotPrepared
	}
	if b.index != len(b.schema) {
		return fmt.Errorf("%w: bound %d of %d", ErrColumnCountMismatch, b.index, len(b.schema))
	}
	b.args = append(b.args, b.row...)
	b.row = b.row[:0]
	b.index = 0
	b.batchRows++
	b.batchWeight += 32 // per-row overhead
	return nil
}

func (b *StandardBatchInsert) Flush(ctx context.Context) error {
	b.lastAffected = 0
	if b.batchRows == 0 {
		return nil
	}

	rows := b.batchRows
	slog.Info("Loading rows", "table", b.table, "rows", rows)
	start := time.Now()

	// cleared for retry whether or not the statement succeeds
	defer func() {
		b.args = b.args[:0]
		b.batchRows = 0
		b.batchWeight = 0
	}()

	res, err := b.db.ExecContext(ctx, b.buildQuery(rows), b.args...)
	if err != nil {
		return fmt.Errorf("batch insert into %s failed: %w", b.table, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		b.lastAffected = n
	}

	b.totalRows += int64(rows)
	slog.Info("Batch loaded",
		"table", b.table,
		"seconds", time.Since(start).Seconds(),
		"total_rows", b.totalRows,
	)
	return nil
}

func (b *StandardBatchInsert) Finish(ctx context.Context) error {
	if !b.prepared {
		return ErrNotPrepared
	}
	return b.Flush(ctx)
}

func (b *StandardBatchInsert) Close() error {
	b.row = nil
	b.args = nil
	b.prepared = false
	return nil
}

func (b *StandardBatchInsert) buildQuery(rows int) string {
	cols := len(b.schema)

	var sb strings.Builder
	sb.Grow(len(b.head) + len(b.tail) + rows*cols*4)
	sb.WriteString(b.head)

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.dialect.Placeholder(n))
			n++
		}
		sb.WriteByte(')')
	}
	sb.WriteString(b.tail)
	return sb.String()
}

func (b *StandardBatchInsert) bind(v any, weight int) error {
	if !b.prepared {
		return ErrNotPrepared
	}
	if b.index >= len(b.schema) {
		return fmt.Errorf("%w: schema has %d", ErrTooManyColumns, len(b.schema))
	}
	b.row = append(b.row, v)
	b.index++
	b.batchWeight += weight + 4 // per-column overhead
	return nil
}

func (b *StandardBatchInsert) SetNull(t SQLType) error {
	return b.bind(typedNull(t), 0)
}

func (b *StandardBatchInsert) SetBoolean(v bool) error {
	return b.bind(v, 1)
}

func (b *StandardBatchInsert) SetLong(v int64) error {
	return b.bind(v, 8)
}

func (b *StandardBatchInsert) SetFloat(v float32) error {
	return b.bind(v, 4)
}

func (b *StandardBatchInsert) SetDouble(v float64) error {
	return b.bind(v, 8)
}

func (b *StandardBatchInsert) SetString(v string) error {
	// assume two bytes per character, enough for the worst case
	return b.bind(v, len(v)*2+4)
}

func (b *StandardBatchInsert) SetBytes(v []byte) error {
	return b.bind(v, len(v)+4)
}

func (b *StandardBatchInsert) SetTimestamp(v time.Time) error {
	return b.bind(v, 32)
}

// typedNull picks a NULL value whose Go type matches the column's SQL type.
func typedNull(t SQLType) any {
	switch {
	case t.IsFloating():
		return sql.NullFloat64{}
	case t.IsInteger():
		return sql.NullInt64{}
	}
	switch t {
	case Boolean:
		return sql.NullBool{}
	case Decimal, Char, Varchar, Text, JSON:
		return sql.NullString{}
	case Date, Time, Timestamp:
		return sql.NullTime{}
	}
	return nil
}

// QuoteQualified quotes each dot-separated part of a possibly
// schema-qualified name.
func QuoteQualified(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
