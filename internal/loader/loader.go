package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mysql-loader/internal/batch"
	"mysql-loader/internal/driver"
	"mysql-loader/internal/security"
)

// maxPlaceholders is the MySQL prepared statement parameter limit; a
// multi-row INSERT never binds more.
const maxPlaceholders = 65535

// DefaultBatchWeight flushes once roughly 16MB of values are buffered.
const DefaultBatchWeight = 16 * 1024 * 1024

// Option configures a Loader.
type Option func(*Loader)

// WithBeforeLoad runs stmt once before the first row is inserted.
func WithBeforeLoad(stmt string) Option {
	return func(l *Loader) { l.beforeLoad = stmt }
}

// WithAfterLoad runs stmt once after the last batch is flushed.
func WithAfterLoad(stmt string) Option {
	return func(l *Loader) { l.afterLoad = stmt }
}

// WithLocation sets the zone for timestamps that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(l *Loader) {
		if loc != nil {
			l.location = loc
		}
	}
}

// Loader reads rows from a decoder and writes them through a batch insert.
// A Loader holds no per-load state and may be shared between goroutines.
type Loader struct {
	driver     driver.Driver
	maxWeight  int
	beforeLoad string
	afterLoad  string
	location   *time.Location
}

// NewLoader creates a loader that looks up target schemas through d.
func NewLoader(d driver.Driver, maxWeight int, opts ...Option) *Loader {
	if maxWeight <= 0 {
		maxWeight = DefaultBatchWeight
	}
	l := &Loader{driver: d, maxWeight: maxWeight, location: time.UTC}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadResult contains stats about the load
type LoadResult struct {
	RowsLoaded int64
	Flushes    int
	Duration   time.Duration
}

// Load streams every row of dec into table. Rows are bound one column at a
// time and flushed in batches, so memory stays bounded by the batch weight.
// The caller owns b and closes it.
func (l *Loader) Load(ctx context.Context, table string, dec RowDecoder, b batch.BatchInsert) (*LoadResult, error) {
	start := time.Now()

	if err := security.ValidateTable(table); err != nil {
		return nil, err
	}

	header, err := dec.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for _, col := range header {
		if err := security.ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("bad column in header: %w", err)
		}
	}

	schema, err := l.driver.Schema(ctx, table, header)
	if err != nil {
		return nil, err
	}
	if err := b.Prepare(ctx, table, schema); err != nil {
		return nil, fmt.Errorf("failed to prepare batch: %w", err)
	}
	if err := l.exec(ctx, "before_load", l.beforeLoad); err != nil {
		return nil, err
	}

	maxRows := maxPlaceholders / len(schema)
	result := &LoadResult{}

	for {
		// Stop if context cancelled
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		values, err := dec.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d decode failed: %w", result.RowsLoaded+1, err)
		}
		if len(values) != len(schema) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", result.RowsLoaded+1, len(values), len(schema))
		}

		for i, v := range values {
			if err := bindValue(b, schema[i], v, l.location); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", result.RowsLoaded+1, schema[i].Name, err)
			}
		}
		if err := b.Add(); err != nil {
			return nil, err
		}
		result.RowsLoaded++

		if b.BatchWeight() >= l.maxWeight || b.BatchRows() >= maxRows {
			if err := b.Flush(ctx); err != nil {
				return nil, err
			}
			result.Flushes++
		}
	}

	if b.BatchRows() > 0 {
		result.Flushes++
	}
	if err := b.Finish(ctx); err != nil {
		return nil, err
	}
	if err := l.exec(ctx, "after_load", l.afterLoad); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (l *Loader) exec(ctx context.Context, phase, stmt string) error {
	if stmt == "" {
		return nil
	}
	db, err := l.driver.DB(ctx)
	if err != nil {
		return err
	}

	slog.Info("Running statement", "phase", phase)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s statement failed: %w", phase, err)
	}
	return nil
}
