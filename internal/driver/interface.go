package driver

import (
	"context"
	"database/sql"

	"mysql-loader/internal/batch"
)

// Driver abstracts the target database a load writes into.
type Driver interface {
	// Name returns the driver name (e.g., "mysql", "postgres").
	Name() string

	// Ping verifies the connection to the database.
	Ping(ctx context.Context) error

	// DB returns the connection pool, opening it on first use.
	DB(ctx context.Context) (*sql.DB, error)

	// Schema looks up the declared types of the given columns of table.
	Schema(ctx context.Context, table string, columns []string) (batch.Schema, error)

	// NewBatchInsert returns a batch insert suited to this database.
	NewBatchInsert(ctx context.Context, opts BatchOptions) (batch.BatchInsert, error)

	// Close closes the database connection.
	Close() error
}

// BatchOptions configures the batch inserts a Driver creates.
type BatchOptions struct {
	// Upsert updates rows that collide on a unique key instead of failing.
	Upsert bool
	// FloatNullType and DoubleNullType are bound for non-finite values when
	// the declared column type is unknown. Null (the zero value) keeps the
	// REAL and DOUBLE defaults.
	FloatNullType  batch.SQLType
	DoubleNullType batch.SQLType
}

// DefaultBatchOptions binds REAL and DOUBLE nulls.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		FloatNullType:  batch.Real,
		DoubleNullType: batch.Double,
	}
}

func (o BatchOptions) sanitizeOptions() []batch.Option {
	var opts []batch.Option
	if o.FloatNullType != batch.Null {
		opts = append(opts, batch.WithFloatNullType(o.FloatNullType))
	}
	if o.DoubleNullType != batch.Null {
		opts = append(opts, batch.WithDoubleNullType(o.DoubleNullType))
	}
	return opts
}
