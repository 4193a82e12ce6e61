package driver

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"mysql-loader/internal/batch"
)

type PostgresDriver struct {
	dsn string
	db  *sql.DB
}

func NewPostgresDriver(dsn string) *PostgresDriver {
	return &PostgresDriver{dsn: dsn}
}

func NewPostgresDriverFromDB(db *sql.DB) *PostgresDriver {
	return &PostgresDriver{db: db}
}

func (d *PostgresDriver) Name() string {
	return "postgres"
}

func (d *PostgresDriver) Ping(ctx context.Context) error {
	db, err := d.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (d *PostgresDriver) DB(ctx context.Context) (*sql.DB, error) {
	if d.db == nil {
		// Lazy connect
		db, err := sql.Open("postgres", d.dsn)
		if err != nil {
			return nil, err
		}
		d.db = db
	}
	return d.db, nil
}

func (d *PostgresDriver) Schema(ctx context.Context, table string, columns []string) (batch.Schema, error) {
	db, err := d.DB(ctx)
	if err != nil {
		return nil, err
	}
	return introspect(ctx, db, PostgresDialect{}, table, columns)
}

// NewBatchInsert returns a plain batch insert. real and double precision
// columns store NaN and Infinity, so nothing is substituted.
func (d *PostgresDriver) NewBatchInsert(ctx context.Context, opts BatchOptions) (batch.BatchInsert, error) {
	db, err := d.DB(ctx)
	if err != nil {
		return nil, err
	}
	return batch.NewStandardBatchInsert(db, PostgresDialect{}, opts.Upsert), nil
}

func (d *PostgresDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// PostgresDialect spells identifiers with double quotes and binds with $n.
type PostgresDialect struct{}

func (PostgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (PostgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// UpsertClause is unsupported: ON CONFLICT needs the conflict target, which
// the load schema does not carry.
func (PostgresDialect) UpsertClause([]string) (string, error) {
	return "", batch.ErrUpsertUnsupported
}
