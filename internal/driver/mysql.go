package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"mysql-loader/internal/batch"
)

type MySQLDriver struct {
	dsn string
	db  *sql.DB
}

func NewMySQLDriver(dsn string) *MySQLDriver {
	return &MySQLDriver{dsn: dsn}
}

// NewMySQLDriverFromDB wraps an already opened pool.
func NewMySQLDriverFromDB(db *sql.DB) *MySQLDriver {
	return &MySQLDriver{db: db}
}

func (d *MySQLDriver) Name() string {
	return "mysql"
}

func (d *MySQLDriver) Ping(ctx context.Context) error {
	db, err := d.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (d *MySQLDriver) DB(ctx context.Context) (*sql.DB, error) {
	if d.db == nil {
		// Lazy connect
		cfg, err := mysql.ParseDSN(d.dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		d.db = sql.OpenDB(connector)
	}
	return d.db, nil
}

func (d *MySQLDriver) Schema(ctx context.Context, table string, columns []string) (batch.Schema, error) {
	db, err := d.DB(ctx)
	if err != nil {
		return nil, err
	}
	return introspect(ctx, db, MySQLDialect{}, table, columns)
}

// NewBatchInsert returns a batch insert whose float and double setters bind
// NULL for NaN and infinities, which MySQL rejects.
func (d *MySQLDriver) NewBatchInsert(ctx context.Context, opts BatchOptions) (batch.BatchInsert, error) {
	db, err := d.DB(ctx)
	if err != nil {
		return nil, err
	}
	return batch.SanitizeBatch(
		batch.NewStandardBatchInsert(db, MySQLDialect{}, opts.Upsert),
		opts.sanitizeOptions()...,
	), nil
}

func (d *MySQLDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// MySQLDialect spells identifiers with backticks and binds with "?".
type MySQLDialect struct{}

func (MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQLDialect) Placeholder(int) string {
	return "?"
}

func (d MySQLDialect) UpsertClause(columns []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("ON DUPLICATE KEY UPDATE ")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		q := d.QuoteIdentifier(c)
		sb.WriteString(q)
		sb.WriteString(" = VALUES(")
		sb.WriteString(q)
		sb.WriteString(")")
	}
	return sb.String(), nil
}
