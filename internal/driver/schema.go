package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mysql-loader/internal/batch"
)

// introspect reads the declared column types of table without fetching rows.
func introspect(ctx context.Context, db *sql.DB, d batch.Dialect, table string, columns []string) (batch.Schema, error) {
	if len(columns) == 0 {
		return nil, batch.ErrEmptySchema
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=0", strings.Join(quoted, ", "), batch.QuoteQualified(d, table))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	if len(types) != len(columns) {
		return nil, fmt.Errorf("table %s returned %d columns, expected %d", table, len(types), len(columns))
	}

	schema := make(batch.Schema, len(types))
	for i, ct := range types {
		name := ct.DatabaseTypeName()
		schema[i] = batch.Column{
			Name:     columns[i],
			TypeName: name,
			Type:     batch.TypeFromDatabaseName(name),
		}
	}
	return schema, rows.Err()
}
