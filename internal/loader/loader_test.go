package loader

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysql-loader/internal/driver"
	"mysql-loader/internal/security"
)

func newMySQL(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *driver.MySQLDriver) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock, driver.NewMySQLDriverFromDB(db)
}

func expectMetricsSchema(mock sqlmock.Sqlmock) {
	rows := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("score").OfType("DOUBLE", float64(0)),
		sqlmock.NewColumn("ratio").OfType("FLOAT", float64(0)),
	)
	mock.ExpectQuery("SELECT `id`, `score`, `ratio` FROM `metrics` WHERE 1=0").WillReturnRows(rows)
}

// JSON headers come back sorted
func expectSortedMetricsSchema(mock sqlmock.Sqlmock) {
	rows := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("ratio").OfType("FLOAT", float64(0)),
		sqlmock.NewColumn("score").OfType("DOUBLE", float64(0)),
	)
	mock.ExpectQuery("SELECT `id`, `ratio`, `score` FROM `metrics` WHERE 1=0").WillReturnRows(rows)
}

func TestLoadCSVSubstitutesNonFinite(t *testing.T) {
	ctx := context.Background()
	_, mock, d := newMySQL(t)
	expectMetricsSchema(mock)

	in := "id,score,ratio\n1,0.5,3.14\n2,NaN,-Inf\n3,Infinity,1e39\n"

	mock.ExpectExec("INSERT INTO `metrics` (`id`, `score`, `ratio`) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)").
		WithArgs(
			int64(1), 0.5, float32(3.14),
			int64(2), nil, nil,
			int64(3), nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 3))

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)
	defer b.Close()

	res, err := NewLoader(d, 0).Load(ctx, "metrics", NewCSVDecoder(strings.NewReader(in)), b)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsLoaded)
	assert.Equal(t, 1, res.Flushes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFlushesByWeight(t *testing.T) {
	ctx := context.Background()
	_, mock, d := newMySQL(t)
	expectSortedMetricsSchema(mock)

	in := `{"id": 1, "score": 1.5, "ratio": 2}
{"id": 2, "score": "NaN", "ratio": null}
{"id": 3, "score": 4, "ratio": 0.5}
`
	// 64 + 52 crosses the limit on the second row
	mock.ExpectExec("INSERT INTO `metrics` (`id`, `ratio`, `score`) VALUES (?, ?, ?), (?, ?, ?)").
		WithArgs(int64(1), float32(2), 1.5, int64(2), nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO `metrics` (`id`, `ratio`, `score`) VALUES (?, ?, ?)").
		WithArgs(int64(3), float32(0.5), 4.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)
	defer b.Close()

	res, err := NewLoader(d, 100).Load(ctx, "metrics", NewJSONDecoder(strings.NewReader(in)), b)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsLoaded)
	assert.Equal(t, 2, res.Flushes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPropagatesFlushError(t *testing.T) {
	ctx := context.Background()
	_, mock, d := newMySQL(t)
	expectMetricsSchema(mock)
	mock.ExpectExec("INSERT INTO `metrics` (`id`, `score`, `ratio`) VALUES (?, ?, ?)").
		WillReturnError(assert.AnError)

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)

	_, err = NewLoader(d, 0).Load(ctx, "metrics", NewCSVDecoder(strings.NewReader("id,score,ratio\n1,2,3\n")), b)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoadRejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	_, _, d := newMySQL(t)
	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)

	_, err = NewLoader(d, 0).Load(ctx, "mysql.user", NewCSVDecoder(strings.NewReader("a\n1\n")), b)
	assert.ErrorIs(t, err, security.ErrSystemSchema)

	_, err = NewLoader(d, 0).Load(ctx, "t", NewCSVDecoder(strings.NewReader("a b\n1\n")), b)
	assert.ErrorIs(t, err, security.ErrInvalidIdentifier)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, mock, d := newMySQL(t)
	expectMetricsSchema(mock)

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)

	cancel()
	_, err = NewLoader(d, 0).Load(ctx, "metrics", NewCSVDecoder(strings.NewReader("id,score,ratio\n1,2,3\n")), b)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRunsBeforeAndAfterStatements(t *testing.T) {
	ctx := context.Background()
	_, mock, d := newMySQL(t)
	expectMetricsSchema(mock)

	mock.ExpectExec("DELETE FROM metrics WHERE id >= 100").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO `metrics` (`id`, `score`, `ratio`) VALUES (?, ?, ?)").
		WithArgs(int64(100), nil, float32(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("ANALYZE TABLE metrics").
		WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)
	defer b.Close()

	l := NewLoader(d, 0,
		WithBeforeLoad("DELETE FROM metrics WHERE id >= 100"),
		WithAfterLoad("ANALYZE TABLE metrics"),
	)
	res, err := l.Load(ctx, "metrics", NewCSVDecoder(strings.NewReader("id,score,ratio\n100,Inf,1\n")), b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsLoaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBeforeStatementFailureSkipsRows(t *testing.T) {
	ctx := context.Background()
	_, mock, d := newMySQL(t)
	expectMetricsSchema(mock)
	mock.ExpectExec("TRUNCATE metrics").WillReturnError(assert.AnError)

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)
	defer b.Close()

	_, err = NewLoader(d, 0, WithBeforeLoad("TRUNCATE metrics")).
		Load(ctx, "metrics", NewCSVDecoder(strings.NewReader("id,score,ratio\n1,2,3\n")), b)
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "before_load")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadUsesLocationForTimestamps(t *testing.T) {
	ctx := context.Background()
	_, mock, d := newMySQL(t)

	rows := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("at").OfType("DATETIME", time.Time{}),
	)
	mock.ExpectQuery("SELECT `at` FROM `events` WHERE 1=0").WillReturnRows(rows)

	jst := time.FixedZone("JST", 9*60*60)
	mock.ExpectExec("INSERT INTO `events` (`at`) VALUES (?)").
		WithArgs(time.Date(2024, 5, 1, 12, 0, 0, 0, jst)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := d.NewBatchInsert(ctx, driver.DefaultBatchOptions())
	require.NoError(t, err)
	defer b.Close()

	_, err = NewLoader(d, 0, WithLocation(jst)).
		Load(ctx, "events", NewCSVDecoder(strings.NewReader("at\n2024-05-01 12:00:00\n")), b)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
