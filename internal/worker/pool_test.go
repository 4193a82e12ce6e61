package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysql-loader/internal/driver"
	"mysql-loader/internal/loader"
	"mysql-loader/internal/storage"
)

func newTestPool(t *testing.T, files map[string]string) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d := driver.NewMySQLDriverFromDB(db)
	p := NewPool(1, 1, d, storage.NewLocalProvider(dir), driver.DefaultBatchOptions(), loader.NewLoader(d, 0))
	p.Start()
	t.Cleanup(p.Stop)
	return p, mock
}

func TestPoolLoadsFile(t *testing.T) {
	p, mock := newTestPool(t, map[string]string{
		"readings.csv": "sensor,value\na,1.5\nb,NaN\n",
	})

	rows := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("sensor").OfType("VARCHAR", ""),
		sqlmock.NewColumn("value").OfType("DOUBLE", float64(0)),
	)
	mock.ExpectQuery("SELECT `sensor`, `value` FROM `readings` WHERE 1=0").WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO `readings` (`sensor`, `value`) VALUES (?, ?), (?, ?) ON DUPLICATE KEY UPDATE `sensor` = VALUES(`sensor`), `value` = VALUES(`value`)").
		WithArgs("a", 1.5, "b", nil).
		WillReturnResult(sqlmock.NewResult(0, 2))

	job := NewLoadJob("readings.csv", "readings", "", true, time.Minute)
	assert.Equal(t, "csv", job.Format)
	require.True(t, p.Submit(job))

	require.NoError(t, job.Wait())
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, int64(2), job.Stats.RowsLoaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolMissingFileFails(t *testing.T) {
	p, _ := newTestPool(t, nil)

	job := NewLoadJob("missing.json", "readings", "", false, time.Minute)
	assert.Equal(t, "json", job.Format)
	require.True(t, p.Submit(job))

	err := job.Wait()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Nil(t, job.Stats)
}

// newIdlePool returns a pool whose workers are never started, so queued
// jobs stay in the queue.
func newIdlePool(t *testing.T) *Pool {
	t.Helper()
	p := NewPool(1, 1, nil, storage.NewLocalProvider(t.TempDir()), driver.DefaultBatchOptions(), nil)
	t.Cleanup(p.Stop)
	return p
}

func fillQueue(t *testing.T, p *Pool) {
	t.Helper()
	for i := 0; i < cap(p.jobQueue); i++ {
		require.True(t, p.Submit(NewLoadJob("a.csv", "t", "", false, time.Minute)))
	}
}

func TestPoolStopFailsQueuedJobs(t *testing.T) {
	p := newIdlePool(t)

	job := NewLoadJob("a.csv", "t", "", false, time.Minute)
	require.True(t, p.Submit(job))
	p.Stop()

	done := make(chan error, 1)
	go func() { done <- job.Wait() }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPoolStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked after Stop")
	}
	assert.Equal(t, StatusFailed, job.Status)
	assert.ErrorIs(t, job.Ctx.Err(), context.Canceled)
}

func TestPoolSubmitQueueFull(t *testing.T) {
	p := newIdlePool(t)
	fillQueue(t, p)

	assert.False(t, p.Submit(NewLoadJob("b.csv", "t", "", false, time.Minute)))
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := newIdlePool(t)
	p.Stop()

	assert.False(t, p.Submit(NewLoadJob("a.csv", "t", "", false, time.Minute)))

	err := p.Enqueue(context.Background(), NewLoadJob("a.csv", "t", "", false, time.Minute))
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPoolEnqueueHonorsContext(t *testing.T) {
	p := newIdlePool(t)
	fillQueue(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Enqueue(ctx, NewLoadJob("b.csv", "t", "", false, time.Minute))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolEnqueueWaitsForRoom(t *testing.T) {
	p := newIdlePool(t)
	fillQueue(t, p)

	errc := make(chan error, 1)
	go func() {
		errc <- p.Enqueue(context.Background(), NewLoadJob("b.csv", "t", "", false, time.Minute))
	}()

	// free one slot
	<-p.jobQueue

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue did not take the free slot")
	}
}
