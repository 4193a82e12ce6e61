package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mysql-loader/internal/driver"
	"mysql-loader/internal/loader"
	"mysql-loader/internal/storage"

	"golang.org/x/sync/semaphore"
)

// ErrPoolStopped fails jobs that were still queued when the pool stopped.
var ErrPoolStopped = errors.New("worker pool stopped")

// Pool manages concurrent load jobs and limits database load.
// It implements a worker pool pattern with a separate semaphore for DB connections,
// allowing for fine-grained control over resource usage.
type Pool struct {
	// jobQueue allows for buffering incoming requests before workers pick them up.
	jobQueue chan *LoadJob
	workers  int
	// dbSem restricts the number of concurrent loads writing to the database.
	dbSem *semaphore.Weighted
	wg    sync.WaitGroup
	quit  chan struct{}
	// mu is held shared while queueing and exclusively while draining on Stop.
	mu       sync.RWMutex
	stopOnce sync.Once

	driver  driver.Driver
	storage storage.Provider
	opts    driver.BatchOptions
	loader  *loader.Loader
}

// NewPool initializes a worker pool with the specified configuration.
// It does not start the workers; call Start() to begin processing.
func NewPool(workers int, maxDBConcurrency int64, d driver.Driver, store storage.Provider, opts driver.BatchOptions, ld *loader.Loader) *Pool {
	return &Pool{
		jobQueue: make(chan *LoadJob, 100), // Bounded buffer to prevent infinite memory growth
		workers:  workers,
		dbSem:    semaphore.NewWeighted(maxDBConcurrency),
		quit:     make(chan struct{}),
		driver:   d,
		storage:  store,
		opts:     opts,
		loader:   ld,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Worker pool started", "workers", p.workers)
}

// Submit queues job without blocking. It returns false if the queue is full
// or the pool is stopping.
func (p *Pool) Submit(job *LoadJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopping() {
		return false
	}

	select {
	case p.jobQueue <- job:
		return true
	default:
		// Queue full
		return false
	}
}

// Enqueue queues job, waiting for room in the queue.
func (p *Pool) Enqueue(ctx context.Context, job *LoadJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopping() {
		return ErrPoolStopped
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-p.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop initiates graceful shutdown. Running jobs finish; jobs still queued
// fail with ErrPoolStopped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()

		p.mu.Lock()
		defer p.mu.Unlock()
		for {
			select {
			case job := <-p.jobQueue:
				p.failJob(job, ErrPoolStopped)
				job.Cancel()
				close(job.done)
			default:
				slog.Info("Worker pool stopped")
				return
			}
		}
	})
}

func (p *Pool) stopping() bool {
	select {
	case <-p.quit:
		return true
	default:
		return false
	}
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *LoadJob) {
	defer close(job.done)
	defer job.Cancel()

	slog.Info("Processing job", "worker_id", workerID, "job_id", job.ID, "key", job.Key, "table", job.Table)

	job.Started = time.Now()
	job.Status = StatusProcessing
	waitTime := job.Started.Sub(job.Submitted)

	// 1. Acquire DB Semaphore
	if err := p.dbSem.Acquire(job.Ctx, 1); err != nil {
		p.failJob(job, fmt.Errorf("failed to acquire db connection: %w", err))
		return
	}

	err := p.executeLoad(job)
	p.dbSem.Release(1)

	if err != nil {
		p.failJob(job, err)
		return
	}

	job.Status = StatusCompleted
	job.Finished = time.Now()

	slog.Info("Job completed",
		"job_id", job.ID,
		"source", p.storage.GetURL(job.Key),
		"table", job.Table,
		"rows", job.Stats.RowsLoaded,
		"flushes", job.Stats.Flushes,
		"wait", waitTime,
		"load_duration", job.Stats.Duration,
		"total_duration", job.Finished.Sub(job.Started),
	)
}

func (p *Pool) executeLoad(job *LoadJob) error {
	// Open input (gunzipped if the key ends in .gz)
	rc, err := storage.Open(job.Ctx, p.storage, job.Key)
	if err != nil {
		return fmt.Errorf("open input failed: %w", err)
	}
	defer rc.Close()

	dec, err := loader.NewDecoder(job.Format, rc)
	if err != nil {
		return err
	}
	defer dec.Close()

	opts := p.opts
	opts.Upsert = job.Upsert
	b, err := p.driver.NewBatchInsert(job.Ctx, opts)
	if err != nil {
		return fmt.Errorf("batch setup failed: %w", err)
	}
	defer b.Close()

	stats, err := p.loader.Load(job.Ctx, job.Table, dec, b)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	job.Stats = stats
	return nil
}

func (p *Pool) failJob(job *LoadJob, err error) {
	job.Status = StatusFailed
	job.Error = err
	job.Finished = time.Now()
	slog.Error("Job failed", "job_id", job.ID, "key", job.Key, "error", err)
}
