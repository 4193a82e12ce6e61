package worker

import (
	"context"
	"time"

	"mysql-loader/internal/loader"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// LoadJob represents a single file to be loaded into a table.
type LoadJob struct {
	// ID is the unique UUID v4 for the job.
	ID string
	// Key is the path of the input file in S3/Local storage.
	Key string
	// Table is the target table, optionally schema-qualified.
	Table string
	// Format is the input format (csv, json, excel). Empty means guess from Key.
	Format string
	// Upsert updates rows colliding on a unique key.
	Upsert bool
	// Timestamps for job lifecycle tracking.
	Submitted time.Time
	Started   time.Time
	Finished  time.Time
	// Status tracks the current state (PENDING, PROCESSING, COMPLETED, FAILED).
	Status JobStatus
	// Error holds any error encountered during processing.
	Error error
	// Stats contains metrics like rows loaded and duration.
	Stats *loader.LoadResult

	// Context manages the lifecycle/cancellation of the job.
	Ctx    context.Context
	Cancel context.CancelFunc

	done chan struct{}
}

func NewLoadJob(key, table, format string, upsert bool, timeout time.Duration) *LoadJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if format == "" {
		format = loader.FormatFromKey(key)
	}
	return &LoadJob{
		ID:        uuid.New().String(),
		Key:       key,
		Table:     table,
		Format:    format,
		Upsert:    upsert,
		Submitted: time.Now(),
		Status:    StatusPending,
		Ctx:       ctx,
		Cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Wait blocks until the job has completed or failed and returns its error.
func (j *LoadJob) Wait() error {
	<-j.done
	return j.Error
}
