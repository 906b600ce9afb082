package repository

import (
	"ocrweb/internal/model"
)

// JobRepository stores the detection jobs issued by the manager.
type JobRepository interface {
	// Save inserts or replaces a job.
	Save(job model.Job) error

	// Get returns the job with id, or model.ErrNotFound.
	Get(id string) (model.Job, error)

	// List returns every stored job ordered by creation time.
	List() ([]model.Job, error)
}
