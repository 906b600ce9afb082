// Package memory keeps jobs in process memory. Jobs do not survive a restart.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"ocrweb/internal/model"
)

// JobRepository implements repository.JobRepository with a map.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

// NewJobRepository creates an empty in-memory job repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]model.Job)}
}

// Save stores a copy of job.
func (r *JobRepository) Save(job model.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job without id: %w", model.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

// Get returns the job with id.
func (r *JobRepository) Get(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return model.Job{}, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	return job, nil
}

// List returns all jobs, oldest first.
func (r *JobRepository) List() ([]model.Job, error) {
	r.mu.RLock()
	jobs := make([]model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}
