package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"ocrweb/internal/model"
)

// JobRepository implements repository.JobRepository for SQLite.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new SQLite job repository.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Save inserts a job or replaces the stored row with the same id.
func (r *JobRepository) Save(job model.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job without id: %w", model.ErrInvalidInput)
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO jobs (id, image_id, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, job.ID, job.ImageID, string(job.State), job.Error, job.CreatedAt.UTC(), job.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Get retrieves a job by its id.
func (r *JobRepository) Get(id string) (model.Job, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, image_id, status, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns all jobs, oldest first.
func (r *JobRepository) List() ([]model.Job, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, image_id, status, error, created_at, updated_at
		FROM jobs ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (model.Job, error) {
	var job model.Job
	var state string
	if err := s.Scan(&job.ID, &job.ImageID, &state, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return model.Job{}, err
	}
	job.State = model.JobState(state)
	return job, nil
}
