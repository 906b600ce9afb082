package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ocrweb/internal/model"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJobRepository_SaveGet(t *testing.T) {
	repo := NewJobRepository(setupDB(t))
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	job := model.Job{ID: "j1", ImageID: "img1", State: model.JobQueued, CreatedAt: created, UpdatedAt: created}
	if err := repo.Save(job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	job.State = model.JobError
	job.Error = "boom"
	job.UpdatedAt = created.Add(time.Minute)
	if err := repo.Save(job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get("j1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != model.JobError || got.Error != "boom" || got.ImageID != "img1" {
		t.Errorf("Unexpected job: %+v", got)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(job.UpdatedAt) {
		t.Errorf("Timestamps not preserved: %+v", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestJobRepository_ListAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	repo := NewJobRepository(db)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		created := base.Add(time.Duration(i) * time.Second)
		if err := repo.Save(model.Job{ID: id, ImageID: "img", State: model.JobDone, CreatedAt: created, UpdatedAt: created}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	jobs, err := NewJobRepository(db).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "first" || jobs[1].ID != "second" {
		t.Errorf("Unexpected jobs after reopen: %+v", jobs)
	}
}

func TestDB_Migration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	var name string
	err = db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='jobs'`).Scan(&name)
	if err != nil {
		t.Fatalf("jobs table missing: %v", err)
	}
	db.Close()

	// Migrating an existing database must be a no-op.
	db, err = New(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	db.Close()
}

func TestJobRepository_ConcurrentAccess(t *testing.T) {
	repo := NewJobRepository(setupDB(t))
	now := time.Now()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			id := string(rune('a' + i))
			job := model.Job{ID: id, ImageID: "img", State: model.JobQueued, CreatedAt: now, UpdatedAt: now}
			if err := repo.Save(job); err != nil {
				done <- err
				return
			}
			_, err := repo.Get(id)
			done <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Errorf("Concurrent access failed: %v", err)
		}
	}

	jobs, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 10 {
		t.Errorf("Expected 10 jobs, got %d", len(jobs))
	}
}
