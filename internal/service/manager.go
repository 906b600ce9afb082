// Package service runs detection jobs.
//
// The Manager owns a FIFO queue feeding a fixed pool of workers. Every job follows
// queued -> running -> {done | error}; failures inside a worker, panics included,
// only ever surface as the job's error state.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ocrweb/internal/config"
	"ocrweb/internal/logger"
	"ocrweb/internal/model"
	"ocrweb/internal/repository"
	"ocrweb/internal/service/ocr"

	"github.com/gofrs/uuid"
)

// ImageResolver maps image identifiers to stored files.
type ImageResolver interface {
	Resolve(imageID string) (string, error)
	Path(storedFilename string) string
	IDs() []string
}

// ResultWriter persists the entries produced by a job.
type ResultWriter interface {
	Replace(imageID, filename string, entries []model.ResultEntry) error
}

// Notifier is told about every job state change.
type Notifier interface {
	PublishJob(job model.Job)
}

// BatchResult is the outcome of submitting one image of a batch.
type BatchResult struct {
	ImageID string
	Job     model.Job
	Err     error
}

type Manager struct {
	images   ImageResolver
	results  ResultWriter
	backend  ocr.Backend
	jobs     repository.JobRepository
	notifier Notifier
	logger   *logger.Logger

	processingQueue chan string // job ids
	numWorkers      int

	queueMu sync.RWMutex // guards closed and sends on processingQueue
	closed  bool
	jobsMu  sync.Mutex // serializes job read-modify-write
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewManager starts config.ProcessingWorkers workers. Jobs a previous process left
// queued are enqueued again; jobs it left running are marked as failed. notifier
// may be nil.
func NewManager(images ImageResolver, results ResultWriter, backend ocr.Backend, jobs repository.JobRepository, notifier Notifier, config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		images:          images,
		results:         results,
		backend:         backend,
		jobs:            jobs,
		notifier:        notifier,
		logger:          logger,
		numWorkers:      max(1, config.ProcessingWorkers),
		processingQueue: make(chan string, max(1, config.QueueCapacity)),
		now:             time.Now,
	}

	pending := manager.recoverJobs()

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	if len(pending) > 0 {
		go func() {
			for _, id := range pending {
				if err := manager.enqueue(id); err != nil {
					manager.logger.Warning("Could not requeue job %s: %v", id, err)
				}
			}
		}()
	}

	manager.logger.Info("🎬 Manager started - %d worker(s), queue capacity %d", manager.numWorkers, cap(manager.processingQueue))
	return manager
}

// Submit creates a job for imageID and queues it. Unknown images fail with
// model.ErrNotFound without creating a job. Submit blocks only while the queue is
// full.
func (m *Manager) Submit(imageID string) (model.Job, error) {
	if _, err := m.images.Resolve(imageID); err != nil {
		return model.Job{}, err
	}

	m.queueMu.RLock()
	defer m.queueMu.RUnlock()
	if m.closed {
		return model.Job{}, model.ErrQueueClosed
	}

	id, err := uuid.NewV4()
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to generate job id: %w", err)
	}

	now := m.now()
	job := model.Job{ID: id.String(), ImageID: imageID, State: model.JobQueued, CreatedAt: now, UpdatedAt: now}
	if err := m.jobs.Save(job); err != nil {
		return model.Job{}, fmt.Errorf("failed to record job: %w", err)
	}
	m.publish(job)

	m.processingQueue <- job.ID
	m.logger.Info("📥 Job %s queued for image %s", job.ID, imageID)
	return job, nil
}

// SubmitBatch submits every image in imageIDs independently, or every known image
// when imageIDs is empty. A failure for one image does not affect the others.
func (m *Manager) SubmitBatch(imageIDs []string) []BatchResult {
	if len(imageIDs) == 0 {
		imageIDs = m.images.IDs()
	}

	results := make([]BatchResult, 0, len(imageIDs))
	for _, imageID := range imageIDs {
		job, err := m.Submit(imageID)
		results = append(results, BatchResult{ImageID: imageID, Job: job, Err: err})
	}
	return results
}

// Poll returns the job with jobID. Identifiers that were never issued yield a job
// in state model.JobUnknown.
func (m *Manager) Poll(jobID string) model.Job {
	job, err := m.jobs.Get(jobID)
	if err != nil {
		return model.Job{ID: jobID, State: model.JobUnknown}
	}
	return job
}

// Jobs lists all recorded jobs, oldest first.
func (m *Manager) Jobs() ([]model.Job, error) {
	return m.jobs.List()
}

// Stop refuses new submissions, lets the workers finish every queued job and
// waits for them.
func (m *Manager) Stop() {
	m.queueMu.Lock()
	if m.closed {
		m.queueMu.Unlock()
		return
	}
	m.closed = true
	close(m.processingQueue)
	m.queueMu.Unlock()

	m.wg.Wait()
	m.logger.Info("🛑 All processing workers stopped")
}

func (m *Manager) enqueue(jobID string) error {
	m.queueMu.RLock()
	defer m.queueMu.RUnlock()
	if m.closed {
		return model.ErrQueueClosed
	}
	m.processingQueue <- jobID
	return nil
}

// recoverJobs fails jobs that were running when the previous process ended and
// returns the ids of jobs that never started.
func (m *Manager) recoverJobs() []string {
	jobs, err := m.jobs.List()
	if err != nil {
		m.logger.Error("Failed to list stored jobs: %v", err)
		return nil
	}

	var pending []string
	for _, job := range jobs {
		switch job.State {
		case model.JobQueued:
			pending = append(pending, job.ID)
		case model.JobRunning:
			m.transition(job.ID, model.JobError, errors.New("interrupted by restart"))
		}
	}
	if len(pending) > 0 {
		m.logger.Info("♻️  Requeueing %d job(s) from a previous run", len(pending))
	}
	return pending
}

// processingWorker runs jobs until the queue is closed and drained.
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("🔧 Processing worker %d started", workerID)

	for jobID := range m.processingQueue {
		m.processJob(jobID, workerID)
	}

	m.logger.Info("🔧 Processing worker %d stopped", workerID)
}

func (m *Manager) processJob(jobID string, workerID int) {
	job, ok := m.transition(jobID, model.JobRunning, nil)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Worker %d panicked on job %s: %v", workerID, jobID, r)
			m.transition(jobID, model.JobError, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := m.runDetection(job); err != nil {
		m.logger.Error("Job %s for image %s failed: %v", jobID, job.ImageID, err)
		m.transition(jobID, model.JobError, err)
		return
	}

	m.transition(jobID, model.JobDone, nil)
	m.logger.Info("✅ Job %s done (worker %d)", jobID, workerID)
}

func (m *Manager) runDetection(job model.Job) error {
	stored, err := m.images.Resolve(job.ImageID)
	if err != nil {
		return err
	}

	path := m.images.Path(stored)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stored file of image %s: %w", job.ImageID, err)
	}

	records, err := m.backend.Detect(context.Background(), path)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	entries := make([]model.ResultEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, model.EntryFromDetection(r))
	}

	if err := m.results.Replace(job.ImageID, stored, entries); err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	return nil
}

// transition moves a job to next when the state machine allows it and reports
// whether it did.
func (m *Manager) transition(jobID string, next model.JobState, cause error) (model.Job, bool) {
	m.jobsMu.Lock()

	job, err := m.jobs.Get(jobID)
	if err != nil {
		m.jobsMu.Unlock()
		m.logger.Error("Job %s vanished before %s: %v", jobID, next, err)
		return model.Job{}, false
	}
	if !job.State.CanTransition(next) {
		m.jobsMu.Unlock()
		m.logger.Warning("Ignoring transition of job %s from %s to %s", jobID, job.State, next)
		return job, false
	}

	job.State = next
	job.UpdatedAt = m.now()
	if cause != nil {
		job.Error = cause.Error()
	}
	if err := m.jobs.Save(job); err != nil {
		m.jobsMu.Unlock()
		m.logger.Error("Failed to record job %s as %s: %v", jobID, next, err)
		return job, false
	}
	m.jobsMu.Unlock()

	m.publish(job)
	return job, true
}

func (m *Manager) publish(job model.Job) {
	if m.notifier != nil {
		m.notifier.PublishJob(job)
	}
}
