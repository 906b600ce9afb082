package model

import "time"

// JobState is the state of a detection job.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobError   JobState = "error"
	// JobUnknown is reported for identifiers that were never issued or have been
	// forgotten. It is never stored.
	JobUnknown JobState = "unknown"
)

// Terminal reports whether no further transition is possible.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobError
}

// CanTransition reports whether s -> next is an edge of
// queued -> running -> {done | error}.
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case JobQueued:
		return next == JobRunning
	case JobRunning:
		return next == JobDone || next == JobError
	default:
		return false
	}
}

// Job is one request to run detection on an image.
type Job struct {
	ID        string    `json:"job_id"`
	ImageID   string    `json:"image_id"`
	State     JobState  `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
