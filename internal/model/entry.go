package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a ResultEntry.
type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
)

// DefaultLowConfidence is the threshold below which an entry is flagged for review.
const DefaultLowConfidence = 0.6

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusRemoved
}

// DetectionRecord is one text region reported by a detection backend.
type DetectionRecord struct {
	BBox       BBox
	Text       *string
	Confidence *float64
}

// ResultEntry is one persisted, user-editable detected-text record.
type ResultEntry struct {
	BBox       BBox     `json:"bbox"`
	Name       *string  `json:"name"`
	Confidence *float64 `json:"confidence"`
	Status     Status   `json:"status"`
}

// EntryFromDetection converts a detection into a fresh active entry.
func EntryFromDetection(d DetectionRecord) ResultEntry {
	return ResultEntry{
		BBox:       d.BBox.Normalize(),
		Name:       cloneString(d.Text),
		Confidence: cloneFloat(d.Confidence),
		Status:     StatusActive,
	}
}

// IsActive reports whether the entry is exported and fed to cleaning.
// An empty status is treated as active.
func (e ResultEntry) IsActive() bool {
	return e.Status != StatusRemoved
}

// IsLowConfidence reports whether a known confidence lies below threshold.
func (e ResultEntry) IsLowConfidence(threshold float64) bool {
	return e.Confidence != nil && *e.Confidence < threshold
}

// Text returns the entry name or "" when absent.
func (e ResultEntry) Text() string {
	if e.Name == nil {
		return ""
	}
	return *e.Name
}

// Clone returns a deep copy of the entry.
func (e ResultEntry) Clone() ResultEntry {
	e.Name = cloneString(e.Name)
	e.Confidence = cloneFloat(e.Confidence)
	return e
}

// EntryPatch carries the fields a caller may change on an entry. Nil fields are
// left untouched.
type EntryPatch struct {
	Name   *string `json:"name,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Validate rejects unknown statuses.
func (p EntryPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("status %q: %w", *p.Status, ErrInvalidInput)
	}
	return nil
}

// Apply mutates e with the fields present in p. Line breaks in a name are stored
// as "\n" and an empty name clears it, matching what the tabular file can hold.
func (p EntryPatch) Apply(e *ResultEntry) {
	if p.Name != nil {
		name := strings.ReplaceAll(*p.Name, "\r\n", "\n")
		name = strings.ReplaceAll(name, "\r", "\n")
		if name == "" {
			e.Name = nil
		} else {
			e.Name = &name
		}
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}

// ResultSet is the structured result file of one image.
type ResultSet struct {
	ImageFilename string        `json:"image_filename"`
	Items         []ResultEntry `json:"items"`
}

// Active returns copies of the entries that are not removed.
func (rs *ResultSet) Active() []ResultEntry {
	out := make([]ResultEntry, 0, len(rs.Items))
	for _, e := range rs.Items {
		if e.IsActive() {
			out = append(out, e.Clone())
		}
	}
	return out
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// FloatPtr returns a pointer to a copy of f.
func FloatPtr(f float64) *float64 {
	return &f
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
