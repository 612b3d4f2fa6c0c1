package queue

import (
	"strings"
	"time"

	"convertify/internal/formats"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// File is a source file handed over by the intake collaborator.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Artifact is the converted output of a succeeded job.
type Artifact struct {
	Name     string
	MIMEType string
	Size     int64
	// Data is only populated by Store.Artifact.
	Data []byte
}

// Job is one queued file plus its requested target format and status.
type Job struct {
	ID              string
	SourceName      string
	SourceSize      int64
	SourceMediaType string
	MediaClass      formats.MediaClass
	TargetFormat    formats.Format
	Status          Status
	Artifact        *Artifact
	ErrorDetail     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasTarget reports whether a target format has been selected.
func (j Job) HasTarget() bool {
	return j.TargetFormat != ""
}

// IsTerminal reports whether the job finished its last attempt.
func (j Job) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// OutputName suggests the artifact file name: the source stem plus the
// target extension, e.g. holiday.mov -> holiday.mp4.
func OutputName(sourceName string, format formats.Format) string {
	stem := sourceName
	if idx := strings.LastIndexByte(stem, '.'); idx > 0 {
		stem = stem[:idx]
	}
	if stem == "" {
		stem = "output"
	}
	return stem + format.Extension()
}
