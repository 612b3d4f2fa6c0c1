package queue

import (
	"errors"
	"fmt"

	"convertify/internal/formats"
	"convertify/internal/services"
)

var (
	// ErrJobNotFound reports an id that is not (or no longer) in the queue.
	ErrJobNotFound = fmt.Errorf("job %w", services.ErrNotFound)
	// ErrJobRunning rejects changes to a job while it is being converted.
	ErrJobRunning = errors.New("job is running")
	// ErrJobCompleted rejects changes to a job that already succeeded.
	ErrJobCompleted = errors.New("job already succeeded")
	// ErrInvalidTransition reports a status change outside the job lifecycle.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrUnsupportedFormat marks a target format that is illegal for the job's media class.
	ErrUnsupportedFormat = errors.New("unsupported target format")
	// ErrSourceReleased reports a source whose bytes were dropped after success.
	ErrSourceReleased = errors.New("job source released")
	// ErrNoArtifact reports a job without a converted artifact.
	ErrNoArtifact = errors.New("job has no artifact")
)

// ValidationError rejects a target format selection.
type ValidationError struct {
	JobID  string
	Class  formats.MediaClass
	Format formats.Format
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q for %s job %s", ErrUnsupportedFormat, e.Format, e.Class, e.JobID)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrUnsupportedFormat, services.ErrValidation}
}

// ErrorKind classifies the error for logs and metrics.
func (e *ValidationError) ErrorKind() string { return "validation" }

// TransitionError reports a rejected status change.
type TransitionError struct {
	JobID string
	From  Status
	To    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: job %s %s -> %s", ErrInvalidTransition, e.JobID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
