package api

import (
	"context"
	"errors"
	"iter"
	"strings"

	"convertify/internal/formats"
	"convertify/internal/intake"
	"convertify/internal/queue"
	"convertify/internal/runner"
)

// Service exposes the session's queue operations to UI collaborators.
type Service struct {
	store  *queue.Store
	runner *runner.Runner
	intake *intake.Intake
}

// NewService bundles the queue, runner, and intake.
func NewService(store *queue.Store, run *runner.Runner, in *intake.Intake) *Service {
	if store == nil {
		return nil
	}
	return &Service{store: store, runner: run, intake: in}
}

var errUnavailable = errors.New("api service unavailable")

// Jobs returns every job in queue order.
func (s *Service) Jobs(ctx context.Context) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, errUnavailable
	}
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job. Absent jobs return nil without error.
func (s *Service) Describe(ctx context.Context, id string) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, errUnavailable
	}
	job, err := s.store.Get(ctx, id)
	if errors.Is(err, queue.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// AddFiles hands dropped files to the intake and notifies about rejections.
func (s *Service) AddFiles(ctx context.Context, files []queue.File) (AddFilesResult, error) {
	if s == nil || s.intake == nil {
		return AddFilesResult{}, errUnavailable
	}
	jobs, rejections, err := s.intake.OnFilesDropped(ctx, files)
	result := AddFilesResult{Jobs: FromJobs(jobs), Rejected: FromRejections(rejections)}
	if len(rejections) > 0 {
		s.intake.OnFilesRejected(ctx, rejections)
	}
	return result, err
}

// SetTargetFormat selects the output format of a job. value may carry a
// leading dot or upper case letters.
func (s *Service) SetTargetFormat(ctx context.Context, id, value string) error {
	if s == nil || s.store == nil {
		return errUnavailable
	}
	format, ok := formats.ParseFormat(value)
	if !ok {
		format = formats.Format(strings.ToLower(strings.TrimSpace(value)))
	}
	return s.store.SetTargetFormat(ctx, id, format)
}

// RemoveJob removes one job; a missing job is not an error.
func (s *Service) RemoveJob(ctx context.Context, id string) (bool, error) {
	if s == nil || s.store == nil {
		return false, errUnavailable
	}
	return s.store.Remove(ctx, id)
}

// RemoveAllJobs clears the queue.
func (s *Service) RemoveAllJobs(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errUnavailable
	}
	return s.store.RemoveAll(ctx)
}

// Artifact returns the converted output of a succeeded job.
func (s *Service) Artifact(ctx context.Context, id string) (*queue.Artifact, error) {
	if s == nil || s.store == nil {
		return nil, errUnavailable
	}
	return s.store.Artifact(ctx, id)
}

// RunAll starts a run over the Pending jobs.
func (s *Service) RunAll(ctx context.Context) (iter.Seq[runner.Result], error) {
	if s == nil || s.runner == nil {
		return nil, errUnavailable
	}
	return s.runner.RunAll(ctx)
}

// Remove implements JobRemover for RemoveJobsByID.
func (s *Service) Remove(ctx context.Context, id string) (bool, error) {
	return s.RemoveJob(ctx, id)
}

// Retry implements JobRetrier for RetryFailedJobsByID.
func (s *Service) Retry(ctx context.Context, id string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errUnavailable
	}
	return s.store.Retry(ctx, id)
}
