package queue

import (
	"context"
	"errors"
	"fmt"
)

// MarkRunning moves a Pending job with a target format to Running.
func (s *Store) MarkRunning(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_detail = NULL, updated_at = ?
         WHERE id = ? AND status = ? AND target_format IS NOT NULL`,
		StatusRunning,
		timestamp(),
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("mark job running: %w", err)
	}
	if err := s.checkTransition(ctx, res, id, StatusRunning); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// MarkSucceeded stores the artifact of a Running job and releases its source.
func (s *Store) MarkSucceeded(ctx context.Context, id string, artifact Artifact) error {
	ctx = ensureContext(ctx)
	data := artifact.Data
	if data == nil {
		data = []byte{}
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, artifact_name = ?, artifact_mime_type = ?, artifact_size = ?,
             artifact_data = ?, source_data = NULL, error_detail = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusSucceeded,
		artifact.Name,
		nullableString(artifact.MIMEType),
		len(data),
		data,
		timestamp(),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}
	return s.checkTransition(ctx, res, id, StatusSucceeded)
}

// MarkFailed records the failure detail of a Running job. The source is kept
// so the job can be retried.
func (s *Store) MarkFailed(ctx context.Context, id string, detail string) error {
	ctx = ensureContext(ctx)
	if detail == "" {
		detail = "conversion failed"
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_detail = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		detail,
		timestamp(),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return s.checkTransition(ctx, res, id, StatusFailed)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// checkTransition turns a conditional UPDATE that touched nothing into
// ErrJobNotFound or a TransitionError.
func (s *Store) checkTransition(ctx context.Context, res rowsAffecter, id string, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	return &TransitionError{JobID: id, From: current.Status, To: to}
}
