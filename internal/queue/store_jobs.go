package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"convertify/internal/formats"
)

const sniffLength = 512

// Add enqueues file as a Pending job without a target format. The media class
// is derived from the declared type, falling back to the content.
func (s *Store) Add(ctx context.Context, file File) (*Job, error) {
	ctx = ensureContext(ctx)
	name := strings.TrimSpace(file.Name)
	if name == "" {
		return nil, errors.New("add job: file name is required")
	}
	head := file.Data
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	mediaType := strings.TrimSpace(file.MediaType)
	class := formats.Classify(mediaType, head)
	if mediaType == "" {
		mediaType = formats.Sniff(head)
	}
	data := file.Data
	if data == nil {
		data = []byte{}
	}

	id := uuid.NewString()
	now := timestamp()
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, source_name, source_size, source_media_type, media_class, source_data,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		name,
		len(file.Data),
		nullableString(mediaType),
		nullableString(string(class)),
		data,
		StatusPending,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by id. Absent jobs report ErrJobNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs in queue order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes a job and its bytes. It reports false when the job was
// already absent.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RemoveAll clears the queue regardless of job status.
func (s *Store) RemoveAll(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("remove all jobs: %w", err)
	}
	return res.RowsAffected()
}

// SetTargetFormat selects the output format of a job. Rejected calls leave
// the previous target untouched.
func (s *Store) SetTargetFormat(ctx context.Context, id string, format formats.Format) error {
	ctx = ensureContext(ctx)
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := checkEditable(job); err != nil {
		return err
	}
	if !formats.IsAllowed(job.MediaClass, format) {
		return &ValidationError{JobID: id, Class: job.MediaClass, Format: format}
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET target_format = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		string(format),
		timestamp(),
		id,
		StatusPending,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("set target format: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// The job changed between the read and the update.
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := checkEditable(current); err != nil {
			return err
		}
		return &TransitionError{JobID: id, From: current.Status, To: current.Status}
	}
	return nil
}

func checkEditable(job *Job) error {
	switch job.Status {
	case StatusRunning:
		return ErrJobRunning
	case StatusSucceeded:
		return ErrJobCompleted
	default:
		return nil
	}
}

// Source returns the bytes of a job's source file.
func (s *Store) Source(ctx context.Context, id string) ([]byte, error) {
	ctx = ensureContext(ctx)
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT source_data FROM jobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job source: %w", err)
	}
	if data == nil {
		return nil, ErrSourceReleased
	}
	return data, nil
}

// Artifact returns the converted output of a succeeded job, bytes included.
func (s *Store) Artifact(ctx context.Context, id string) (*Artifact, error) {
	ctx = ensureContext(ctx)
	var (
		name     sql.NullString
		mimeType sql.NullString
		size     sql.NullInt64
		data     []byte
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT artifact_name, artifact_mime_type, artifact_size, artifact_data FROM jobs WHERE id = ?`,
		id,
	).Scan(&name, &mimeType, &size, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job artifact: %w", err)
	}
	if !name.Valid {
		return nil, ErrNoArtifact
	}
	if data == nil {
		data = []byte{}
	}
	return &Artifact{Name: name.String, MIMEType: mimeType.String, Size: size.Int64, Data: data}, nil
}
