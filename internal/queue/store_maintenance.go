package queue

import (
	"context"
	"fmt"
	"strings"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Retry returns failed jobs to Pending. With no ids every failed job is
// retried. It reports how many jobs were reset.
func (s *Store) Retry(ctx context.Context, ids ...string) (int64, error) {
	ctx = ensureContext(ctx)
	query := `UPDATE jobs SET status = ?, error_detail = NULL, updated_at = ? WHERE status = ?`
	args := []any{StatusPending, timestamp(), StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, strings.TrimSpace(id))
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}
