package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// InterviewStore implements [store.Interviews] on the interviews table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type InterviewStore struct {
	pool *pgxpool.Pool
}

const interviewColumns = `id, user_id, resume_id, job_role_id, status, interview_type, overall_score, created_at, completed_at`

// Create implements [store.Interviews].
func (s *InterviewStore) Create(ctx context.Context, iv *domain.Interview) error {
	const q = `
		INSERT INTO interviews (user_id, resume_id, job_role_id, status, interview_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	status := iv.Status
	if status == "" {
		status = domain.StatusCreated
	}

	err := db(ctx, s.pool).QueryRow(ctx, q,
		iv.UserID,
		iv.ResumeID,
		iv.JobRoleID,
		string(status),
		iv.InterviewType,
	).Scan(&iv.ID, &iv.CreatedAt)
	if err != nil {
		return fmt.Errorf("interview store: create: %w", err)
	}
	iv.Status = status
	return nil
}

// Get implements [store.Interviews].
func (s *InterviewStore) Get(ctx context.Context, id int64) (domain.Interview, error) {
	const q = `
		SELECT ` + interviewColumns + `
		FROM   interviews
		WHERE  id = $1`

	return s.getOne(ctx, q, id)
}

// GetForUser implements [store.Interviews].
func (s *InterviewStore) GetForUser(ctx context.Context, id, userID int64) (domain.Interview, error) {
	const q = `
		SELECT ` + interviewColumns + `
		FROM   interviews
		WHERE  id = $1 AND user_id = $2`

	return s.getOne(ctx, q, id, userID)
}

func (s *InterviewStore) getOne(ctx context.Context, q string, args ...any) (domain.Interview, error) {
	iv, err := scanInterview(db(ctx, s.pool).QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Interview{}, &domain.NotFoundError{Entity: "interview"}
	}
	if err != nil {
		return domain.Interview{}, fmt.Errorf("interview store: get: %w", err)
	}
	return iv, nil
}

// ListByUser implements [store.Interviews].
func (s *InterviewStore) ListByUser(ctx context.Context, userID int64) ([]domain.Interview, error) {
	const q = `
		SELECT ` + interviewColumns + `
		FROM   interviews
		WHERE  user_id = $1
		ORDER  BY created_at DESC, id DESC`

	rows, err := db(ctx, s.pool).Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("interview store: list by user: %w", err)
	}
	return collectInterviews(rows)
}

// TransitionStatus implements [store.Interviews]. The UPDATE is guarded by
// the expected current status, making concurrent transitions race-safe: only
// one writer observes a row change, everyone else gets the loser's error.
func (s *InterviewStore) TransitionStatus(ctx context.Context, id int64, from, to domain.Status) error {
	const q = `
		UPDATE interviews
		SET    status = $3,
		       completed_at = CASE WHEN $3 = 'PROCESSING' THEN now() ELSE completed_at END
		WHERE  id = $1 AND status = $2`

	tag, err := db(ctx, s.pool).Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("interview store: transition status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The guard failed. Re-read to distinguish a missing row from a row in
	// a different state, and report the actual state in the error.
	const current = `SELECT status FROM interviews WHERE id = $1`

	var actual domain.Status
	err = db(ctx, s.pool).QueryRow(ctx, current, id).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.NotFoundError{Entity: "interview"}
	}
	if err != nil {
		return fmt.Errorf("interview store: transition status: %w", err)
	}
	return &domain.IllegalStateError{From: actual, To: to}
}

// SetOverallScore implements [store.Interviews].
func (s *InterviewStore) SetOverallScore(ctx context.Context, id int64, score int) error {
	const q = `UPDATE interviews SET overall_score = $2 WHERE id = $1`

	tag, err := db(ctx, s.pool).Exec(ctx, q, id, score)
	if err != nil {
		return fmt.Errorf("interview store: set overall score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "interview"}
	}
	return nil
}

// ListStuck implements [store.Interviews]. Age is measured from completed_at
// when set (the moment the interview entered PROCESSING) and created_at
// otherwise.
func (s *InterviewStore) ListStuck(ctx context.Context, status domain.Status, olderThan time.Duration) ([]domain.Interview, error) {
	const q = `
		SELECT ` + interviewColumns + `
		FROM   interviews
		WHERE  status = $1
		  AND  COALESCE(completed_at, created_at) < now() - ($2::bigint * interval '1 microsecond')
		ORDER  BY id`

	rows, err := db(ctx, s.pool).Query(ctx, q, string(status), olderThan.Microseconds())
	if err != nil {
		return nil, fmt.Errorf("interview store: list stuck: %w", err)
	}
	return collectInterviews(rows)
}

// scanInterview scans one interview row in interviewColumns order.
func scanInterview(row pgx.Row) (domain.Interview, error) {
	var iv domain.Interview
	err := row.Scan(
		&iv.ID,
		&iv.UserID,
		&iv.ResumeID,
		&iv.JobRoleID,
		&iv.Status,
		&iv.InterviewType,
		&iv.OverallScore,
		&iv.CreatedAt,
		&iv.CompletedAt,
	)
	if err != nil {
		return domain.Interview{}, err
	}
	return iv, nil
}

// collectInterviews scans pgx rows into a slice of interviews.
func collectInterviews(rows pgx.Rows) ([]domain.Interview, error) {
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Interview, error) {
		return scanInterview(row)
	})
	if err != nil {
		return nil, fmt.Errorf("interview store: scan rows: %w", err)
	}
	if items == nil {
		items = []domain.Interview{}
	}
	return items, nil
}
