package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// ResponseStore implements [store.Responses] on the responses table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type ResponseStore struct {
	pool *pgxpool.Pool
}

const responseColumns = `id, question_id, interview_id, user_id, video_object_key, transcription, transcription_confidence, duration_seconds, created_at`

// Create implements [store.Responses]. The UNIQUE constraint on question_id
// is the source of truth for the one-response-per-question invariant, so two
// racing confirmations cannot both land.
func (s *ResponseStore) Create(ctx context.Context, r *domain.Response) error {
	const q = `
		INSERT INTO responses (question_id, interview_id, user_id, video_object_key, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := db(ctx, s.pool).QueryRow(ctx, q,
		r.QuestionID,
		r.InterviewID,
		r.UserID,
		r.VideoObjectKey,
		r.DurationSeconds,
	).Scan(&r.ID, &r.CreatedAt)
	if isUniqueViolation(err) {
		return &domain.DuplicateError{Entity: "response"}
	}
	if err != nil {
		return fmt.Errorf("response store: create: %w", err)
	}
	return nil
}

// ListByInterview implements [store.Responses]. Results follow the ordinal
// of the answered questions.
func (s *ResponseStore) ListByInterview(ctx context.Context, interviewID int64) ([]domain.Response, error) {
	const q = `
		SELECT r.id, r.question_id, r.interview_id, r.user_id, r.video_object_key,
		       r.transcription, r.transcription_confidence, r.duration_seconds, r.created_at
		FROM   responses r
		JOIN   questions q ON q.id = r.question_id
		WHERE  r.interview_id = $1
		ORDER  BY q.ordinal`

	rows, err := db(ctx, s.pool).Query(ctx, q, interviewID)
	if err != nil {
		return nil, fmt.Errorf("response store: list by interview: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Response, error) {
		return scanResponse(row)
	})
	if err != nil {
		return nil, fmt.Errorf("response store: scan rows: %w", err)
	}
	if items == nil {
		items = []domain.Response{}
	}
	return items, nil
}

// GetByQuestion implements [store.Responses].
func (s *ResponseStore) GetByQuestion(ctx context.Context, questionID int64) (domain.Response, error) {
	const q = `
		SELECT ` + responseColumns + `
		FROM   responses
		WHERE  question_id = $1`

	r, err := scanResponse(db(ctx, s.pool).QueryRow(ctx, q, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Response{}, &domain.NotFoundError{Entity: "response"}
	}
	if err != nil {
		return domain.Response{}, fmt.Errorf("response store: get by question: %w", err)
	}
	return r, nil
}

// SetTranscription implements [store.Responses].
func (s *ResponseStore) SetTranscription(ctx context.Context, id int64, text string, confidence float64) error {
	const q = `
		UPDATE responses
		SET    transcription = $2, transcription_confidence = $3
		WHERE  id = $1`

	tag, err := db(ctx, s.pool).Exec(ctx, q, id, text, confidence)
	if err != nil {
		return fmt.Errorf("response store: set transcription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "response"}
	}
	return nil
}

// scanResponse scans one response row in responseColumns order.
func scanResponse(row pgx.Row) (domain.Response, error) {
	var r domain.Response
	err := row.Scan(
		&r.ID,
		&r.QuestionID,
		&r.InterviewID,
		&r.UserID,
		&r.VideoObjectKey,
		&r.Transcription,
		&r.TranscriptionConfidence,
		&r.DurationSeconds,
		&r.CreatedAt,
	)
	if err != nil {
		return domain.Response{}, err
	}
	return r, nil
}
