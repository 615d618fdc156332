package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// QuestionStore implements [store.Questions] on the questions table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type QuestionStore struct {
	pool *pgxpool.Pool
}

const questionColumns = `id, interview_id, ordinal, text, category, difficulty, avatar_object_key, created_at`

// CreateBatch implements [store.Questions]. Rows are inserted one by one in
// slice order; callers wrap the batch in a transaction so a failed insert
// rolls back the whole set.
func (s *QuestionStore) CreateBatch(ctx context.Context, qs []*domain.Question) error {
	const q = `
		INSERT INTO questions (interview_id, ordinal, text, category, difficulty)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for _, question := range qs {
		err := db(ctx, s.pool).QueryRow(ctx, q,
			question.InterviewID,
			question.Ordinal,
			question.Text,
			string(question.Category),
			string(question.Difficulty),
		).Scan(&question.ID, &question.CreatedAt)
		if err != nil {
			return fmt.Errorf("question store: create batch: %w", err)
		}
	}
	return nil
}

// Get implements [store.Questions].
func (s *QuestionStore) Get(ctx context.Context, id int64) (domain.Question, error) {
	const q = `
		SELECT ` + questionColumns + `
		FROM   questions
		WHERE  id = $1`

	question, err := scanQuestion(db(ctx, s.pool).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, &domain.NotFoundError{Entity: "question"}
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("question store: get: %w", err)
	}
	return question, nil
}

// ListByInterview implements [store.Questions].
func (s *QuestionStore) ListByInterview(ctx context.Context, interviewID int64) ([]domain.Question, error) {
	const q = `
		SELECT ` + questionColumns + `
		FROM   questions
		WHERE  interview_id = $1
		ORDER  BY ordinal`

	rows, err := db(ctx, s.pool).Query(ctx, q, interviewID)
	if err != nil {
		return nil, fmt.Errorf("question store: list by interview: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Question, error) {
		return scanQuestion(row)
	})
	if err != nil {
		return nil, fmt.Errorf("question store: scan rows: %w", err)
	}
	if items == nil {
		items = []domain.Question{}
	}
	return items, nil
}

// SetAvatarKey implements [store.Questions]. The IS NULL guard makes the
// write one-shot: a concurrent double render keeps the first key.
func (s *QuestionStore) SetAvatarKey(ctx context.Context, id int64, objectKey string) error {
	const q = `
		UPDATE questions
		SET    avatar_object_key = $2
		WHERE  id = $1 AND avatar_object_key IS NULL`

	tag, err := db(ctx, s.pool).Exec(ctx, q, id, objectKey)
	if err != nil {
		return fmt.Errorf("question store: set avatar key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The guarded update cannot tell an unknown id from an already-set
		// key, so look once more.
		var set bool
		err := db(ctx, s.pool).QueryRow(ctx,
			`SELECT avatar_object_key IS NOT NULL FROM questions WHERE id = $1`, id,
		).Scan(&set)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Entity: "question"}
		}
		if err != nil {
			return fmt.Errorf("question store: set avatar key: %w", err)
		}
		if set {
			return &domain.DuplicateError{Entity: "avatar key"}
		}
		return &domain.NotFoundError{Entity: "question"}
	}
	return nil
}

// scanQuestion scans one question row in questionColumns order.
func scanQuestion(row pgx.Row) (domain.Question, error) {
	var question domain.Question
	err := row.Scan(
		&question.ID,
		&question.InterviewID,
		&question.Ordinal,
		&question.Text,
		&question.Category,
		&question.Difficulty,
		&question.AvatarObjectKey,
		&question.CreatedAt,
	)
	if err != nil {
		return domain.Question{}, err
	}
	return question, nil
}
