package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// FeedbackStore implements [store.Feedbacks] on the feedbacks table.
//
// The three list columns are JSONB. Nil slices are written as empty JSON
// arrays and empty arrays are read back as empty slices, so callers never
// see nil.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type FeedbackStore struct {
	pool *pgxpool.Pool
}

// Create implements [store.Feedbacks].
func (s *FeedbackStore) Create(ctx context.Context, f *domain.Feedback) error {
	const q = `
		INSERT INTO feedbacks
		    (interview_id, user_id, overall_score, strengths, weaknesses, recommendations, detailed_analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, generated_at`

	err := db(ctx, s.pool).QueryRow(ctx, q,
		f.InterviewID,
		f.UserID,
		f.OverallScore,
		orEmpty(f.Strengths),
		orEmpty(f.Weaknesses),
		orEmpty(f.Recommendations),
		f.DetailedAnalysis,
	).Scan(&f.ID, &f.GeneratedAt)
	if isUniqueViolation(err) {
		return &domain.DuplicateError{Entity: "feedback"}
	}
	if err != nil {
		return fmt.Errorf("feedback store: create: %w", err)
	}
	return nil
}

// GetByInterview implements [store.Feedbacks].
func (s *FeedbackStore) GetByInterview(ctx context.Context, interviewID int64) (domain.Feedback, error) {
	const q = `
		SELECT id, interview_id, user_id, overall_score, strengths, weaknesses, recommendations, detailed_analysis, generated_at
		FROM   feedbacks
		WHERE  interview_id = $1`

	var f domain.Feedback
	err := db(ctx, s.pool).QueryRow(ctx, q, interviewID).Scan(
		&f.ID,
		&f.InterviewID,
		&f.UserID,
		&f.OverallScore,
		&f.Strengths,
		&f.Weaknesses,
		&f.Recommendations,
		&f.DetailedAnalysis,
		&f.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Feedback{}, &domain.NotFoundError{Entity: "feedback"}
	}
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("feedback store: get by interview: %w", err)
	}

	f.Strengths = orEmpty(f.Strengths)
	f.Weaknesses = orEmpty(f.Weaknesses)
	f.Recommendations = orEmpty(f.Recommendations)
	return f, nil
}

// orEmpty keeps JSONB round-trips null-free: a nil slice marshals to JSON
// null, not [].
func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
