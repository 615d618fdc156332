package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// ResumeStore implements [store.Resumes] on the resumes table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type ResumeStore struct {
	pool *pgxpool.Pool
}

// Create implements [store.Resumes].
func (s *ResumeStore) Create(ctx context.Context, r *domain.Resume) error {
	const q = `
		INSERT INTO resumes (user_id, object_key, extracted_text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := db(ctx, s.pool).QueryRow(ctx, q,
		r.UserID,
		r.ObjectKey,
		r.ExtractedText,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("resume store: create: %w", err)
	}
	return nil
}

// GetForUser implements [store.Resumes].
func (s *ResumeStore) GetForUser(ctx context.Context, id, userID int64) (domain.Resume, error) {
	const q = `
		SELECT id, user_id, object_key, extracted_text, created_at
		FROM   resumes
		WHERE  id = $1 AND user_id = $2`

	var r domain.Resume
	err := db(ctx, s.pool).QueryRow(ctx, q, id, userID).Scan(
		&r.ID,
		&r.UserID,
		&r.ObjectKey,
		&r.ExtractedText,
		&r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Resume{}, &domain.NotFoundError{Entity: "resume"}
	}
	if err != nil {
		return domain.Resume{}, fmt.Errorf("resume store: get for user: %w", err)
	}
	return r, nil
}
