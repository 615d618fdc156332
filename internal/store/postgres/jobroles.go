package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// JobRoleStore implements [store.JobRoles] on the job_roles table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type JobRoleStore struct {
	pool *pgxpool.Pool
}

// Get implements [store.JobRoles].
func (s *JobRoleStore) Get(ctx context.Context, id int64) (domain.JobRole, error) {
	const q = `SELECT id, title, description FROM job_roles WHERE id = $1`

	var jr domain.JobRole
	err := db(ctx, s.pool).QueryRow(ctx, q, id).Scan(&jr.ID, &jr.Title, &jr.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.JobRole{}, &domain.NotFoundError{Entity: "job role"}
	}
	if err != nil {
		return domain.JobRole{}, fmt.Errorf("job role store: get: %w", err)
	}
	return jr, nil
}

// List implements [store.JobRoles].
func (s *JobRoleStore) List(ctx context.Context) ([]domain.JobRole, error) {
	const q = `SELECT id, title, description FROM job_roles ORDER BY title`

	rows, err := db(ctx, s.pool).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("job role store: list: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.JobRole, error) {
		var jr domain.JobRole
		if err := row.Scan(&jr.ID, &jr.Title, &jr.Description); err != nil {
			return domain.JobRole{}, err
		}
		return jr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("job role store: scan rows: %w", err)
	}
	if items == nil {
		items = []domain.JobRole{}
	}
	return items, nil
}

// Create implements [store.JobRoles].
func (s *JobRoleStore) Create(ctx context.Context, jr *domain.JobRole) error {
	const q = `
		INSERT INTO job_roles (title, description)
		VALUES ($1, $2)
		RETURNING id`

	if err := db(ctx, s.pool).QueryRow(ctx, q, jr.Title, jr.Description).Scan(&jr.ID); err != nil {
		return fmt.Errorf("job role store: create: %w", err)
	}
	return nil
}
