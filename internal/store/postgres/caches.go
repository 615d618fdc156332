package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/domain"
)

// TTSCacheStore implements [store.TTSCache] on the tts_cache table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type TTSCacheStore struct {
	pool *pgxpool.Pool
}

// Lookup implements [store.TTSCache].
func (s *TTSCacheStore) Lookup(ctx context.Context, cacheKey string) (domain.TTSCacheEntry, bool, error) {
	const q = `
		SELECT cache_key, object_key, created_at
		FROM   tts_cache
		WHERE  cache_key = $1`

	var entry domain.TTSCacheEntry
	err := db(ctx, s.pool).QueryRow(ctx, q, cacheKey).Scan(
		&entry.CacheKey,
		&entry.ObjectKey,
		&entry.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TTSCacheEntry{}, false, nil
	}
	if err != nil {
		return domain.TTSCacheEntry{}, false, fmt.Errorf("tts cache: lookup: %w", err)
	}
	return entry, true, nil
}

// Store implements [store.TTSCache]. ON CONFLICT DO NOTHING keeps the first
// row for a key; two pipelines synthesizing the same text concurrently both
// succeed.
func (s *TTSCacheStore) Store(ctx context.Context, entry domain.TTSCacheEntry) error {
	const q = `
		INSERT INTO tts_cache (cache_key, object_key)
		VALUES ($1, $2)
		ON CONFLICT (cache_key) DO NOTHING`

	if _, err := db(ctx, s.pool).Exec(ctx, q, entry.CacheKey, entry.ObjectKey); err != nil {
		return fmt.Errorf("tts cache: store: %w", err)
	}
	return nil
}

// AvatarCacheStore implements [store.AvatarCache] on the avatar_cache table.
//
// Obtain one via [Store.Bundle] rather than constructing directly.
// All methods are safe for concurrent use.
type AvatarCacheStore struct {
	pool *pgxpool.Pool
}

// Lookup implements [store.AvatarCache]. Expired rows are still returned;
// expiry is advisory and enforced by nobody.
func (s *AvatarCacheStore) Lookup(ctx context.Context, cacheKey string) (domain.AvatarCacheEntry, bool, error) {
	const q = `
		SELECT cache_key, object_key, created_at, expires_at
		FROM   avatar_cache
		WHERE  cache_key = $1`

	var entry domain.AvatarCacheEntry
	err := db(ctx, s.pool).QueryRow(ctx, q, cacheKey).Scan(
		&entry.CacheKey,
		&entry.ObjectKey,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AvatarCacheEntry{}, false, nil
	}
	if err != nil {
		return domain.AvatarCacheEntry{}, false, fmt.Errorf("avatar cache: lookup: %w", err)
	}
	return entry, true, nil
}

// Store implements [store.AvatarCache]. First writer wins on key collisions.
func (s *AvatarCacheStore) Store(ctx context.Context, entry domain.AvatarCacheEntry) error {
	const q = `
		INSERT INTO avatar_cache (cache_key, object_key, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO NOTHING`

	if _, err := db(ctx, s.pool).Exec(ctx, q, entry.CacheKey, entry.ObjectKey, entry.ExpiresAt); err != nil {
		return fmt.Errorf("avatar cache: store: %w", err)
	}
	return nil
}
