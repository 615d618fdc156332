// Package postgres provides the PostgreSQL-backed implementation of the
// persistence contracts in [github.com/voxhire/voxhire/internal/store].
//
// All entity stores share a single [pgxpool.Pool]. Methods called with a
// context produced by [TxRunner.WithinTx] automatically join that
// transaction; otherwise they run directly on the pool.
//
// Usage:
//
//	pg, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer pg.Close()
//
//	st := pg.Bundle(bus.FlushStaged)
//	err = st.Tx.WithinTx(ctx, func(ctx context.Context) error {
//		if err := st.Interviews.Create(ctx, &iv); err != nil {
//			return err
//		}
//		return st.Questions.CreateBatch(ctx, questions)
//	})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// Catalogue DDL — job roles and resumes
// ─────────────────────────────────────────────────────────────────────────────

const ddlCatalogue = `
CREATE TABLE IF NOT EXISTS job_roles (
    id          BIGSERIAL    PRIMARY KEY,
    title       TEXT         NOT NULL,
    description TEXT         NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS resumes (
    id             BIGSERIAL    PRIMARY KEY,
    user_id        BIGINT       NOT NULL,
    object_key     TEXT         NOT NULL,
    extracted_text TEXT         NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_resumes_user_id
    ON resumes (user_id);
`

// ─────────────────────────────────────────────────────────────────────────────
// Interview DDL — interviews and their generated questions
// ─────────────────────────────────────────────────────────────────────────────

const ddlInterviews = `
CREATE TABLE IF NOT EXISTS interviews (
    id             BIGSERIAL    PRIMARY KEY,
    user_id        BIGINT       NOT NULL,
    resume_id      BIGINT       NOT NULL REFERENCES resumes (id),
    job_role_id    BIGINT       NOT NULL REFERENCES job_roles (id),
    status         TEXT         NOT NULL DEFAULT 'CREATED',
    interview_type TEXT         NOT NULL DEFAULT '',
    overall_score  INT,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    completed_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_interviews_user_id
    ON interviews (user_id);

CREATE INDEX IF NOT EXISTS idx_interviews_status
    ON interviews (status);

CREATE TABLE IF NOT EXISTS questions (
    id                BIGSERIAL    PRIMARY KEY,
    interview_id      BIGINT       NOT NULL REFERENCES interviews (id) ON DELETE CASCADE,
    ordinal           INT          NOT NULL,
    text              TEXT         NOT NULL,
    category          TEXT         NOT NULL,
    difficulty        TEXT         NOT NULL,
    avatar_object_key TEXT,
    created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
    UNIQUE (interview_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_questions_interview_id
    ON questions (interview_id);
`

// ─────────────────────────────────────────────────────────────────────────────
// Answer DDL — candidate responses and generated feedback
// ─────────────────────────────────────────────────────────────────────────────

const ddlAnswers = `
CREATE TABLE IF NOT EXISTS responses (
    id                       BIGSERIAL    PRIMARY KEY,
    question_id              BIGINT       NOT NULL UNIQUE REFERENCES questions (id) ON DELETE CASCADE,
    interview_id             BIGINT       NOT NULL REFERENCES interviews (id) ON DELETE CASCADE,
    user_id                  BIGINT       NOT NULL,
    video_object_key         TEXT         NOT NULL,
    transcription            TEXT,
    transcription_confidence DOUBLE PRECISION,
    duration_seconds         DOUBLE PRECISION,
    created_at               TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_responses_interview_id
    ON responses (interview_id);

CREATE TABLE IF NOT EXISTS feedbacks (
    id                BIGSERIAL    PRIMARY KEY,
    interview_id      BIGINT       NOT NULL UNIQUE REFERENCES interviews (id) ON DELETE CASCADE,
    user_id           BIGINT       NOT NULL,
    overall_score     INT          NOT NULL,
    strengths         JSONB        NOT NULL DEFAULT '[]',
    weaknesses        JSONB        NOT NULL DEFAULT '[]',
    recommendations   JSONB        NOT NULL DEFAULT '[]',
    detailed_analysis TEXT         NOT NULL DEFAULT '',
    generated_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// ─────────────────────────────────────────────────────────────────────────────
// Cache DDL — content-addressed synthesis and render caches
// ─────────────────────────────────────────────────────────────────────────────

const ddlCaches = `
CREATE TABLE IF NOT EXISTS tts_cache (
    cache_key  TEXT         PRIMARY KEY,
    object_key TEXT         NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS avatar_cache (
    cache_key  TEXT         PRIMARY KEY,
    object_key TEXT         NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ
);
`

// Migrate creates or ensures all required database tables exist. It is
// idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlCatalogue,
		ddlInterviews,
		ddlAnswers,
		ddlCaches,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
