package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billiards-bug/scoreboard/internal/domain"
)

const (
	loadMatchSQL = `
SELECT document, revision, created_at, updated_at
FROM matches
WHERE id = $1`

	createMatchSQL = `
INSERT INTO matches (id, document, revision, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

	// The conflict branch only updates when the stored revision is the one
	// the caller read; otherwise no row is affected.
	saveMatchSQL = `
INSERT INTO matches (id, document, revision, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET document = EXCLUDED.document,
    revision = EXCLUDED.revision,
    updated_at = EXCLUDED.updated_at
WHERE matches.revision = $6`
)

// MatchRepo stores the match as a JSONB document in a single-row table.
type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

var _ domain.MatchRepository = (*MatchRepo)(nil)

func (r *MatchRepo) Load(ctx context.Context) (*domain.MatchRecord, error) {
	var rec domain.MatchRecord
	err := r.pool.QueryRow(ctx, loadMatchSQL, domain.MatchID).
		Scan(&rec.Document, &rec.Revision, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func (r *MatchRepo) Create(ctx context.Context, rec domain.MatchRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx, createMatchSQL,
		domain.MatchID, rec.Document, rec.Revision, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create match: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MatchRepo) Save(ctx context.Context, rec domain.MatchRecord, expectedRevision int64) error {
	tag, err := r.pool.Exec(ctx, saveMatchSQL,
		domain.MatchID, rec.Document, rec.Revision, rec.CreatedAt, rec.UpdatedAt, expectedRevision)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save match at revision %d: %w", expectedRevision, domain.ErrRevisionConflict)
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *MatchRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
