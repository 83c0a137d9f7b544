package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RevocationRepository is the Postgres denylist used when no Redis is
// configured, so revocations are shared by every instance on the database.
type RevocationRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewRevocationRepository(pool *pgxpool.Pool) *RevocationRepository {
	return &RevocationRepository{pool: pool, now: time.Now}
}

func (r *RevocationRepository) Revoke(ctx context.Context, id string, until time.Time) (bool, error) {
	if !until.After(r.now()) {
		return true, nil
	}

	// An expired row for the same id is reclaimed rather than blocking the claim.
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at)
		 VALUES ($1, $2)
		 ON CONFLICT (token_id) DO UPDATE SET expires_at = EXCLUDED.expires_at
		 WHERE revoked_tokens.expires_at <= now()`,
		id, until.UTC())
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, id string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > now())`,
		id).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// CleanExpired drops entries whose tokens have expired on their own.
func (r *RevocationRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
