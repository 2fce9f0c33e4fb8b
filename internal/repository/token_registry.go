package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

// ErrTokenRecordNotFound is returned by Rotate when no record holds the
// presented refresh token any more.
var ErrTokenRecordNotFound = errors.New("token record not found")

// TokenRegistry stores the single live token pair of each principal.
//
// Register is an atomic replace keyed by principal. Rotate is a conditional
// write on the old refresh token value: of two callers racing on the same
// value at most one succeeds, the other gets ErrTokenRecordNotFound.
type TokenRegistry interface {
	Register(ctx context.Context, principalID string, pair domain.TokenPair) error
	HasActive(ctx context.Context, refreshToken string) (bool, error)
	Rotate(ctx context.Context, oldRefreshToken string, pair domain.TokenPair) error
	Invalidate(ctx context.Context, principalID string) error
	// Scan returns up to limit records ordered by principal id, starting
	// after afterPrincipalID ("" for the first page).
	Scan(ctx context.Context, afterPrincipalID string, limit int) ([]domain.TokenRecord, error)
	// DeleteIfMatches deletes the principal's record only while it still
	// holds refreshToken.
	DeleteIfMatches(ctx context.Context, principalID, refreshToken string) (bool, error)
}

type tokenRegistry struct {
	pool *pgxpool.Pool
}

// NewTokenRegistry returns a Postgres-backed registry over token_records.
func NewTokenRegistry(pool *pgxpool.Pool) TokenRegistry {
	return &tokenRegistry{pool: pool}
}

func (r *tokenRegistry) Register(ctx context.Context, principalID string, pair domain.TokenPair) error {
	const query = `
        INSERT INTO token_records (principal_id, access_token, refresh_token, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (principal_id) DO UPDATE
        SET access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, principalID, pair.AccessToken, pair.RefreshToken)
	return err
}

func (r *tokenRegistry) HasActive(ctx context.Context, refreshToken string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM token_records WHERE refresh_token=$1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, refreshToken).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *tokenRegistry) Rotate(ctx context.Context, oldRefreshToken string, pair domain.TokenPair) error {
	// The row lock taken by UPDATE makes a concurrent rotation of the same
	// value re-check the predicate after this one commits, and miss.
	const query = `
        UPDATE token_records
        SET access_token=$2, refresh_token=$3, updated_at=NOW()
        WHERE refresh_token=$1`

	cmd, err := r.pool.Exec(ctx, query, oldRefreshToken, pair.AccessToken, pair.RefreshToken)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenRecordNotFound
	}
	return nil
}

func (r *tokenRegistry) Invalidate(ctx context.Context, principalID string) error {
	const query = `DELETE FROM token_records WHERE principal_id=$1`

	_, err := r.pool.Exec(ctx, query, principalID)
	return err
}

func (r *tokenRegistry) Scan(ctx context.Context, afterPrincipalID string, limit int) ([]domain.TokenRecord, error) {
	const query = `
        SELECT principal_id::text, access_token, refresh_token, updated_at
        FROM token_records
        WHERE principal_id::text > $1
        ORDER BY principal_id::text
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, afterPrincipalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TokenRecord
	for rows.Next() {
		var rec domain.TokenRecord
		if err := rows.Scan(&rec.PrincipalID, &rec.AccessToken, &rec.RefreshToken, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *tokenRegistry) DeleteIfMatches(ctx context.Context, principalID, refreshToken string) (bool, error) {
	const query = `DELETE FROM token_records WHERE principal_id=$1 AND refresh_token=$2`

	cmd, err := r.pool.Exec(ctx, query, principalID, refreshToken)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
