package postgres

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	ErrRefreshTokenHash    = errors.New("refresh token hash mismatch")
)

// Higher-level session operations on top of the tx primitives, so
// handlers never touch pgx transactions directly.

func (r *RefreshTokensRepo) Store(ctx context.Context, row RefreshTokenRow) error {
	tx, err := r.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.Create(ctx, tx, row); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Rotate revokes the presented token and inserts its replacement in one
// transaction. The row lock serializes concurrent refreshes of the same
// token; the loser sees revoked_at set and gets ErrRefreshTokenRevoked.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, jti, presentedHash string, next RefreshTokenRow) (RefreshTokenRow, error) {
	tx, err := r.BeginTx(ctx)

	if err != nil {
		return RefreshTokenRow{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	row, err := r.GetForUpdate(ctx, tx, jti)

	if err != nil {
		return RefreshTokenRow{}, err
	}

	if row.RevokedAt != nil {
		return RefreshTokenRow{}, ErrRefreshTokenRevoked
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		return RefreshTokenRow{}, ErrRefreshTokenExpired
	}

	// prevents token substitution: stored hash must match what the
	// client actually presented
	if row.TokenHash != presentedHash {
		return RefreshTokenRow{}, ErrRefreshTokenHash
	}

	if err := r.Revoke(ctx, tx, row.ID, &next.ID); err != nil {
		return RefreshTokenRow{}, err
	}

	if err := r.Create(ctx, tx, next); err != nil {
		return RefreshTokenRow{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RefreshTokenRow{}, err
	}

	return row, nil
}

// RevokeByID revokes a single token; unknown ids are a no-op.
func (r *RefreshTokensRepo) RevokeByID(ctx context.Context, jti string) error {
	tx, err := r.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.Revoke(ctx, tx, jti, nil); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RevokeAll ends every session for a user, used after a password reset.
func (r *RefreshTokensRepo) RevokeAll(ctx context.Context, userID string) error {
	tx, err := r.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.RevokeAllForUser(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
