package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo stores refresh tokens by their SHA-256 hash.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, q, userID, tokenHash, exp.UTC(), now())
	return err
}

// Consume revokes a live token and returns its owner.  Of two concurrent
// calls with the same token exactly one succeeds, so a refresh token
// rotates at most once.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string) (string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	const sel = `SELECT user_id FROM refresh_tokens
	             WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ? LIMIT 1`
	var userID string
	if err := tx.QueryRowContext(ctx, sel, tokenHash, now()).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRefreshInvalid
		}
		return "", err
	}

	const upd = `UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`
	res, err := tx.ExecContext(ctx, upd, now(), tokenHash)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrRefreshInvalid
	}
	return userID, tx.Commit()
}

// RevokeAllForUser revokes every live token of the user.  Password resets
// call it so sessions opened with the old password end too.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.DB.ExecContext(ctx, q, now(), userID)
	return err
}

// PurgeExpired deletes tokens that expired or were revoked before cutoff.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at < ?`
	res, err := r.DB.ExecContext(ctx, q, cutoff.UTC(), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
