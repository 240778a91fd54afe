package repository

import (
    "context"
    "database/sql"
    "time"
)

// RefreshTokenRepo persists/validates refresh tokens (single
// 'token_hash' column; only the SHA-256 of the raw token is stored).
type RefreshTokenRepo struct{ DB *sql.DB }

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo { return &RefreshTokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *RefreshTokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
    _, err := r.DB.ExecContext(ctx,
        `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)`,
        userID, tokenHash, fmtTime(exp), fmtTime(nowUTC()))
    return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *RefreshTokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
    var (
        userID    uint64
        expiresAt string
        revokedAt sql.NullString
    )
    err := r.DB.QueryRowContext(ctx,
        `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1`,
        tokenHash).Scan(&userID, &expiresAt, &revokedAt)
    if err != nil {
        return 0, err
    }
    if revokedAt.Valid && revokedAt.String != "" {
        return 0, sql.ErrNoRows
    }
    if time.Now().UTC().After(parseTime(expiresAt)) {
        return 0, sql.ErrNoRows
    }
    return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *RefreshTokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
    _, err := r.DB.ExecContext(ctx,
        `UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL`,
        fmtTime(nowUTC()), tokenHash)
    return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
    _, err := r.DB.ExecContext(ctx,
        `UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL`,
        fmtTime(nowUTC()), userID)
    return err
}
