package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/utils"
)

// PickupTokenRepo provides data access to the tokens table. Codes are
// unique among active (pending, unexpired) tokens only; a code may be
// reused once its previous holder has been approved or has lapsed.
type PickupTokenRepo struct {
    db *sql.DB
}

// NewPickupTokenRepo returns a new PickupTokenRepo bound to the given database.
func NewPickupTokenRepo(db *sql.DB) *PickupTokenRepo { return &PickupTokenRepo{db: db} }

const tokenCols = `id, request_id, code, status, expires_at, created_at, updated_at`

func scanToken(row interface{ Scan(...any) error }) (model.PickupToken, error) {
    var (
        t                               model.PickupToken
        status                          string
        expiresAt, createdAt, updatedAt string
    )
    err := row.Scan(&t.ID, &t.RequestID, &t.Code, &status, &expiresAt, &createdAt, &updatedAt)
    if err != nil {
        return model.PickupToken{}, err
    }
    t.Status = model.TokenStatus(status)
    t.ExpiresAt = parseTime(expiresAt)
    t.CreatedAt = parseTime(createdAt)
    t.UpdatedAt = parseTime(updatedAt)
    return t, nil
}

// IssueTx generates and inserts the pickup token for a request within an
// existing transaction. The code is drawn from the unambiguous digit
// alphabet via the supplied source and retried on collision with another
// active token; expiry is issuance time plus model.PickupTokenTTL.
func (r *PickupTokenRepo) IssueTx(ctx context.Context, tx *sql.Tx, requestID uint64, src utils.CodeSource) (model.PickupToken, error) {
    now := nowUTC()
    var code string
    const maxAttempts = 5
    for attempt := 0; ; attempt++ {
        code = utils.GeneratePickupCode(src, model.PickupCodeLength)
        taken, err := r.activeCodeExistsTx(ctx, tx, code, now)
        if err != nil {
            return model.PickupToken{}, err
        }
        if !taken {
            break
        }
        if attempt == maxAttempts-1 {
            return model.PickupToken{}, errors.New("pickup code space exhausted")
        }
    }
    tok := model.PickupToken{
        RequestID: requestID,
        Code:      code,
        Status:    model.TokenPending,
        ExpiresAt: now.Add(model.PickupTokenTTL),
        CreatedAt: now,
        UpdatedAt: now,
    }
    res, err := tx.ExecContext(ctx,
        `INSERT INTO tokens (request_id, code, status, expires_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
        tok.RequestID, tok.Code, string(tok.Status), fmtTime(tok.ExpiresAt),
        fmtTime(now), fmtTime(now))
    if err != nil {
        return model.PickupToken{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.PickupToken{}, err
    }
    tok.ID = uint64(id)
    return tok, nil
}

// activeCodeExistsTx reports whether code is already held by a pending,
// unexpired token.
func (r *PickupTokenRepo) activeCodeExistsTx(ctx context.Context, tx *sql.Tx, code string, now time.Time) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM tokens WHERE code = ? AND status = ? AND expires_at > ?`,
        code, string(model.TokenPending), fmtTime(now)).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// GetByCodeTx returns the most recent token carrying the given code, in
// any status, or ErrTokenNotFound. Callers inspect the status to tell a
// fresh token from one that was already validated.
func (r *PickupTokenRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.PickupToken, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+tokenCols+` FROM tokens WHERE code = ? ORDER BY id DESC LIMIT 1`, code)
    t, err := scanToken(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.PickupToken{}, ErrTokenNotFound
    }
    return t, err
}

// GetByRequestID returns the token paired with a request.
func (r *PickupTokenRepo) GetByRequestID(ctx context.Context, requestID uint64) (model.PickupToken, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+tokenCols+` FROM tokens WHERE request_id = ? ORDER BY id DESC LIMIT 1`, requestID)
    return scanToken(row)
}

// UpdateStatusTx moves a token from one status to another within a
// transaction. The row must still hold the `from` status; otherwise
// ErrConflict is returned and nothing is written.
func (r *PickupTokenRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.TokenStatus) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE tokens SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
        string(to), fmtTime(nowUTC()), id, string(from))
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}
