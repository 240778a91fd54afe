package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// RequestRepo provides data access to the requests table. Status writes
// are guarded: every update names the status the row must currently
// hold, so a concurrent transition loses cleanly with ErrConflict
// instead of silently overwriting.
type RequestRepo struct {
    db *sql.DB
}

// NewRequestRepo returns a new RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *RequestRepo) DB() *sql.DB { return r.db }

const requestCols = `id, consumer_id, outlet_id, product_id, quantity, status, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (model.Request, error) {
    var (
        req                  model.Request
        status               string
        createdAt, updatedAt string
    )
    err := row.Scan(&req.ID, &req.ConsumerID, &req.OutletID, &req.ProductID,
        &req.Quantity, &status, &createdAt, &updatedAt)
    if err != nil {
        return model.Request{}, err
    }
    req.Status = model.RequestStatus(status)
    req.CreatedAt = parseTime(createdAt)
    req.UpdatedAt = parseTime(updatedAt)
    return req, nil
}

// CreateTx inserts a new request within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record. The caller must commit or roll back the transaction.
func (r *RequestRepo) CreateTx(ctx context.Context, tx *sql.Tx, req *model.Request) error {
    now := nowUTC()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO requests (consumer_id, outlet_id, product_id, quantity, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        req.ConsumerID, req.OutletID, req.ProductID, req.Quantity,
        string(req.Status), fmtTime(now), fmtTime(now))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    req.ID = uint64(id)
    req.CreatedAt = now
    req.UpdatedAt = now
    return nil
}

// GetByID returns a single request or sql.ErrNoRows.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (model.Request, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+requestCols+` FROM requests WHERE id = ?`, id)
    return scanRequest(row)
}

// GetByIDTx is GetByID within an existing transaction.
func (r *RequestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Request, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+requestCols+` FROM requests WHERE id = ?`, id)
    return scanRequest(row)
}

// UpdateStatusTx moves a request from one status to another within a
// transaction. The edge must be legal per the request transition table
// and the row must still hold the `from` status; otherwise ErrConflict
// is returned and nothing is written.
func (r *RequestRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.RequestStatus) error {
    if !from.CanTransition(to) {
        return ErrConflict
    }
    res, err := tx.ExecContext(ctx,
        `UPDATE requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
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

// ListByConsumer returns all requests placed by a consumer, newest first.
func (r *RequestRepo) ListByConsumer(ctx context.Context, consumerID uint64) ([]model.Request, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+requestCols+` FROM requests WHERE consumer_id = ? ORDER BY created_at DESC, id DESC`,
        consumerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Request, 0)
    for rows.Next() {
        req, err := scanRequest(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, req)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
