package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// FulfillmentRepo provides data access to the fulfillments table. A
// fulfillment is written exactly once per delivery and never mutated;
// creation is guarded both by a pre-check inside the transaction and by
// the unique index on delivery_id.
type FulfillmentRepo struct {
    db *sql.DB
}

// NewFulfillmentRepo returns a new FulfillmentRepo bound to the given database.
func NewFulfillmentRepo(db *sql.DB) *FulfillmentRepo { return &FulfillmentRepo{db: db} }

// ExistsForDeliveryTx reports whether a fulfillment already exists for
// the delivery, inside a transaction.
func (r *FulfillmentRepo) ExistsForDeliveryTx(ctx context.Context, tx *sql.Tx, deliveryID uint64) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM fulfillments WHERE delivery_id = ?`, deliveryID).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// CreateTx inserts the audit record for a completed delivery within an
// existing transaction. It returns ErrAlreadyFulfilled when the delivery
// already has one, leaving the existing record untouched.
func (r *FulfillmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, f *model.Fulfillment) error {
    exists, err := r.ExistsForDeliveryTx(ctx, tx, f.DeliveryID)
    if err != nil {
        return err
    }
    if exists {
        return ErrAlreadyFulfilled
    }
    now := nowUTC()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO fulfillments (request_id, delivery_id, quantity_fulfilled, verified_by, created_at)
         VALUES (?, ?, ?, ?, ?)`,
        f.RequestID, f.DeliveryID, f.QuantityFulfilled, f.VerifiedBy, fmtTime(now))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    f.ID = uint64(id)
    f.CreatedAt = now
    return nil
}

// GetByDeliveryID returns the fulfillment for a delivery or sql.ErrNoRows.
func (r *FulfillmentRepo) GetByDeliveryID(ctx context.Context, deliveryID uint64) (model.Fulfillment, error) {
    var (
        f         model.Fulfillment
        createdAt string
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT id, request_id, delivery_id, quantity_fulfilled, verified_by, created_at
         FROM fulfillments WHERE delivery_id = ?`, deliveryID).
        Scan(&f.ID, &f.RequestID, &f.DeliveryID, &f.QuantityFulfilled, &f.VerifiedBy, &createdAt)
    if err != nil {
        return model.Fulfillment{}, err
    }
    f.CreatedAt = parseTime(createdAt)
    return f, nil
}

// CountForRequest returns how many fulfillments reference a request.
// Used by audits; under the delivery_id guard the answer is 0 or 1.
func (r *FulfillmentRepo) CountForRequest(ctx context.Context, requestID uint64) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM fulfillments WHERE request_id = ?`, requestID).Scan(&n)
    return n, err
}
