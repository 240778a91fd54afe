package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// DeliveryRepo provides data access to the deliveries and tracking_notes
// tables. A delivery's timeline is append-only: status changes add a
// tracking note, existing notes are never edited or removed. At most one
// delivery exists per request, enforced by a pre-check inside the
// creating transaction plus a unique index on request_id.
type DeliveryRepo struct {
    db *sql.DB
}

// NewDeliveryRepo returns a new DeliveryRepo bound to the given database.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

const deliveryCols = `id, request_id, outlet_id, delivery_person_id, status, priority,
    street, city, contact, estimated_date, actual_date, created_at, updated_at`

func scanDelivery(row interface{ Scan(...any) error }) (model.Delivery, error) {
    var (
        d                    model.Delivery
        personID             sql.NullInt64
        status               string
        estimated, actual    sql.NullString
        createdAt, updatedAt string
    )
    err := row.Scan(&d.ID, &d.RequestID, &d.OutletID, &personID, &status, &d.Priority,
        &d.Street, &d.City, &d.Contact, &estimated, &actual, &createdAt, &updatedAt)
    if err != nil {
        return model.Delivery{}, err
    }
    if personID.Valid {
        pid := uint64(personID.Int64)
        d.DeliveryPersonID = &pid
    }
    d.Status = model.DeliveryStatus(status)
    if estimated.Valid && estimated.String != "" {
        t := parseTime(estimated.String)
        d.EstimatedDate = &t
    }
    if actual.Valid && actual.String != "" {
        t := parseTime(actual.String)
        d.ActualDate = &t
    }
    d.CreatedAt = parseTime(createdAt)
    d.UpdatedAt = parseTime(updatedAt)
    return d, nil
}

// ExistsForRequestTx reports whether a delivery already exists for the
// request, inside a transaction.
func (r *DeliveryRepo) ExistsForRequestTx(ctx context.Context, tx *sql.Tx, requestID uint64) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM deliveries WHERE request_id = ?`, requestID).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// CreateTx inserts a new delivery within the scope of an existing
// transaction, populating the generated ID and timestamps on the record.
// It returns ErrDuplicateDelivery when the request already has one.
func (r *DeliveryRepo) CreateTx(ctx context.Context, tx *sql.Tx, d *model.Delivery) error {
    exists, err := r.ExistsForRequestTx(ctx, tx, d.RequestID)
    if err != nil {
        return err
    }
    if exists {
        return ErrDuplicateDelivery
    }
    now := nowUTC()
    var estimated any
    if d.EstimatedDate != nil {
        estimated = fmtTime(*d.EstimatedDate)
    }
    res, err := tx.ExecContext(ctx,
        `INSERT INTO deliveries (request_id, outlet_id, status, priority, street, city, contact,
            estimated_date, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        d.RequestID, d.OutletID, string(d.Status), d.Priority,
        d.Street, d.City, d.Contact, estimated, fmtTime(now), fmtTime(now))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    d.ID = uint64(id)
    d.CreatedAt = now
    d.UpdatedAt = now
    return nil
}

// GetByID returns a single delivery or sql.ErrNoRows.
func (r *DeliveryRepo) GetByID(ctx context.Context, id uint64) (model.Delivery, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+deliveryCols+` FROM deliveries WHERE id = ?`, id)
    return scanDelivery(row)
}

// GetByIDTx is GetByID within an existing transaction.
func (r *DeliveryRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Delivery, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+deliveryCols+` FROM deliveries WHERE id = ?`, id)
    return scanDelivery(row)
}

// GetByRequestID returns the delivery created for a request, or
// sql.ErrNoRows when none exists yet.
func (r *DeliveryRepo) GetByRequestID(ctx context.Context, requestID uint64) (model.Delivery, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+deliveryCols+` FROM deliveries WHERE request_id = ?`, requestID)
    return scanDelivery(row)
}

// UpdateStatusTx moves a delivery from one status to another within a
// transaction. The edge must be legal per the delivery transition table
// and the row must still hold the `from` status; otherwise ErrConflict
// is returned. When the new status is DELIVERED, actualDate is stamped
// on the row.
func (r *DeliveryRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.DeliveryStatus, actualDate *time.Time) error {
    if !from.CanTransition(to) {
        return ErrConflict
    }
    var (
        res sql.Result
        err error
    )
    if actualDate != nil {
        res, err = tx.ExecContext(ctx,
            `UPDATE deliveries SET status = ?, actual_date = ?, updated_at = ? WHERE id = ? AND status = ?`,
            string(to), fmtTime(*actualDate), fmtTime(nowUTC()), id, string(from))
    } else {
        res, err = tx.ExecContext(ctx,
            `UPDATE deliveries SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
            string(to), fmtTime(nowUTC()), id, string(from))
    }
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

// AssignTx sets the delivery person on a delivery within a transaction.
// Status movement to ASSIGNED is done separately via UpdateStatusTx so
// the transition guard applies.
func (r *DeliveryRepo) AssignTx(ctx context.Context, tx *sql.Tx, id, personID uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE deliveries SET delivery_person_id = ?, updated_at = ? WHERE id = ?`,
        personID, fmtTime(nowUTC()), id)
    return err
}

// AppendNoteTx adds an immutable tracking note to a delivery's timeline
// within a transaction.
func (r *DeliveryRepo) AppendNoteTx(ctx context.Context, tx *sql.Tx, note *model.TrackingNote) error {
    now := nowUTC()
    var proof any
    if note.Proof != nil {
        proof = *note.Proof
    }
    res, err := tx.ExecContext(ctx,
        `INSERT INTO tracking_notes (delivery_id, status, note, proof, created_at)
         VALUES (?, ?, ?, ?, ?)`,
        note.DeliveryID, string(note.Status), note.Note, proof, fmtTime(now))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    note.ID = uint64(id)
    note.CreatedAt = now
    return nil
}

// ListNotes returns a delivery's tracking notes in chronological order.
func (r *DeliveryRepo) ListNotes(ctx context.Context, deliveryID uint64) ([]model.TrackingNote, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, delivery_id, status, note, proof, created_at
         FROM tracking_notes WHERE delivery_id = ? ORDER BY id`, deliveryID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.TrackingNote, 0)
    for rows.Next() {
        var (
            n         model.TrackingNote
            status    string
            proof     sql.NullString
            createdAt string
        )
        if err := rows.Scan(&n.ID, &n.DeliveryID, &status, &n.Note, &proof, &createdAt); err != nil {
            return nil, err
        }
        n.Status = model.DeliveryStatus(status)
        if proof.Valid {
            p := proof.String
            n.Proof = &p
        }
        n.CreatedAt = parseTime(createdAt)
        out = append(out, n)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// Stats counts an outlet's deliveries per status, optionally bounded to
// a created_at window. The returned map only carries statuses that
// occur; callers fill in zeroes for the full vocabulary.
func (r *DeliveryRepo) Stats(ctx context.Context, outletID uint64, from, to *time.Time) (map[model.DeliveryStatus]int, error) {
    q := `SELECT status, COUNT(*) FROM deliveries WHERE outlet_id = ?`
    args := []any{outletID}
    if from != nil {
        q += ` AND created_at >= ?`
        args = append(args, fmtTime(*from))
    }
    if to != nil {
        q += ` AND created_at < ?`
        args = append(args, fmtTime(*to))
    }
    q += ` GROUP BY status`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[model.DeliveryStatus]int)
    for rows.Next() {
        var (
            status string
            n      int
        )
        if err := rows.Scan(&status, &n); err != nil {
            return nil, err
        }
        out[model.DeliveryStatus(status)] = n
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
