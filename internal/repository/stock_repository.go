package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "sync"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// StockRepo provides data access to the stock_records table, one row per
// (outlet, product). Quantity never drops below zero.
//
// Concurrent deductions against the same (outlet, product) must be
// serialized or two transactions can both read the same starting
// quantity and one update is lost. Callers hold the per-key lock from
// Lock() across the whole deduction transaction.
type StockRepo struct {
    db *sql.DB

    mu    sync.Mutex
    locks map[string]*sync.Mutex
}

// NewStockRepo returns a new StockRepo bound to the given database.
func NewStockRepo(db *sql.DB) *StockRepo {
    return &StockRepo{db: db, locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for one (outlet, product) key and returns the
// matching unlock function. Locks are created lazily and never removed;
// the key space is bounded by the outlet×product catalog.
func (r *StockRepo) Lock(outletID, productID uint64) func() {
    key := fmt.Sprintf("%d/%d", outletID, productID)
    r.mu.Lock()
    m, ok := r.locks[key]
    if !ok {
        m = &sync.Mutex{}
        r.locks[key] = m
    }
    r.mu.Unlock()
    m.Lock()
    return m.Unlock
}

const stockCols = `id, outlet_id, product_id, quantity, created_at, updated_at`

func scanStock(row interface{ Scan(...any) error }) (model.StockRecord, error) {
    var (
        s                    model.StockRecord
        createdAt, updatedAt string
    )
    err := row.Scan(&s.ID, &s.OutletID, &s.ProductID, &s.Quantity, &createdAt, &updatedAt)
    if err != nil {
        return model.StockRecord{}, err
    }
    s.CreatedAt = parseTime(createdAt)
    s.UpdatedAt = parseTime(updatedAt)
    return s, nil
}

// GetTx returns the stock record for one (outlet, product) inside a
// transaction, or sql.ErrNoRows when the record was never created.
func (r *StockRepo) GetTx(ctx context.Context, tx *sql.Tx, outletID, productID uint64) (model.StockRecord, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+stockCols+` FROM stock_records WHERE outlet_id = ? AND product_id = ?`,
        outletID, productID)
    return scanStock(row)
}

// DeductTx decrements the stock record by qty within a transaction. It
// returns ErrInsufficientStock (writing nothing) when qty exceeds the
// current quantity, and treats a missing record as zero stock. The
// caller must hold the Lock() for this key.
func (r *StockRepo) DeductTx(ctx context.Context, tx *sql.Tx, outletID, productID uint64, qty uint32) (model.StockRecord, error) {
    rec, err := r.GetTx(ctx, tx, outletID, productID)
    if errors.Is(err, sql.ErrNoRows) {
        return model.StockRecord{}, ErrInsufficientStock
    }
    if err != nil {
        return model.StockRecord{}, err
    }
    if qty > rec.Quantity {
        return model.StockRecord{}, ErrInsufficientStock
    }
    rec.Quantity -= qty
    rec.UpdatedAt = nowUTC()
    _, err = tx.ExecContext(ctx,
        `UPDATE stock_records SET quantity = ?, updated_at = ? WHERE id = ?`,
        rec.Quantity, fmtTime(rec.UpdatedAt), rec.ID)
    if err != nil {
        return model.StockRecord{}, err
    }
    return rec, nil
}

// ReplenishTx adjusts the stock record by delta (which may be negative
// for corrections) within a transaction, clamping the result at zero.
// The record is created on first use. The caller must hold the Lock()
// for this key.
func (r *StockRepo) ReplenishTx(ctx context.Context, tx *sql.Tx, outletID, productID uint64, delta int64) (model.StockRecord, error) {
    rec, err := r.GetTx(ctx, tx, outletID, productID)
    if errors.Is(err, sql.ErrNoRows) {
        now := nowUTC()
        qty := delta
        if qty < 0 {
            qty = 0
        }
        res, insErr := tx.ExecContext(ctx,
            `INSERT INTO stock_records (outlet_id, product_id, quantity, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?)`,
            outletID, productID, qty, fmtTime(now), fmtTime(now))
        if insErr != nil {
            return model.StockRecord{}, insErr
        }
        id, insErr := res.LastInsertId()
        if insErr != nil {
            return model.StockRecord{}, insErr
        }
        return model.StockRecord{
            ID: uint64(id), OutletID: outletID, ProductID: productID,
            Quantity: uint32(qty), CreatedAt: now, UpdatedAt: now,
        }, nil
    }
    if err != nil {
        return model.StockRecord{}, err
    }
    next := int64(rec.Quantity) + delta
    if next < 0 {
        next = 0
    }
    rec.Quantity = uint32(next)
    rec.UpdatedAt = nowUTC()
    _, err = tx.ExecContext(ctx,
        `UPDATE stock_records SET quantity = ?, updated_at = ? WHERE id = ?`,
        rec.Quantity, fmtTime(rec.UpdatedAt), rec.ID)
    if err != nil {
        return model.StockRecord{}, err
    }
    return rec, nil
}

// ListByOutlet returns all stock records for an outlet ordered by product.
func (r *StockRepo) ListByOutlet(ctx context.Context, outletID uint64) ([]model.StockRecord, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+stockCols+` FROM stock_records WHERE outlet_id = ? ORDER BY product_id`,
        outletID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.StockRecord, 0)
    for rows.Next() {
        rec, err := scanStock(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
