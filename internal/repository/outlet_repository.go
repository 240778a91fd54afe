package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// OutletRepo provides read access to the outlets table. Outlet CRUD is
// administered out of band; the workflow only validates existence.
type OutletRepo struct {
    db *sql.DB
}

// NewOutletRepo returns a new OutletRepo bound to the given database.
func NewOutletRepo(db *sql.DB) *OutletRepo { return &OutletRepo{db: db} }

const outletCols = `id, name, city, is_active, created_at, updated_at`

func scanOutlet(row interface{ Scan(...any) error }) (model.Outlet, error) {
    var (
        o                    model.Outlet
        createdAt, updatedAt string
    )
    err := row.Scan(&o.ID, &o.Name, &o.City, &o.IsActive, &createdAt, &updatedAt)
    if err != nil {
        return model.Outlet{}, err
    }
    o.CreatedAt = parseTime(createdAt)
    o.UpdatedAt = parseTime(updatedAt)
    return o, nil
}

// GetActive returns an active outlet by ID or ErrOutletNotFound.
func (r *OutletRepo) GetActive(ctx context.Context, id uint64) (model.Outlet, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+outletCols+` FROM outlets WHERE id = ? AND is_active = ?`, id, true)
    o, err := scanOutlet(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Outlet{}, ErrOutletNotFound
    }
    return o, err
}

// List returns all active outlets ordered by name.
func (r *OutletRepo) List(ctx context.Context) ([]model.Outlet, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+outletCols+` FROM outlets WHERE is_active = ? ORDER BY name`, true)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Outlet, 0)
    for rows.Next() {
        o, err := scanOutlet(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
