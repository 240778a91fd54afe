package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// ProductRepo provides read access to the products catalog.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, name, weight_kg, price_cents, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (model.Product, error) {
    var (
        p                    model.Product
        createdAt, updatedAt string
    )
    err := row.Scan(&p.ID, &p.Name, &p.WeightKG, &p.PriceCents, &p.IsActive, &createdAt, &updatedAt)
    if err != nil {
        return model.Product{}, err
    }
    p.CreatedAt = parseTime(createdAt)
    p.UpdatedAt = parseTime(updatedAt)
    return p, nil
}

// GetActive returns an active product by ID or ErrProductNotFound.
func (r *ProductRepo) GetActive(ctx context.Context, id uint64) (model.Product, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+productCols+` FROM products WHERE id = ? AND is_active = ?`, id, true)
    p, err := scanProduct(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Product{}, ErrProductNotFound
    }
    return p, err
}

// List returns all active products ordered by name.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+productCols+` FROM products WHERE is_active = ? ORDER BY name`, true)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Product, 0)
    for rows.Next() {
        p, err := scanProduct(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
