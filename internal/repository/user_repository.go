package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/utils"
)

// UserRepo persists user accounts. Consumer rows carry the address
// fields used for delivery snapshots; outlet operator rows carry the
// outlet they act for.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// isDuplicate detects a unique-constraint violation across both MySQL
// (error 1062) and SQLite ("UNIQUE constraint failed").
func isDuplicate(err error) bool {
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "1062") || strings.Contains(msg, "unique")
}

const userCols = `id, email, password_hash, role, outlet_id, street, city, contact, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
    var (
        u                    model.User
        outletID             sql.NullInt64
        createdAt, updatedAt string
    )
    err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &outletID,
        &u.Street, &u.City, &u.Contact, &u.IsActive, &createdAt, &updatedAt)
    if err != nil {
        return model.User{}, err
    }
    if outletID.Valid {
        oid := uint64(outletID.Int64)
        u.OutletID = &oid
    }
    u.CreatedAt = parseTime(createdAt)
    u.UpdatedAt = parseTime(updatedAt)
    return u, nil
}

// Create inserts a consumer account and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, street, city, contact string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    now := fmtTime(nowUTC())
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO users (email, password_hash, role, street, city, contact, is_active, created_at, updated_at)
         VALUES (?,?,?,?,?,?,?,?,?)`,
        email, hash, model.RoleConsumer, street, city, contact, true, now, now)
    if err != nil {
        if isDuplicate(err) {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    row := r.DB.QueryRowContext(ctx,
        `SELECT `+userCols+` FROM users WHERE email=? LIMIT 1`, email)
    return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    row := r.DB.QueryRowContext(ctx,
        `SELECT `+userCols+` FROM users WHERE id=? LIMIT 1`, id)
    return scanUser(row)
}

// OutletIDFor returns the outlet an operator acts for. ErrForbidden is
// returned when the user is not an outlet operator.
func (r *UserRepo) OutletIDFor(ctx context.Context, userID uint64) (uint64, error) {
    u, err := r.GetByID(ctx, userID)
    if err != nil {
        return 0, err
    }
    if u.Role != model.RoleOutlet || u.OutletID == nil {
        return 0, ErrForbidden
    }
    return *u.OutletID, nil
}
