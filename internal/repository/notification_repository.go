package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
)

// NotificationRepo provides data access to the notifications table.
// Writes are best-effort side effects; the dispatcher logs and drops
// failures instead of propagating them into the triggering transition.
type NotificationRepo struct {
    db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification row. It runs outside any workflow
// transaction on purpose: the triggering transition has already
// committed by the time this is called.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
    now := nowUTC()
    var requestID any
    if n.RequestID != nil {
        requestID = *n.RequestID
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO notifications (user_id, title, message, type, is_read, request_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        n.UserID, n.Title, n.Message, n.Type, n.IsRead, requestID, fmtTime(now))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    n.ID = uint64(id)
    n.CreatedAt = now
    return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, user_id, title, message, type, is_read, request_id, created_at
         FROM notifications WHERE user_id = ? ORDER BY id DESC`, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Notification, 0)
    for rows.Next() {
        var (
            n         model.Notification
            requestID sql.NullInt64
            createdAt string
        )
        if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &requestID, &createdAt); err != nil {
            return nil, err
        }
        if requestID.Valid {
            rid := uint64(requestID.Int64)
            n.RequestID = &rid
        }
        n.CreatedAt = parseTime(createdAt)
        out = append(out, n)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// MarkRead flags one of the user's notifications as read. It returns
// sql.ErrNoRows when the notification does not exist or belongs to
// someone else.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`,
        true, id, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
