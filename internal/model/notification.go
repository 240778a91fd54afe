package model

import "time"

// Notification is a side-effect record written on status changes.  Nothing
// in the workflow depends on it; a failed insert is logged and dropped.
type Notification struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    Title     string    `json:"title"`
    Message   string    `json:"message"`
    Type      string    `json:"type"`
    IsRead    bool      `json:"is_read"`
    RequestID *uint64   `json:"request_id,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}

// Notification type values used by the dispatcher.
const (
    NotifyRequest  = "REQUEST"
    NotifyDelivery = "DELIVERY"
)
