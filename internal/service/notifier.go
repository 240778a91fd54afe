package service

import (
    "context"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/queue"
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
)

// Dispatcher delivers fire-and-forget alerts on status changes. A
// notification row is written for the user and, when event publishing is
// enabled, a StatusChangedEvent is pushed to RabbitMQ out-of-band.
// Failures are logged and dropped; they never propagate to the caller
// and never block or revert the transition that triggered them. Callers
// invoke Notify only after their transaction has committed.
type Dispatcher struct {
    Notifications *repository.NotificationRepo
    PublishEvents bool
}

// NewDispatcher constructs a Dispatcher over the notification repository.
func NewDispatcher(repo *repository.NotificationRepo, publishEvents bool) *Dispatcher {
    if repo == nil {
        panic("nil repository passed to NewDispatcher")
    }
    return &Dispatcher{Notifications: repo, PublishEvents: publishEvents}
}

// Notify records a notification for a user about a request status
// change. kind is REQUEST or DELIVERY; deliveryID is set for delivery
// transitions.
func (d *Dispatcher) Notify(ctx context.Context, userID uint64, title, message, kind string, requestID uint64, deliveryID *uint64, status string) {
    rid := requestID
    n := &model.Notification{
        UserID:    userID,
        Title:     title,
        Message:   message,
        Type:      kind,
        RequestID: &rid,
    }
    if err := d.Notifications.Create(ctx, n); err != nil {
        // Dropped notifications stay observable through this line and,
        // when publishing is on, the broker audit log.
        log.Printf("notify: insert failed for user=%d request=%d: %v", userID, requestID, err)
    }
    if !d.PublishEvents {
        return
    }
    ev := queue.StatusChangedEvent{
        EventID:    uuid.New(),
        Kind:       kind,
        RequestID:  requestID,
        DeliveryID: deliveryID,
        UserID:     userID,
        Status:     status,
        Title:      title,
        Message:    message,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = PublishStatusEvent(pctx, ev) // best-effort; errors already logged
    }()
}
