// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/google/uuid"

// StatusQueueName is the durable queue carrying status-change events.
const StatusQueueName = "order.status"

// StatusChangedEvent is published whenever a request or delivery changes
// status. It carries enough information for downstream consumers to
// audit or notify without querying the primary database. EventID makes
// re-deliveries recognisable on the consumer side.
type StatusChangedEvent struct {
    EventID    uuid.UUID `json:"event_id"`
    Kind       string    `json:"kind"` // REQUEST or DELIVERY
    RequestID  uint64    `json:"request_id"`
    DeliveryID *uint64   `json:"delivery_id,omitempty"`
    UserID     uint64    `json:"user_id"`
    Status     string    `json:"status"`
    Title      string    `json:"title"`
    Message    string    `json:"message"`
    OccurredAt string    `json:"occurred_at"`
}
