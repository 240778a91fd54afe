package model

import "time"

// DeliveryStatus enumerates the states of a delivery.  DELIVERED,
// CANCELLED and FAILED are terminal.
type DeliveryStatus string

const (
    DeliveryPending        DeliveryStatus = "PENDING"
    DeliveryAssigned       DeliveryStatus = "ASSIGNED"
    DeliveryOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
    DeliveryDelivered      DeliveryStatus = "DELIVERED"
    DeliveryCancelled      DeliveryStatus = "CANCELLED"
    DeliveryFailed         DeliveryStatus = "FAILED"
)

// deliveryTransitions is the explicit edge table for delivery statuses.
// PENDING→DELIVERED covers over-the-counter handover at the outlet,
// where no courier leg exists.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
    DeliveryPending:        {DeliveryAssigned, DeliveryDelivered, DeliveryCancelled, DeliveryFailed},
    DeliveryAssigned:       {DeliveryOutForDelivery, DeliveryCancelled, DeliveryFailed},
    DeliveryOutForDelivery: {DeliveryDelivered, DeliveryCancelled, DeliveryFailed},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s DeliveryStatus) CanTransition(next DeliveryStatus) bool {
    for _, allowed := range deliveryTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// Valid reports whether s is a known delivery status value.
func (s DeliveryStatus) Valid() bool {
    switch s {
    case DeliveryPending, DeliveryAssigned, DeliveryOutForDelivery,
        DeliveryDelivered, DeliveryCancelled, DeliveryFailed:
        return true
    }
    return false
}

// Terminal reports whether s admits no further transitions.
func (s DeliveryStatus) Terminal() bool {
    return s == DeliveryDelivered || s == DeliveryCancelled || s == DeliveryFailed
}

// Delivery tracks movement of an approved order to the consumer.  At most
// one delivery exists per request.  The street/city/contact fields are a
// snapshot of the consumer's address taken at creation time; later edits
// to the consumer profile do not affect an existing delivery.
type Delivery struct {
    ID               uint64         `json:"id"`
    RequestID        uint64         `json:"request_id"`
    OutletID         uint64         `json:"outlet_id"`
    DeliveryPersonID *uint64        `json:"delivery_person_id,omitempty"`
    Status           DeliveryStatus `json:"status"`
    Priority         string         `json:"priority"`
    Street           string         `json:"street"`
    Contact          string         `json:"contact"`
    City             string         `json:"city"`
    EstimatedDate    *time.Time     `json:"estimated_date,omitempty"`
    ActualDate       *time.Time     `json:"actual_date,omitempty"`
    CreatedAt        time.Time      `json:"created_at"`
    UpdatedAt        time.Time      `json:"updated_at"`
}

// TrackingNote is an immutable, timestamped entry in a delivery's status
// timeline.  Notes are append-only; they are never edited or removed.
type TrackingNote struct {
    ID         uint64         `json:"id"`
    DeliveryID uint64         `json:"delivery_id"`
    Status     DeliveryStatus `json:"status"`
    Note       string         `json:"note"`
    Proof      *string        `json:"proof,omitempty"`
    CreatedAt  time.Time      `json:"created_at"`
}
