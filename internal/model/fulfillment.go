package model

import "time"

// Fulfillment is the terminal, audit-grade record that a given quantity
// of cylinders was actually handed over.  Exactly one fulfillment exists
// per completed delivery and it is never mutated after creation.
type Fulfillment struct {
    ID                uint64    `json:"id"`                 // fulfillments.id
    RequestID         uint64    `json:"request_id"`         // fulfillments.request_id
    DeliveryID        uint64    `json:"delivery_id"`        // fulfillments.delivery_id (unique)
    QuantityFulfilled uint32    `json:"quantity_fulfilled"` // fulfillments.quantity_fulfilled
    VerifiedBy        uint64    `json:"verified_by"`        // fulfillments.verified_by
    CreatedAt         time.Time `json:"created_at"`         // fulfillments.created_at
}
