package model

import "time"

// RequestStatus enumerates the lifecycle states of a cylinder request.
// Transitions are monotonic: a request never moves backwards and the
// terminal states (REJECTED, DELIVERED, CANCELLED) admit no further
// transitions.
type RequestStatus string

const (
    RequestPending    RequestStatus = "PENDING"    // created, waiting for outlet validation
    RequestApproved   RequestStatus = "APPROVED"   // pickup token validated by the outlet
    RequestRejected   RequestStatus = "REJECTED"   // turned down by the outlet
    RequestProcessing RequestStatus = "PROCESSING" // a delivery has been created
    RequestDelivered  RequestStatus = "DELIVERED"  // delivery completed and fulfilment recorded
    RequestCancelled  RequestStatus = "CANCELLED"  // delivery cancelled or failed
)

// requestTransitions is the explicit edge table for request statuses.
var requestTransitions = map[RequestStatus][]RequestStatus{
    RequestPending:    {RequestApproved, RequestRejected},
    RequestApproved:   {RequestProcessing},
    RequestProcessing: {RequestDelivered, RequestCancelled},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
    for _, allowed := range requestTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// Valid reports whether s is a known request status value.
func (s RequestStatus) Valid() bool {
    switch s {
    case RequestPending, RequestApproved, RequestRejected,
        RequestProcessing, RequestDelivered, RequestCancelled:
        return true
    }
    return false
}

// Quantity bounds for a single request.
const (
    MinRequestQuantity = 1
    MaxRequestQuantity = 1000
)

// Request records a consumer's ask for a quantity of a gas product from a
// specific outlet.  It is created PENDING and paired immediately with a
// pickup token.
//
// Fields:
//  ID         – primary key identifier.
//  ConsumerID – user who placed the request.
//  OutletID   – outlet expected to serve the request.
//  ProductID  – gas product being requested.
//  Quantity   – number of cylinders, within [1,1000].
//  Status     – current lifecycle state.
//  CreatedAt  – creation timestamp (UTC).
//  UpdatedAt  – last update timestamp (UTC).
type Request struct {
    ID         uint64        `json:"id"`          // requests.id
    ConsumerID uint64        `json:"consumer_id"` // requests.consumer_id
    OutletID   uint64        `json:"outlet_id"`   // requests.outlet_id
    ProductID  uint64        `json:"product_id"`  // requests.product_id
    Quantity   uint32        `json:"quantity"`    // requests.quantity
    Status     RequestStatus `json:"status"`      // requests.status
    CreatedAt  time.Time     `json:"created_at"`  // requests.created_at
    UpdatedAt  time.Time     `json:"updated_at"`  // requests.updated_at
}
