// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them to HTTP statuses: ErrForbidden becomes 403, ErrConflict and its
// specialisations become 409, and the *NotFound values become 404.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource belonging to another consumer or another outlet.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as an illegal status transition or a write
// guard that matched no rows.
var ErrConflict = errors.New("conflict")

// ErrOutletNotFound is returned when the referenced outlet does not
// exist or is inactive.
var ErrOutletNotFound = errors.New("outlet not found")

// ErrProductNotFound is returned when the referenced product does not
// exist or is inactive.
var ErrProductNotFound = errors.New("product not found")

// ErrTokenNotFound is returned when no pickup token matches the
// presented code.
var ErrTokenNotFound = errors.New("token not found")

// ErrInsufficientStock is returned when a deduction would push a stock
// record below zero. Nothing is written when this is returned.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrDuplicateDelivery is returned when a delivery already exists for
// the request.
var ErrDuplicateDelivery = errors.New("delivery already exists for request")

// ErrAlreadyFulfilled is returned when a fulfillment already exists for
// the delivery.
var ErrAlreadyFulfilled = errors.New("delivery already fulfilled")
