package model

import "time"

// Outlet is a physical distribution point that validates pickup tokens,
// holds stock and runs deliveries.
type Outlet struct {
    ID        uint64    `json:"id"`         // outlets.id
    Name      string    `json:"name"`       // outlets.name
    City      string    `json:"city"`       // outlets.city
    IsActive  bool      `json:"is_active"`  // outlets.is_active
    CreatedAt time.Time `json:"created_at"` // outlets.created_at
    UpdatedAt time.Time `json:"updated_at"` // outlets.updated_at
}
