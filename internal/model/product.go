package model

import "time"

// Product is a gas cylinder type from the catalog.
type Product struct {
    ID         uint64    `json:"id"`          // products.id
    Name       string    `json:"name"`        // products.name
    WeightKG   uint32    `json:"weight_kg"`   // products.weight_kg
    PriceCents uint32    `json:"price_cents"` // products.price_cents
    IsActive   bool      `json:"is_active"`   // products.is_active
    CreatedAt  time.Time `json:"created_at"`  // products.created_at
    UpdatedAt  time.Time `json:"updated_at"`  // products.updated_at
}
