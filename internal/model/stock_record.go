package model

import "time"

// StockRecord is the inventory counter for one product at one outlet.
// Quantity never drops below zero; deductions that would breach that
// invariant are rejected before any write happens.
type StockRecord struct {
    ID        uint64    `json:"id"`         // stock_records.id
    OutletID  uint64    `json:"outlet_id"`  // stock_records.outlet_id
    ProductID uint64    `json:"product_id"` // stock_records.product_id
    Quantity  uint32    `json:"quantity"`   // stock_records.quantity
    CreatedAt time.Time `json:"created_at"` // stock_records.created_at
    UpdatedAt time.Time `json:"updated_at"` // stock_records.updated_at
}
