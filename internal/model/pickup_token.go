package model

import "time"

// TokenStatus enumerates the states of a pickup token.
type TokenStatus string

const (
    TokenPending  TokenStatus = "PENDING"  // issued, not yet presented
    TokenApproved TokenStatus = "APPROVED" // validated by the outlet
    TokenExpired  TokenStatus = "EXPIRED"  // lapsed before validation
)

// PickupTokenTTL is the fixed lifetime of a pickup token from issuance.
const PickupTokenTTL = 24 * time.Hour

// PickupCodeLength is the number of characters in a pickup code.
const PickupCodeLength = 6

// PickupToken is a short-lived code proving a request was submitted; the
// consumer presents it at the outlet for validation.  Exactly one token
// exists per request and its code is unique among active tokens.
//
// Fields:
//  ID        – primary key identifier.
//  RequestID – request this token belongs to (one-to-one).
//  Code      – 6-character code from the unambiguous digit alphabet.
//  Status    – PENDING, APPROVED or EXPIRED.
//  ExpiresAt – issuance time plus PickupTokenTTL (UTC).
//  CreatedAt – creation timestamp (UTC).
//  UpdatedAt – last update timestamp (UTC).
type PickupToken struct {
    ID        uint64      `json:"id"`         // tokens.id
    RequestID uint64      `json:"request_id"` // tokens.request_id
    Code      string      `json:"code"`       // tokens.code
    Status    TokenStatus `json:"status"`     // tokens.status
    ExpiresAt time.Time   `json:"expires_at"` // tokens.expires_at
    CreatedAt time.Time   `json:"created_at"` // tokens.created_at
    UpdatedAt time.Time   `json:"updated_at"` // tokens.updated_at
}

// Expired reports whether the token has lapsed relative to now.
func (t PickupToken) Expired(now time.Time) bool {
    return !now.UTC().Before(t.ExpiresAt)
}
