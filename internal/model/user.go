package model

import "time"

// Roles stored in users.role and carried in the JWT "role" claim.
const (
    RoleConsumer = "CONSUMER"
    RoleOutlet   = "OUTLET"
    RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  Consumers carry the address fields used to snapshot a delivery
// destination at creation time; outlet operators carry the outlet they
// act for via OutletID.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (CONSUMER, OUTLET or ADMIN).
//  OutletID     – outlet the operator belongs to (null for consumers).
//  Street       – street address used for delivery snapshots.
//  City         – city used for delivery snapshots.
//  Contact      – phone or contact line used for delivery snapshots.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    OutletID     *uint64   // users.outlet_id (nullable)
    Street       string    // users.street
    City         string    // users.city
    Contact      string    // users.contact
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry and
// revocation.  The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
