package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// may define separate response types with appropriate JSON tags.
// RoleName is populated by queries that join the roles table and
// is empty otherwise.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Name           – display name.
//  Email          – unique email address.
//  PasswordHash   – bcrypt hashed password.
//  RoleID         – foreign key into the roles table.
//  RoleName       – name of the role (e.g. admin, user), joined in.
//  QuotaRemaining – generation credits left; admins ignore this field.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             uint64    // users.id
    Name           string    // users.name
    Email          string    // users.email
    PasswordHash   string    // users.password_hash
    RoleID         uint64    // users.role_id (references roles.id)
    RoleName       string    // roles.name (joined, not a users column)
    QuotaRemaining int       // users.quota_remaining
    CreatedAt      time.Time // users.created_at
    UpdatedAt      time.Time // users.updated_at
}

// IsAdmin reports whether the joined role marks this user as an
// administrator.  Callers that loaded the user without the role join
// must not rely on it.
func (u *User) IsAdmin() bool {
    return u.RoleName == RoleAdmin
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
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
