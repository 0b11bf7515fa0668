package model

import "time"

// Reserved role names seeded by the schema.  Both are protected from
// deletion; role names are stored lowercase.
const (
    RoleAdmin = "admin"
    RoleUser  = "user"
)

// Role represents a row in the `roles` table.  Users reference a role
// through users.role_id and tools are granted to roles through the
// role_tools join table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique lowercase role name.
//  Description – free-form description shown in the admin panel.
//  UserCount   – number of users assigned (joined in by some queries).
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Role struct {
    ID          uint64    // roles.id
    Name        string    // roles.name
    Description string    // roles.description
    UserCount   int       // COUNT(users.id), populated by listing queries
    CreatedAt   time.Time // roles.created_at
    UpdatedAt   time.Time // roles.updated_at
}

// Reserved reports whether the role is one of the seeded system roles
// that must never be deleted or renamed.
func (r *Role) Reserved() bool {
    return r.Name == RoleAdmin || r.Name == RoleUser
}
