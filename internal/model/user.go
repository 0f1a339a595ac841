package model

import "time"

// Status values used across all tables that carry a status_id column.
// Records are never hard-deleted; rows are flagged inactive instead.
const (
	StatusActive   uint8 = 1
	StatusInactive uint8 = 2
)

// User represents a row in the `users` table. CurrentAccessKey holds the
// tenant the user last selected; zero means no tenant has been chosen yet.
// UplineID models the reporting hierarchy and plays no part in
// authorization decisions.
//
// Fields:
//  ID               – primary key identifier.
//  UserName         – unique login name.
//  PasswordHash     – bcrypt hashed password.
//  RoleID           – foreign key into the roles table.
//  StatusID         – active/inactive flag (see StatusActive).
//  UplineID         – users.user_upline_id; zero when the user has no upline.
//  CurrentAccessKey – users.current_access_key; zero when unset.
//  CreatedAt        – timestamp of creation.
//  ModifiedAt       – timestamp of last update.
type User struct {
	ID               uint64    // users.id
	UserName         string    // users.user_name
	PasswordHash     string    // users.password_hash
	RoleID           uint64    // users.role_id
	StatusID         uint8     // users.status_id
	UplineID         uint64    // users.user_upline_id (0 = none)
	CurrentAccessKey uint64    // users.current_access_key (0 = none)
	CreatedAt        time.Time // users.created_at
	ModifiedAt       time.Time // users.modified_at
}

// Role represents a row in the `roles` table: a named bundle of default
// module/action and location grants, referenced by users and all preset
// tables.
type Role struct {
	ID       uint64 // roles.id
	Name     string // roles.name
	StatusID uint8  // roles.status_id
}

// AccessKey is the tenant/company scoping unit. Employees, warehouses and
// sales records all carry an access_key_id; it partitions data visibility.
type AccessKey struct {
	ID       uint64 // access_keys.id
	Name     string // access_keys.name
	StatusID uint8  // access_keys.status_id
}

// UserAccessKey is an entitlement row: the user may select the referenced
// access key as their active tenant context.
type UserAccessKey struct {
	UserID      uint64 // user_access_keys.user_id
	AccessKeyID uint64 // user_access_keys.access_key_id
	StatusID    uint8  // user_access_keys.status_id
}
