package model

import "time"

// UserLoginSession models a row in the `user_login_sessions` table. One row
// exists per concurrent login (one per device/browser). The plain refresh
// token is never stored; only its SHA-256 hash. Rows are never deleted;
// logged-out sessions are retained as an audit trail.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – owner of the session.
//  RefreshToken     – SHA-256 hex digest of the current refresh token value.
//  RefreshExpiresAt – expiration of the current refresh token.
//  LastLogin        – when this session was created.
//  LastLogout       – when this session was logged out (nil while active).
//  IsLogout         – true once the session has been explicitly ended.
//  DeviceInfo       – free-form device description supplied at login.
//  IPAddress        – client IP recorded at login.
//  UserAgent        – client User-Agent recorded at login.
//  IsActive         – false once logged out, revoked or expired.
//  CreatedAt        – timestamp of creation.
//  ModifiedAt       – timestamp of last update (rotation bumps this).
type UserLoginSession struct {
	ID               uint64     // user_login_sessions.id
	UserID           uint64     // user_login_sessions.user_id
	RefreshToken     string     // user_login_sessions.refresh_token (hash)
	RefreshExpiresAt time.Time  // user_login_sessions.refresh_token_expires_at
	LastLogin        time.Time  // user_login_sessions.last_login
	LastLogout       *time.Time // user_login_sessions.last_logout (nullable)
	IsLogout         bool       // user_login_sessions.is_logout
	DeviceInfo       string     // user_login_sessions.device_info
	IPAddress        string     // user_login_sessions.ip_address
	UserAgent        string     // user_login_sessions.user_agent
	IsActive         bool       // user_login_sessions.is_active
	CreatedAt        time.Time  // user_login_sessions.created_at
	ModifiedAt       time.Time  // user_login_sessions.modified_at
}
