// Package auth implements the authorization core: multi-device login
// sessions with single-use refresh token rotation, a pure permission
// resolver over role/user preset rows, and the per-request access-control
// gate. Persistence and transport live elsewhere; this package only talks
// to the small store interfaces declared in stores.go.
package auth

import "errors"

// The closed error taxonomy of the authorization core. Handlers translate
// these into HTTP status codes at the boundary; nothing in this package or
// below ever maps to transport concerns.
//
// ErrAuthFailed deliberately covers both "user not found" and "wrong
// password", and ErrInvalidSession covers unknown, expired, rotated-away
// and revoked refresh tokens, so callers cannot probe which case occurred.
var (
	// ErrAuthFailed means the presented credentials (or an access token
	// signature) could not be verified. Maps to 401.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInvalidSession means the presented refresh token does not match
	// any active, non-expired session. Maps to 401.
	ErrInvalidSession = errors.New("invalid session")

	// ErrForbidden means the caller is authenticated but lacks the
	// requested capability or location. Maps to 403.
	ErrForbidden = errors.New("forbidden")

	// ErrStalePermissions means the access token is valid but its
	// permission snapshot is outdated and the attempted action is no
	// longer granted. Maps to 403; the client should refresh.
	ErrStalePermissions = errors.New("stale permissions")

	// ErrTransient means the data store was unavailable or too slow.
	// Safe to retry. Maps to 503.
	ErrTransient = errors.New("transient store error")

	// ErrTokenExpired means the access token is past its expiry; the
	// caller should use the refresh flow. Maps to 401.
	ErrTokenExpired = errors.New("access token expired")
)
