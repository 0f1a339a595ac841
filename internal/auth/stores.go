package auth

import (
	"context"
	"time"

	"github.com/hartono/bizman-backend/internal/model"
	"github.com/hartono/bizman-backend/internal/queue"
	"github.com/hartono/bizman-backend/internal/utils"
)

// Store interfaces consumed by the session manager and the gate. The MySQL
// implementations live in internal/repository; tests supply in-memory
// fakes. Missing rows are reported as database/sql.ErrNoRows unless a
// method documents otherwise; infrastructure failures surface wrapped in
// ErrTransient.

// UserStore reads and updates user identity rows.
type UserStore interface {
	// GetByUserName returns the user with the given login name, or
	// sql.ErrNoRows.
	GetByUserName(ctx context.Context, userName string) (model.User, error)
	// GetByID returns the user with the given id, or sql.ErrNoRows.
	GetByID(ctx context.Context, id uint64) (model.User, error)
	// UpdateCurrentAccessKey persists the user's newly selected tenant.
	UpdateCurrentAccessKey(ctx context.Context, userID, accessKeyID uint64) error
}

// SessionStore owns the user_login_sessions table. No other component
// writes session rows.
type SessionStore interface {
	// Create inserts a new active session row and returns its id.
	Create(ctx context.Context, s model.UserLoginSession) (uint64, error)

	// Rotate atomically replaces the stored refresh token hash with
	// newHash, but only if the row still holds oldHash, is active and is
	// not expired. It returns the updated session, or ErrInvalidSession
	// when the conditional update matched nothing. This is the
	// compare-and-swap that makes concurrent refresh calls race safely.
	Rotate(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (model.UserLoginSession, error)

	// Deactivate marks the session holding the given hash as logged out
	// and returns the session it ended, so the logout can be attributed in
	// the audit trail. Deactivating an already-inactive or unknown session
	// is a no-op success returning a zero session.
	Deactivate(ctx context.Context, tokenHash string) (model.UserLoginSession, error)

	// DeactivateAllForUser marks every active session of the user as
	// logged out in one pass.
	DeactivateAllForUser(ctx context.Context, userID uint64) error

	// ListActiveForUser returns all sessions with is_active set, newest
	// login first.
	ListActiveForUser(ctx context.Context, userID uint64) ([]model.UserLoginSession, error)
}

// PresetStore reads the permission preset tables and the version counters.
// Administrative role-management code writes the presets and must bump the
// matching version; that bump is the one write-side contract the core
// exposes.
type PresetStore interface {
	RoleActionPresets(ctx context.Context, roleID uint64) ([]model.RoleActionPreset, error)
	RoleLocationPresets(ctx context.Context, roleID uint64) ([]model.RoleLocationPreset, error)
	UserOverrides(ctx context.Context, userID, roleID, accessKeyID uint64) ([]model.UserPermissionPreset, error)
	// Version returns the current permission version for the (user, role)
	// pair: the sum of the role counter and the user counter.
	Version(ctx context.Context, userID, roleID uint64) (uint64, error)
}

// AccessKeyStore answers tenant entitlement questions.
type AccessKeyStore interface {
	// HasEntitlement reports whether the user holds an active entitlement
	// row for the access key.
	HasEntitlement(ctx context.Context, userID, accessKeyID uint64) (bool, error)
}

// AuditSink receives security events. Implementations must be fire and
// forget: a sink failure never changes a security decision.
type AuditSink interface {
	Record(ctx context.Context, ev queue.SecurityEvent)
}

// Device captures the client context recorded on a new session row.
type Device struct {
	Info      string
	IP        string
	UserAgent string
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	SessionID uint64
	Access    utils.AccessToken
	Refresh   utils.RefreshToken
}
