// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds emitted by the authorization core.
const (
	EventLogin         = "login"
	EventLoginFailed   = "login_failed"
	EventTokenRefresh  = "token_refreshed"
	EventLogout        = "logout"
	EventRevokeAll     = "sessions_revoked"
	EventAccessDenied  = "access_denied"
	EventAccessKeySet  = "access_key_changed"
	EventAccessKeyDeny = "access_key_denied"
)

// SecurityEvent is published for every session-lifecycle transition and
// authorization denial. It carries enough context for downstream consumers
// to log, alert or notify without querying the primary database. Publishing
// is best-effort: a lost event never changes the security decision it
// describes.
type SecurityEvent struct {
	Kind       string `json:"kind"`
	UserID     uint64 `json:"user_id"`
	SessionID  uint64 `json:"session_id,omitempty"`
	ModuleID   uint64 `json:"module_id,omitempty"`
	ActionID   uint64 `json:"action_id,omitempty"`
	Decision   string `json:"decision,omitempty"` // "allow" | "deny" on gate events
	Detail     string `json:"detail,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC 3339 UTC
}
