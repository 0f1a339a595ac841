package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hartono/bizman-backend/internal/config"
	"github.com/hartono/bizman-backend/internal/model"
	"github.com/hartono/bizman-backend/internal/queue"
	"github.com/hartono/bizman-backend/internal/utils"
)

// Manager owns the session lifecycle: login, refresh with single-use
// rotation, logout, revoke-all and listing. It is the only writer of
// session rows. There is no cap on concurrent sessions per user; every
// device gets its own row and its own revocation.
type Manager struct {
	cfg      config.Config
	users    UserStore
	sessions SessionStore
	keys     AccessKeyStore
	snaps    *SnapshotSource
	audit    AuditSink

	// dummyHash is compared against on unknown-user logins so the
	// bcrypt cost is paid on both failure paths.
	dummyHash string
}

// NewManager wires a session manager. audit may be nil (events dropped).
func NewManager(cfg config.Config, users UserStore, sessions SessionStore, keys AccessKeyStore, snaps *SnapshotSource, audit AuditSink) *Manager {
	dummy, err := utils.HashPassword("equalize-timing", cfg.BcryptCost)
	if err != nil {
		dummy = ""
	}
	return &Manager{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		keys:      keys,
		snaps:     snaps,
		audit:     audit,
		dummyHash: dummy,
	}
}

// Login verifies credentials, creates a session row and issues a token
// pair. The access token embeds the permission-snapshot version computed
// for the user's current access key. All credential failures collapse into
// ErrAuthFailed.
func (m *Manager) Login(ctx context.Context, userName, password string, dev Device) (TokenPair, error) {
	u, err := m.users.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.VerifyPassword(m.dummyHash, password)
			return TokenPair{}, ErrAuthFailed
		}
		return TokenPair{}, err
	}
	if u.StatusID != model.StatusActive || !utils.VerifyPassword(u.PasswordHash, password) {
		m.record(ctx, queue.SecurityEvent{Kind: queue.EventLoginFailed, UserID: u.ID, IPAddress: dev.IP})
		return TokenPair{}, ErrAuthFailed
	}

	set, err := m.snaps.Effective(ctx, u.ID, u.RoleID, u.CurrentAccessKey)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := utils.NewRefreshToken(m.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	sid, err := m.sessions.Create(ctx, model.UserLoginSession{
		UserID:           u.ID,
		RefreshToken:     utils.HashRefreshRaw(refresh.Raw),
		RefreshExpiresAt: refresh.Exp,
		DeviceInfo:       dev.Info,
		IPAddress:        dev.IP,
		UserAgent:        dev.UserAgent,
	})
	if err != nil {
		return TokenPair{}, err
	}
	access, err := m.issueAccess(u, u.CurrentAccessKey, set.Version)
	if err != nil {
		return TokenPair{}, err
	}

	m.record(ctx, queue.SecurityEvent{Kind: queue.EventLogin, UserID: u.ID, SessionID: sid, IPAddress: dev.IP, Detail: dev.Info})
	return TokenPair{SessionID: sid, Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new token pair, rotating
// the stored token in the same conditional update. Rotation is single-use:
// once a token has been rotated away, presenting it again fails with
// ErrInvalidSession, and of two concurrent calls with the same token
// exactly one wins. Unknown, expired and revoked tokens fail identically.
func (m *Manager) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	next, err := utils.NewRefreshToken(m.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	sess, err := m.sessions.Rotate(ctx, utils.HashRefreshRaw(rawRefresh), utils.HashRefreshRaw(next.Raw), next.Exp)
	if err != nil {
		return TokenPair{}, err
	}

	u, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrInvalidSession
		}
		return TokenPair{}, err
	}
	if u.StatusID != model.StatusActive {
		// Deactivated account: kill the session rather than renew it.
		_ = m.sessions.DeactivateAllForUser(ctx, u.ID)
		return TokenPair{}, ErrInvalidSession
	}

	set, err := m.snaps.Effective(ctx, u.ID, u.RoleID, u.CurrentAccessKey)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := m.issueAccess(u, u.CurrentAccessKey, set.Version)
	if err != nil {
		return TokenPair{}, err
	}

	m.record(ctx, queue.SecurityEvent{Kind: queue.EventTokenRefresh, UserID: u.ID, SessionID: sess.ID})
	return TokenPair{SessionID: sess.ID, Access: access, Refresh: next}, nil
}

// Logout ends the session holding the given refresh token. Idempotent:
// logging out an already-inactive or unknown session succeeds silently and
// emits nothing, so the audit trail records each logout once, attributed to
// its user and session.
func (m *Manager) Logout(ctx context.Context, rawRefresh string) error {
	sess, err := m.sessions.Deactivate(ctx, utils.HashRefreshRaw(rawRefresh))
	if err != nil {
		return err
	}
	if sess.ID != 0 {
		m.record(ctx, queue.SecurityEvent{Kind: queue.EventLogout, UserID: sess.UserID, SessionID: sess.ID, IPAddress: sess.IPAddress})
	}
	return nil
}

// RevokeAll marks every active session of the user inactive in one pass.
// Used on password change or forced security action; any refresh attempt on
// the revoked sessions fails with ErrInvalidSession afterwards.
func (m *Manager) RevokeAll(ctx context.Context, userID uint64) error {
	if err := m.sessions.DeactivateAllForUser(ctx, userID); err != nil {
		return err
	}
	m.record(ctx, queue.SecurityEvent{Kind: queue.EventRevokeAll, UserID: userID})
	return nil
}

// ListSessions returns the user's active sessions for "manage my devices"
// views.
func (m *Manager) ListSessions(ctx context.Context, userID uint64) ([]model.UserLoginSession, error) {
	return m.sessions.ListActiveForUser(ctx, userID)
}

// ChangeAccessKey switches the user's active tenant. The user must hold an
// active entitlement for the new key and must resolve to a non-empty
// capability set under it; otherwise ErrForbidden and current_access_key
// stays unchanged. On success a fresh access token carrying the new key is
// returned; the refresh token and session row are untouched.
func (m *Manager) ChangeAccessKey(ctx context.Context, userID, accessKeyID uint64) (utils.AccessToken, error) {
	ok, err := m.keys.HasEntitlement(ctx, userID, accessKeyID)
	if err != nil {
		return utils.AccessToken{}, err
	}
	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.AccessToken{}, ErrForbidden
		}
		return utils.AccessToken{}, err
	}
	if !ok {
		m.record(ctx, queue.SecurityEvent{Kind: queue.EventAccessKeyDeny, UserID: userID, Detail: "no entitlement"})
		return utils.AccessToken{}, ErrForbidden
	}

	set, err := m.snaps.Effective(ctx, userID, u.RoleID, accessKeyID)
	if err != nil {
		return utils.AccessToken{}, err
	}
	if len(set.Capabilities) == 0 {
		m.record(ctx, queue.SecurityEvent{Kind: queue.EventAccessKeyDeny, UserID: userID, Detail: "empty capability set"})
		return utils.AccessToken{}, ErrForbidden
	}

	if err := m.users.UpdateCurrentAccessKey(ctx, userID, accessKeyID); err != nil {
		return utils.AccessToken{}, err
	}
	access, err := m.issueAccess(u, accessKeyID, set.Version)
	if err != nil {
		return utils.AccessToken{}, err
	}
	m.record(ctx, queue.SecurityEvent{Kind: queue.EventAccessKeySet, UserID: userID})
	return access, nil
}

func (m *Manager) issueAccess(u model.User, accessKeyID, version uint64) (utils.AccessToken, error) {
	return utils.NewAccessToken(m.cfg.JWTSecret, utils.AccessClaims{
		UserID:            u.ID,
		RoleID:            u.RoleID,
		AccessKeyID:       accessKeyID,
		PermissionVersion: version,
	}, m.cfg.AccessTTLMin)
}

func (m *Manager) record(ctx context.Context, ev queue.SecurityEvent) {
	if m.audit == nil {
		return
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.audit.Record(ctx, ev)
}
