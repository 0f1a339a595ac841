package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hartono/bizman-backend/internal/queue"
	"github.com/hartono/bizman-backend/internal/utils"
)

// Gate is the per-request enforcement point. It validates access tokens and
// checks the attempted action against the current effective permission set.
// The gate never refreshes tokens; an expired token is the caller's cue to
// use the refresh flow.
type Gate struct {
	secret string
	snaps  *SnapshotSource
	audit  AuditSink
}

// NewGate wires a gate. audit may be nil (denials are not recorded).
func NewGate(secret string, snaps *SnapshotSource, audit AuditSink) *Gate {
	return &Gate{secret: secret, snaps: snaps, audit: audit}
}

// ValidateToken checks signature and expiry and decodes the claims.
// Past-expiry tokens return ErrTokenExpired; every other parse failure
// collapses into ErrAuthFailed.
func (g *Gate) ValidateToken(raw string) (utils.AccessClaims, error) {
	cl, err := utils.ParseAccessClaims(g.secret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return utils.AccessClaims{}, ErrTokenExpired
		}
		return utils.AccessClaims{}, ErrAuthFailed
	}
	return cl, nil
}

// Authorize decides whether the token holder may perform (module, action),
// optionally at a location. The decision always runs against the current
// snapshot, so a token with a stale permission version proceeds
// transparently as long as the action is still granted (soft invalidation);
// only when the action has been lost since issuance does the caller see
// ErrStalePermissions instead of a plain ErrForbidden. Every denial is
// recorded to the audit sink before returning.
func (g *Gate) Authorize(ctx context.Context, cl utils.AccessClaims, moduleID, actionID uint64, locationID *uint64) error {
	set, err := g.snaps.Effective(ctx, cl.UserID, cl.RoleID, cl.AccessKeyID)
	if err != nil {
		return err
	}
	if err := Authorize(set, moduleID, actionID, locationID); err != nil {
		decision := ErrForbidden
		if set.Version > cl.PermissionVersion {
			decision = ErrStalePermissions
		}
		g.deny(ctx, cl, moduleID, actionID, decision)
		return decision
	}
	return nil
}

func (g *Gate) deny(ctx context.Context, cl utils.AccessClaims, moduleID, actionID uint64, cause error) {
	if g.audit == nil {
		return
	}
	g.audit.Record(ctx, queue.SecurityEvent{
		Kind:       queue.EventAccessDenied,
		UserID:     cl.UserID,
		ModuleID:   moduleID,
		ActionID:   actionID,
		Decision:   "deny",
		Detail:     fmt.Sprintf("access_key=%d: %v", cl.AccessKeyID, cause),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
