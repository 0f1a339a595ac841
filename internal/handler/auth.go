package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/config"
	"github.com/hartono/bizman-backend/internal/middleware"
	"github.com/hartono/bizman-backend/internal/repository"
)

// AuthHandler bundles dependencies for the session and authorization
// endpoints. All business decisions live in the auth package; this layer
// only binds JSON, bounds request time and maps the core error taxonomy to
// HTTP status codes.
type AuthHandler struct {
	Cfg      config.Config
	Manager  *auth.Manager
	Gate     *auth.Gate
	Keys     *repository.AccessKeyRepo
}

func NewAuthHandler(cfg config.Config, manager *auth.Manager, gate *auth.Gate, keys *repository.AccessKeyRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Manager: manager, Gate: gate, Keys: keys}
}

// ----- DTOs -----

type loginReq struct {
	UserName   string `json:"user_name"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type changeKeyReq struct {
	AccessKeyID uint64 `json:"access_key_id"`
}
type authorizeReq struct {
	ModuleID   uint64  `json:"module_id"`
	ActionID   uint64  `json:"action_id"`
	LocationID *uint64 `json:"location_id"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type tokenPairResp struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}
type sessionPart struct {
	ID         uint64    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	LastLogin  time.Time `json:"last_login"`
}

func pairResp(p auth.TokenPair) tokenPairResp {
	return tokenPairResp{
		Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
		Refresh: tokenPart{Token: p.Refresh.Raw, Expires: p.Refresh.Exp}, // raw back to client
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Login authenticates credentials and opens a new device session. The
// response never distinguishes unknown users from wrong passwords.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserName = strings.ToLower(strings.TrimSpace(req.UserName))
	if req.UserName == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_name/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Manager.Login(ctx, req.UserName, req.Password, auth.Device{
		Info:      strings.TrimSpace(req.DeviceInfo),
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, pairResp(pair))
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// token. A reused or revoked token gets the same answer as an unknown one.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Manager.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, pairResp(pair))
}

// Logout ends the session holding the supplied refresh token. Idempotent:
// an already-ended session still answers 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Manager.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every active session of the authenticated user,
// "sign out everywhere" after a password change or a lost device.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Manager.RevokeAll(ctx, cl.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Sessions lists the caller's active device sessions.
func (h *AuthHandler) Sessions(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sessions, err := h.Manager.ListSessions(ctx, cl.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]sessionPart, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionPart{
			ID:         s.ID,
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			LastLogin:  s.LastLogin,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// ChangeAccessKey switches the caller's active tenant and returns a fresh
// access token carrying the new key. The refresh token keeps working
// unchanged. 403 when the caller is not entitled to the key or resolves to
// no capabilities under it; current_access_key is left untouched then.
func (h *AuthHandler) ChangeAccessKey(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changeKeyReq
	if err := c.Bind(&req); err != nil || req.AccessKeyID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "access_key_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := h.Manager.ChangeAccessKey(ctx, cl.UserID, req.AccessKeyID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Authorize answers whether the caller may perform (module, action),
// optionally at a location. Domain services call this when they cannot wrap
// their routes with the permission middleware directly.
func (h *AuthHandler) Authorize(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req authorizeReq
	if err := c.Bind(&req); err != nil || req.ModuleID == 0 || req.ActionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module_id/action_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Gate.Authorize(ctx, cl, req.ModuleID, req.ActionID, req.LocationID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"decision": "allow"})
}

// Me returns the caller's identity claims plus the access keys they may
// switch to.
func (h *AuthHandler) Me(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	keys, err := h.Keys.ListForUser(ctx, cl.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	type keyPart struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
	out := make([]keyPart, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyPart{ID: k.ID, Name: k.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     cl.UserID,
		"role_id":     cl.RoleID,
		"access_key":  cl.AccessKeyID,
		"access_keys": out,
	})
}

// fail maps the core error taxonomy to transport codes. This is the only
// place the translation happens; messages stay generic on credential and
// session failures.
func (h *AuthHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrAuthFailed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrInvalidSession):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
	case errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
	case errors.Is(err, auth.ErrStalePermissions):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "permissions changed, refresh required"})
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, auth.ErrTransient):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
