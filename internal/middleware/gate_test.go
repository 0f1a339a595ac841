package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/middleware"
	"github.com/hartono/bizman-backend/internal/model"
	"github.com/hartono/bizman-backend/internal/utils"
)

const (
	secret     = "mw-secret"
	roleID     = uint64(1)
	userID     = uint64(9)
	moduleID   = uint64(10)
	actionView = uint64(1)
	actionEdit = uint64(2)
)

// staticPresets serves a fixed grant list; enough to drive the gate
// through the middleware without a database.
type staticPresets struct {
	actions []model.RoleActionPreset
}

func (s staticPresets) RoleActionPresets(context.Context, uint64) ([]model.RoleActionPreset, error) {
	return s.actions, nil
}
func (s staticPresets) RoleLocationPresets(context.Context, uint64) ([]model.RoleLocationPreset, error) {
	return nil, nil
}
func (s staticPresets) UserOverrides(context.Context, uint64, uint64, uint64) ([]model.UserPermissionPreset, error) {
	return nil, nil
}
func (s staticPresets) Version(context.Context, uint64, uint64) (uint64, error) { return 0, nil }

func newGate() *auth.Gate {
	presets := staticPresets{actions: []model.RoleActionPreset{
		{RoleID: roleID, ModuleID: moduleID, ActionID: actionView, StatusID: model.StatusActive},
	}}
	return auth.NewGate(secret, &auth.SnapshotSource{Presets: presets}, nil)
}

func token(t *testing.T, ttlMin int) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, utils.AccessClaims{
		UserID: userID, RoleID: roleID, AccessKeyID: 5,
	}, ttlMin)
	require.NoError(t, err)
	return tok.Token
}

func run(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestGateAuthSetsClaims(t *testing.T) {
	g := newGate()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 15))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := middleware.GateAuth(g)(func(c echo.Context) error {
		cl, ok := middleware.ClaimsFrom(c)
		require.True(t, ok)
		require.Equal(t, userID, cl.UserID)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGateAuthRejections(t *testing.T) {
	g := newGate()

	rec := run(t, []echo.MiddlewareFunc{middleware.GateAuth(g)}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = run(t, []echo.MiddlewareFunc{middleware.GateAuth(g)}, "Bearer garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid token")

	rec = run(t, []echo.MiddlewareFunc{middleware.GateAuth(g)}, "Bearer "+token(t, -1))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "token expired")
}

func TestRequirePermission(t *testing.T) {
	g := newGate()
	chain := func(actionID uint64) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{
			middleware.GateAuth(g),
			middleware.RequirePermission(g, moduleID, actionID),
		}
	}

	rec := run(t, chain(actionView), "Bearer "+token(t, 15))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = run(t, chain(actionEdit), "Bearer "+token(t, 15))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "forbidden")
}
