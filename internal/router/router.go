package router // route registration for the authorization service

import (
	"github.com/labstack/echo/v4"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/handler"
	"github.com/hartono/bizman-backend/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
// Currently only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires all session and authorization endpoints.
//
// Unauthenticated operations live under /v1/auth and sit behind the rate
// limiter: login pays a bcrypt comparison per attempt and refresh/logout
// accept guessable opaque tokens, so both are brute-force targets. Logout
// stays open on purpose: a client whose access token already expired must
// still be able to end its session with just the refresh token.
//
// Everything under /v1 requires a valid access token via GateAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g *auth.Gate, limiter echo.MiddlewareFunc) {
	pub := e.Group("/v1/auth")
	if limiter != nil {
		pub.Use(limiter)
	}
	pub.POST("/login", a.Login)
	pub.POST("/refresh", a.Refresh)
	pub.POST("/logout", a.Logout)

	priv := e.Group("/v1")
	priv.Use(middleware.GateAuth(g))
	priv.POST("/auth/logout-all", a.LogoutAll)
	priv.GET("/sessions", a.Sessions)
	priv.POST("/access-key", a.ChangeAccessKey)
	priv.POST("/authorize", a.Authorize)
	priv.GET("/me", a.Me)
}

// RegisterModuleRoutes is the hook for domain route groups (warehouses,
// employees, sales, ...). Each group passes its module id and the action id
// to enforce per method; the permission middleware consults the caller's
// effective permission set on every request.
//
//	g := router.RegisterModuleRoutes(e, gate, moduleWarehouse, actionView)
//	g.GET("", listWarehouses)
func RegisterModuleRoutes(e *echo.Echo, g *auth.Gate, moduleID, actionID uint64) *echo.Group {
	grp := e.Group("/v1/modules")
	grp.Use(middleware.GateAuth(g))
	grp.Use(middleware.RequirePermission(g, moduleID, actionID))
	return grp
}
