package middleware // reusable HTTP middleware for the authorization core

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/utils"
)

// Context keys set by GateAuth for downstream handlers and middleware.
const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"
)

// GateAuth validates the Bearer access token on every request and injects
// the decoded claims into the Echo context. Expired tokens get a distinct
// 401 body so clients know to run the refresh flow instead of
// re-authenticating; all other failures look identical.
func GateAuth(g *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			cl, err := g.ValidateToken(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ClaimsKey, cl)
			c.Set(UserIDKey, cl.UserID)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by GateAuth, or false when the
// route was registered without it.
func ClaimsFrom(c echo.Context) (utils.AccessClaims, bool) {
	cl, ok := c.Get(ClaimsKey).(utils.AccessClaims)
	return cl, ok
}
