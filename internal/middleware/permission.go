package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hartono/bizman-backend/internal/auth"
)

// RequirePermission enforces that the authenticated user's effective
// permission set grants (moduleID, actionID). Domain route groups wrap
// their handlers with this after GateAuth. Stale-snapshot denials are
// reported separately so clients holding an outdated token know a refresh
// will update their view; a plain forbidden will not change after refresh.
func RequirePermission(g *auth.Gate, moduleID, actionID uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := ClaimsFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			err := g.Authorize(c.Request().Context(), cl, moduleID, actionID, nil)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, auth.ErrStalePermissions):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "permissions changed, refresh required"})
			case errors.Is(err, auth.ErrForbidden):
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":     "forbidden",
					"module_id": moduleID,
					"action_id": actionID,
				})
			case errors.Is(err, auth.ErrTransient):
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
			default:
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
			}
		}
	}
}
