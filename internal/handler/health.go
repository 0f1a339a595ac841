package handler // HTTP handlers for the authorization service

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers and monitoring.
// It deliberately touches no dependencies: a degraded database or broker
// should not take the process out of rotation while sessions in flight can
// still be validated from cache.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
