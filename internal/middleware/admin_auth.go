package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminAuth guards the operator-only surface (POST /admin/generate-recurring)
// behind the static admin API key rather than a member's own session.
func AdminAuth(adminAPIKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if adminAPIKey == "" {
				return unauthorizedError(c, "admin API is not configured")
			}
			supplied := c.Request().Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(adminAPIKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin key")
			}
			return next(c)
		}
	}
}
