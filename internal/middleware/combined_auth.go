package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// apiTokenHeaderPrefix is the prefix every API token carries (see
// service.APITokenService's tokenPrefix), used to route an incoming
// bearer credential to the right validator without guessing from shape.
const apiTokenHeaderPrefix = "bearer divvy_"

// CombinedAuth dispatches an incoming request to either the Auth0 JWT
// middleware or the API token middleware depending on the bearer
// credential's shape, so every group-scoped route accepts both a user
// session and a personal API token (API tokens exist precisely to let
// scripts call these routes without a browser session).
func CombinedAuth(jwtAuth *AuthMiddleware, tokenAuth *APITokenAuthMiddleware) echo.MiddlewareFunc {
	jwtNext := jwtAuth.Authenticate()
	tokenNext := tokenAuth.Authenticate()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		jwtChain := jwtNext(next)
		tokenChain := tokenNext(next)

		return func(c echo.Context) error {
			header := strings.ToLower(c.Request().Header.Get("Authorization"))
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if strings.HasPrefix(header, apiTokenHeaderPrefix) {
				return tokenChain(c)
			}
			return jwtChain(c)
		}
	}
}
