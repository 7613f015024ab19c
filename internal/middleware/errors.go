package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorEnvelope mirrors handler.Fail's shape so a request rejected in
// middleware (before it ever reaches a handler) still returns the same
// {success, error: {code, message}} body callers depend on.
type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// unauthorizedError writes the standard unauthorized envelope.
func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, errorEnvelope{
		Success: false,
		Error:   &apiError{Code: "unauthorized", Message: detail},
	})
}
