package handler

import (
	"errors"
	"net/http"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/labstack/echo/v4"
)

// timeFormat is the RFC3339 rendering used for every timestamp field in
// JSON responses.
const timeFormat = "2006-01-02T15:04:05.999999999Z07:00"

// envelope is the uniform response shape for every endpoint:
// success responses carry data, error responses carry a stable code plus
// a human message and optional details.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// NoContent writes a 204 with no body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// errorStatus maps an abstract ErrorKind to its HTTP status.
func errorStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindCurrencyMismatch:
		return http.StatusBadRequest
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable machine-readable code callers can branch on
// without parsing the message.
func errorCode(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindValidation:
		return "validation_error"
	case domain.KindAuthorization:
		return "authorization_error"
	case domain.KindNotFound:
		return "not_found"
	case domain.KindConflict:
		return "conflict"
	case domain.KindCurrencyMismatch:
		return "currency_mismatch"
	case domain.KindTransient:
		return "transient_error"
	default:
		return "internal_error"
	}
}

// Fail classifies err via domain.Classify and writes the matching error
// envelope. Internal errors never leak the underlying message; every
// other kind surfaces err's own message since those are already
// caller-safe, stable-meaning sentinels.
func Fail(c echo.Context, err error) error {
	// A missing/invalid credential is 401, not the 403 the authorization
	// kind otherwise maps to.
	if errors.Is(err, domain.ErrUnauthorized) {
		return c.JSON(http.StatusUnauthorized, envelope{
			Success: false,
			Error:   &apiError{Code: "unauthorized", Message: err.Error()},
		})
	}
	kind := domain.Classify(err)
	message := err.Error()
	if kind == domain.KindInternal {
		message = "an internal error occurred"
	}
	return c.JSON(errorStatus(kind), envelope{
		Success: false,
		Error:   &apiError{Code: errorCode(kind), Message: message},
	})
}

// FailWithDetails behaves like Fail but attaches structured details, for
// validation errors that want to name the offending fields.
func FailWithDetails(c echo.Context, err error, details interface{}) error {
	kind := domain.Classify(err)
	message := err.Error()
	if kind == domain.KindInternal {
		message = "an internal error occurred"
	}
	return c.JSON(errorStatus(kind), envelope{
		Success: false,
		Error:   &apiError{Code: errorCode(kind), Message: message, Details: details},
	})
}

// FailMessage writes an error envelope with an explicit code/message pair,
// bypassing Classify — used for request-shape errors (malformed JSON,
// missing path param) that never reach a service and so have no sentinel.
func FailMessage(c echo.Context, status int, code, message string) error {
	return c.JSON(status, envelope{
		Success: false,
		Error:   &apiError{Code: code, Message: message},
	})
}
