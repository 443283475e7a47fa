// Package handler maps the auth core onto HTTP. Handlers stay thin:
// bind, call the service, translate the tagged error to a status code.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
)

// respondError translates a core error into an HTTP response. Unmapped
// errors are internal failures and must never leak as 401: swallowing a
// ledger defect as "unauthorized" would hide a correctness violation.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrMissingToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	case errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
	case errors.Is(err, auth.ErrTokenRevoked):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrBadSignature),
		errors.Is(err, auth.ErrWrongTokenKind):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// failureReason labels an error for the failure counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, auth.ErrEmailTaken):
		return "duplicate_email"
	case errors.Is(err, auth.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, auth.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrTokenMalformed), errors.Is(err, auth.ErrWrongTokenKind):
		return "malformed_token"
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	default:
		return "internal"
	}
}
