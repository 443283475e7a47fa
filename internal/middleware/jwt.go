// Package middleware provides the request-processing chain shared by
// protected routes: bearer validation, role enforcement and rate
// limiting.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
	"github.com/ekinsu/auth-service/internal/model"
)

// Context keys set by Authenticate for downstream handlers.
const (
	CtxSubject = "subject"
	CtxRoles   = "roles"
)

// Authenticate validates the access token on each request and loads
// the current user behind its subject. Roles are taken from the stored
// user, not from token claims, so a role change applies on the next
// request without re-issuing tokens. Signature, expiry and revocation
// failures all map to 401; only the error detail differs.
func Authenticate(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.ExtractBearer(c.Request().Header.Get("Authorization"))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := svc.Validate(c.Request().Context(), raw, model.KindAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": tokenErrorDetail(err)})
			}
			u, err := svc.GetUser(c.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown subject"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			c.Set(CtxSubject, u.Email)
			c.Set(CtxRoles, u.Roles)
			return next(c)
		}
	}
}

// tokenErrorDetail maps validation errors to response detail strings.
// Revoked and expired tokens are reported as such; anything forged or
// undecodable stays a generic invalid token.
func tokenErrorDetail(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "token revoked"
	default:
		return "invalid token"
	}
}

// Subject returns the authenticated email set by Authenticate, or "".
func Subject(c echo.Context) string {
	if v, ok := c.Get(CtxSubject).(string); ok {
		return v
	}
	return ""
}

// Roles returns the authenticated user's roles, or nil.
func Roles(c echo.Context) []model.Role {
	if v, ok := c.Get(CtxRoles).([]model.Role); ok {
		return v
	}
	return nil
}
