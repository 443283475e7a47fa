package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
)

// RequireOperation gates a route behind the policy table entry for the
// given operation. It assumes Authenticate already ran and stored the
// caller's roles in the context; a missing role set is treated as no
// roles and rejected with 403.
func RequireOperation(policy *auth.Policy, op auth.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !policy.AuthorizeOperation(op, Roles(c)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
