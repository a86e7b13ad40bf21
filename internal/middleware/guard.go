package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/auth"
)

// RequireOperation gates a route on the permission table: the caller's
// role (stored in context by JWTAuth) must be allowed to perform op.
// A missing or unknown role denies by default.
func RequireOperation(op auth.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.Authorize(CallerRole(c), op) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
