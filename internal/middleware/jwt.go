// Package middleware contains reusable HTTP middleware: access-token
// authentication, the operation gate backed by the permission table, and
// Redis-based rate limiting and response caching.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/auth"
)

// JWTAuth validates a Bearer access token and injects the verified user
// id and role into the request context under "user_id" and "role".
// Verification is pure: no storage lookup happens, so a role change made
// after issuance is not visible until the token expires.
func JWTAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := tokens.Verify(raw, auth.KindAccess)
			if err != nil {
				var ite *auth.InvalidTokenError
				if errors.As(err, &ite) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"error":  "invalid token",
						"reason": string(ite.Reason),
					})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// CallerID returns the authenticated user id stored by JWTAuth, or zero
// when the request is unauthenticated.
func CallerID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}

// CallerRole returns the authenticated role stored by JWTAuth, or the
// empty string.
func CallerRole(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}
