package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/auth"
	"github.com/iliyamo/online-store/internal/repository"
	"github.com/iliyamo/online-store/internal/service"
)

// writeError maps service and auth errors onto stable HTTP responses.
// Raw storage errors never leak to the client; anything unrecognised
// collapses into a 500.
func writeError(c echo.Context, err error) error {
	var ite *auth.InvalidTokenError
	if errors.As(err, &ite) {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error":  "invalid token",
			"reason": string(ite.Reason),
		})
	}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "validation failed",
			"field": ve.Field,
			"hint":  ve.Message,
		})
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
