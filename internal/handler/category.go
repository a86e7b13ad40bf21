package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/model"
	"github.com/iliyamo/online-store/internal/repository"
)

// CategoryHandler exposes the category tree.  Reads are public; writes
// are admin-gated by the router.
type CategoryHandler struct {
	Categories *repository.CategoryRepo
}

func NewCategoryHandler(c *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Categories: c}
}

type categoryReq struct {
	Name     string  `json:"name"`
	ParentID *uint64 `json:"parent_id"`
}

type categoryResp struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	ParentID *uint64 `json:"parent_id,omitempty"`
}

func newCategoryResp(c model.Category) categoryResp {
	return categoryResp{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
}

// List returns all visible categories.
func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cats, err := h.Categories.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]categoryResp, 0, len(cats))
	for _, cat := range cats {
		out = append(out, newCategoryResp(cat))
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds a category, validating the parent when given.
func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if req.ParentID != nil {
		if _, err := h.Categories.GetActive(ctx, *req.ParentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "parent category not found"})
			}
			return writeError(c, err)
		}
	}

	id, err := h.Categories.Create(ctx, req.Name, req.ParentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, categoryResp{ID: id, Name: req.Name, ParentID: req.ParentID})
}

// Update renames or reparents a category.  A category cannot become its
// own parent.
func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Categories.GetActive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, err)
	}
	if req.ParentID != nil {
		if *req.ParentID == id {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "category cannot be its own parent"})
		}
		if _, err := h.Categories.GetActive(ctx, *req.ParentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "parent category not found"})
			}
			return writeError(c, err)
		}
	}

	if err := h.Categories.Update(ctx, id, req.Name, req.ParentID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, categoryResp{ID: id, Name: req.Name, ParentID: req.ParentID})
}

// Delete marks a category inactive.
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Categories.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "category marked as inactive"})
}

// reqCtx bounds a handler's database work to a short timeout.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
