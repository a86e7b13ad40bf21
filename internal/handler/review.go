package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/middleware"
	"github.com/iliyamo/online-store/internal/model"
	"github.com/iliyamo/online-store/internal/service"
)

// ReviewHandler exposes the review endpoints.  Submitting is idempotent
// per (user, product): the first call creates, every later call updates
// the caller's existing review in place.
type ReviewHandler struct {
	Svc *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler { return &ReviewHandler{Svc: svc} }

type reviewReq struct {
	ProductID uint64 `json:"product_id"`
	Grade     int    `json:"grade"`
	Comment   string `json:"comment"`
}

type reviewResp struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	ProductID uint64    `json:"product_id"`
	Grade     uint8     `json:"grade"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newReviewResp(r model.Review) reviewResp {
	return reviewResp{
		ID:        r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Grade:     r.Grade,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func reviewList(rs []model.Review) []reviewResp {
	out := make([]reviewResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, newReviewResp(r))
	}
	return out
}

// List returns all active reviews.
func (h *ReviewHandler) List(c echo.Context) error {
	rs, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reviewList(rs))
}

// ListByProduct returns the active reviews of one product.
func (h *ReviewHandler) ListByProduct(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	rs, err := h.Svc.ListByProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reviewList(rs))
}

// Submit creates or updates the caller's review of a product.  201 with
// outcome CREATED on first submission, 200 with outcome UPDATED after.
func (h *ReviewHandler) Submit(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	outcome, rv, err := h.Svc.SubmitOrUpdate(c.Request().Context(),
		middleware.CallerID(c), req.ProductID, req.Grade, req.Comment)
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusOK
	if outcome == service.OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{
		"outcome": string(outcome),
		"review":  newReviewResp(rv),
	})
}

// Delete soft-removes a review (admin only; gated by the router).
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "review marked as inactive"})
}
