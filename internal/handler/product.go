package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/auth"
	"github.com/iliyamo/online-store/internal/middleware"
	"github.com/iliyamo/online-store/internal/model"
	"github.com/iliyamo/online-store/internal/repository"
)

// ProductHandler exposes catalog CRUD.  Reads are public; writes require
// the seller operations and only the listing seller (or an admin) may
// modify a product.
type ProductHandler struct {
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
}

func NewProductHandler(p *repository.ProductRepo, c *repository.CategoryRepo) *ProductHandler {
	return &ProductHandler{Products: p, Categories: c}
}

type productReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"image_url"`
	Stock       uint32  `json:"stock"`
	CategoryID  uint64  `json:"category_id"`
}

type productResp struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"image_url,omitempty"`
	Stock       uint32  `json:"stock"`
	Rating      float64 `json:"rating"`
	CategoryID  uint64  `json:"category_id"`
	SellerID    uint64  `json:"seller_id"`
}

func newProductResp(p model.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Rating:      p.Rating,
		CategoryID:  p.CategoryID,
		SellerID:    p.SellerID,
	}
}

func productList(ps []model.Product) []productResp {
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductResp(p))
	}
	return out
}

// List returns all visible products.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ps, err := h.Products.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, productList(ps))
}

// Get returns one visible product.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetActive(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newProductResp(p))
}

// ListByCategory returns visible products in a category and its direct
// children.
func (h *ProductHandler) ListByCategory(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Categories.GetActive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, err)
	}
	childIDs, err := h.Categories.ChildIDs(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	ps, err := h.Products.ListByCategories(ctx, append([]uint64{id}, childIDs...))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, productList(ps))
}

func (h *ProductHandler) bindAndValidate(c echo.Context) (productReq, bool) {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 || req.CategoryID == 0 {
		return req, false
	}
	return req, true
}

// Create lists a new product owned by the calling seller.
func (h *ProductHandler) Create(c echo.Context) error {
	req, ok := h.bindAndValidate(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, non-negative price and category_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Categories.GetActive(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, err)
	}

	p := model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		SellerID:    middleware.CallerID(c),
	}
	id, err := h.Products.Create(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	p.ID = id
	return c.JSON(http.StatusCreated, newProductResp(p))
}

// Update rewrites a product.  Sellers may only touch their own listings;
// admins may touch any.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	req, ok := h.bindAndValidate(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, non-negative price and category_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return writeError(c, err)
	}
	if !h.mayModify(c, p) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only update your own products"})
	}
	if _, err := h.Categories.GetActive(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, err)
	}

	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.ImageURL = req.ImageURL
	p.Stock = req.Stock
	p.CategoryID = req.CategoryID
	if err := h.Products.Update(ctx, p); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newProductResp(p))
}

// Delete marks a product inactive with the same ownership rule as Update.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetActive(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return writeError(c, err)
	}
	if !h.mayModify(c, p) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only delete your own products"})
	}

	if err := h.Products.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "product marked as inactive"})
}

// mayModify applies the ownership rule: the listing seller or an admin.
func (h *ProductHandler) mayModify(c echo.Context, p model.Product) bool {
	if middleware.CallerRole(c) == auth.RoleAdmin {
		return true
	}
	return p.SellerID == middleware.CallerID(c)
}
