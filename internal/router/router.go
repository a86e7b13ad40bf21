// Package router registers the HTTP routes and binds middleware to them.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/online-store/internal/auth"
	"github.com/iliyamo/online-store/internal/config"
	"github.com/iliyamo/online-store/internal/handler"
	"github.com/iliyamo/online-store/internal/middleware"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Auth       *handler.AuthHandler
	Categories *handler.CategoryHandler
	Products   *handler.ProductHandler
	Reviews    *handler.ReviewHandler
}

// Register sets up all routes.
//
// Layout:
//
//	/healthz                 liveness probe
//	/v1/auth/*               register/login/refresh/logout (rate limited)
//	/v1/...    (GET)         public catalog reads (cached)
//	/v1/...    (writes)      access-token protected, operation gated
func Register(e *echo.Echo, h Handlers, tokens *auth.TokenService, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Credential endpoints get a stricter bucket than the rest of the API:
	// these are the brute-force targets.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authGroup := e.Group("/v1/auth", limiter)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)

	// Public catalog reads; no token required.
	pub := e.Group("/v1", cache)
	pub.GET("/categories", h.Categories.List)
	pub.GET("/products", h.Products.List)
	pub.GET("/products/:id", h.Products.Get)
	pub.GET("/categories/:id/products", h.Products.ListByCategory)
	pub.GET("/reviews", h.Reviews.List)
	pub.GET("/products/:id/reviews", h.Reviews.ListByProduct)

	// Everything below requires a valid access token; each route is
	// additionally gated on the permission table.
	sec := e.Group("/v1", middleware.JWTAuth(tokens))
	sec.GET("/me", h.Auth.Me)

	sec.POST("/categories", h.Categories.Create, middleware.RequireOperation(auth.OpCategoryWrite))
	sec.PUT("/categories/:id", h.Categories.Update, middleware.RequireOperation(auth.OpCategoryWrite))
	sec.DELETE("/categories/:id", h.Categories.Delete, middleware.RequireOperation(auth.OpCategoryWrite))

	sec.POST("/products", h.Products.Create, middleware.RequireOperation(auth.OpProductCreate))
	sec.PUT("/products/:id", h.Products.Update, middleware.RequireOperation(auth.OpProductUpdate))
	sec.DELETE("/products/:id", h.Products.Delete, middleware.RequireOperation(auth.OpProductDelete))

	sec.POST("/reviews", h.Reviews.Submit, middleware.RequireOperation(auth.OpReviewWrite))
	sec.DELETE("/reviews/:id", h.Reviews.Delete, middleware.RequireOperation(auth.OpReviewDelete))

	sec.PUT("/users/:id/role", h.Auth.ChangeRole, middleware.RequireOperation(auth.OpRoleChange))
	sec.DELETE("/users/:id", h.Auth.Deactivate, middleware.RequireOperation(auth.OpUserDeactivate))
}
