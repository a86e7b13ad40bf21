package model

import "time"

// Product represents a row in the `products` table.  Rating is a stored
// aggregate recomputed from active reviews after every review write.
// Products are soft-deleted via IsActive.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – product name.
//  Description – optional free-text description.
//  Price       – unit price.
//  ImageURL    – optional image location.
//  Stock       – units in stock.
//  Rating      – average review grade rounded to two decimals.
//  CategoryID  – owning category.
//  SellerID    – user who listed the product; only this user (or an
//                admin) may modify it.
//  IsActive    – whether the product is visible.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Product struct {
	ID          uint64    // products.id
	Name        string    // products.name
	Description *string   // products.description (nullable)
	Price       float64   // products.price
	ImageURL    *string   // products.image_url (nullable)
	Stock       uint32    // products.stock
	Rating      float64   // products.rating
	CategoryID  uint64    // products.category_id
	SellerID    uint64    // products.seller_id
	IsActive    bool      // products.is_active
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}
