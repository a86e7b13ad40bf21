package model

import "time"

// Review represents a row in the `reviews` table.  The table carries a
// unique index on (user_id, product_id): a user holds at most one review
// per product, and concurrent first submissions are resolved by the
// storage engine's uniqueness enforcement, not by an application lock.
// Reviews are soft-deleted via IsActive.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – author of the review.
//  ProductID – reviewed product.
//  Grade     – rating in the range 1..5.
//  Comment   – review body, never empty.
//  IsActive  – whether the review counts towards the product rating.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Review struct {
	ID        uint64    // reviews.id
	UserID    uint64    // reviews.user_id
	ProductID uint64    // reviews.product_id
	Grade     uint8     // reviews.grade
	Comment   string    // reviews.comment
	IsActive  bool      // reviews.is_active
	CreatedAt time.Time // reviews.created_at
	UpdatedAt time.Time // reviews.updated_at
}
