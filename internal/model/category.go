package model

import "time"

// Category represents a row in the `categories` table.  Categories form a
// single-level hierarchy through ParentID and are soft-deleted via
// IsActive.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the category.
//  ParentID  – optional parent category (null for top-level).
//  IsActive  – whether the category is visible.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Category struct {
	ID        uint64    // categories.id
	Name      string    // categories.name
	ParentID  *uint64   // categories.parent_id (nullable)
	IsActive  bool      // categories.is_active
	CreatedAt time.Time // categories.created_at
	UpdatedAt time.Time // categories.updated_at
}
