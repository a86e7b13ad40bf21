package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/online-store/internal/model"
)

// CategoryRepo provides data access to the categories table.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

const categoryCols = "id,name,parent_id,is_active,created_at,updated_at"

func scanCategory(row *sql.Row) (model.Category, error) {
	var (
		c        model.Category
		parentID sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Name, &parentID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Category{}, err
	}
	if parentID.Valid {
		v := uint64(parentID.Int64)
		c.ParentID = &v
	}
	return c, nil
}

// Create inserts a category and returns its ID.
func (r *CategoryRepo) Create(ctx context.Context, name string, parentID *uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (name, parent_id) VALUES (?,?)", name, parentID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetActive fetches an active category by id.
func (r *CategoryRepo) GetActive(ctx context.Context, id uint64) (model.Category, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+categoryCols+" FROM categories WHERE id=? AND is_active=1 LIMIT 1", id)
	return scanCategory(row)
}

// ListActive returns all visible categories.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+categoryCols+" FROM categories WHERE is_active=1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var (
			c        model.Category
			parentID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &parentID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if parentID.Valid {
			v := uint64(parentID.Int64)
			c.ParentID = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChildIDs returns the ids of active direct children of a category.
func (r *CategoryRepo) ChildIDs(ctx context.Context, parentID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id FROM categories WHERE parent_id=? AND is_active=1", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update renames a category and/or reparents it.  Callers check that the
// category exists first.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name string, parentID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET name=?, parent_id=? WHERE id=? AND is_active=1",
		name, parentID, id)
	return err
}

// SoftDelete marks a category inactive.
func (r *CategoryRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET is_active=0 WHERE id=? AND is_active=1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
