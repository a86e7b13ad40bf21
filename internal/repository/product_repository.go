package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/online-store/internal/model"
)

// ProductRepo provides data access to the products table.  The rating
// column is a stored aggregate over active reviews; RecalcRating rebuilds
// it in a single statement so readers never observe a half-applied value.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productCols = "id,name,description,price,image_url,stock,rating,category_id,seller_id,is_active,created_at,updated_at"

func scanProduct(scan func(dest ...any) error) (model.Product, error) {
	var (
		p        model.Product
		desc     sql.NullString
		imageURL sql.NullString
	)
	err := scan(&p.ID, &p.Name, &desc, &p.Price, &imageURL, &p.Stock, &p.Rating,
		&p.CategoryID, &p.SellerID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Product{}, err
	}
	if desc.Valid {
		v := desc.String
		p.Description = &v
	}
	if imageURL.Valid {
		v := imageURL.String
		p.ImageURL = &v
	}
	return p, nil
}

// Create inserts a product and returns its ID.
func (r *ProductRepo) Create(ctx context.Context, p model.Product) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO products (name, description, price, image_url, stock, category_id, seller_id) VALUES (?,?,?,?,?,?,?)",
		p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.CategoryID, p.SellerID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetActive fetches a visible product by id.
func (r *ProductRepo) GetActive(ctx context.Context, id uint64) (model.Product, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? AND is_active=1 LIMIT 1", id)
	return scanProduct(row.Scan)
}

// Get fetches a product regardless of visibility (owner/admin paths).
func (r *ProductRepo) Get(ctx context.Context, id uint64) (model.Product, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? LIMIT 1", id)
	return scanProduct(row.Scan)
}

// ListActive returns all visible products.
func (r *ProductRepo) ListActive(ctx context.Context) ([]model.Product, error) {
	return r.list(ctx, "SELECT "+productCols+" FROM products WHERE is_active=1 ORDER BY id")
}

// ListByCategories returns visible products whose category is in ids.
func (r *ProductRepo) ListByCategories(ctx context.Context, ids []uint64) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx,
		"SELECT "+productCols+" FROM products WHERE is_active=1 AND category_id IN ("+placeholders+") ORDER BY id",
		args...)
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites the mutable product fields.  Ownership is checked by
// the caller before this runs.
func (r *ProductRepo) Update(ctx context.Context, p model.Product) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=?, image_url=?, stock=?, category_id=? WHERE id=?",
		p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.CategoryID, p.ID)
	return err
}

// SoftDelete marks a product inactive.
func (r *ProductRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE products SET is_active=0 WHERE id=? AND is_active=1", id)
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

// RecalcRating rebuilds the stored average grade from active reviews.
// Products with no active reviews fall back to zero.  The aggregate and
// the write happen in one statement, so concurrent review writers cannot
// interleave a stale average between read and write.
func (r *ProductRepo) RecalcRating(ctx context.Context, productID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE products SET rating = COALESCE((
			SELECT ROUND(AVG(grade), 2) FROM reviews WHERE product_id=? AND is_active=1
		), 0) WHERE id=?`,
		productID, productID)
	return err
}
