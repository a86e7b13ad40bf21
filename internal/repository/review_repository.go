package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/online-store/internal/model"
)

// ReviewRepo provides data access to the reviews table.  The table holds
// a unique index on (user_id, product_id); Insert surfaces a collision as
// ErrDuplicateReview so the service layer can fall back to an update
// instead of failing.  Each method is a single statement, so every step
// of the insert-then-update sequence is atomic on its own and a cancelled
// request never leaves a half-applied write.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewCols = "id,user_id,product_id,grade,comment,is_active,created_at,updated_at"

// Insert attempts a first-time review.  The uniqueness check rides on the
// storage engine's index enforcement, which is what removes the
// read-then-write race window between concurrent first submissions.
func (r *ReviewRepo) Insert(ctx context.Context, userID, productID uint64, grade uint8, comment string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (user_id, product_id, grade, comment) VALUES (?,?,?,?)",
		userID, productID, grade, comment)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicateReview
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites grade and comment of an existing review in place and
// reports whether a row was found.  A false return means the row vanished
// between the duplicate-detected insert and this update; the caller
// retries the whole sequence.
func (r *ReviewRepo) Update(ctx context.Context, userID, productID uint64, grade uint8, comment string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET grade=?, comment=?, is_active=1, updated_at=NOW() WHERE user_id=? AND product_id=?",
		grade, comment, userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get fetches a review by id.
func (r *ReviewRepo) Get(ctx context.Context, id uint64) (model.Review, error) {
	var rv model.Review
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE id=? LIMIT 1",
		id).Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Grade, &rv.Comment, &rv.IsActive, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}

// GetByUserAndProduct fetches the caller's review of a product.
func (r *ReviewRepo) GetByUserAndProduct(ctx context.Context, userID, productID uint64) (model.Review, error) {
	var rv model.Review
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE user_id=? AND product_id=? LIMIT 1",
		userID, productID).Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Grade, &rv.Comment, &rv.IsActive, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}

// SoftDelete marks a review inactive and returns its product id so the
// caller can rebuild the product rating.
func (r *ReviewRepo) SoftDelete(ctx context.Context, id uint64) (uint64, error) {
	var productID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT product_id FROM reviews WHERE id=? AND is_active=1 LIMIT 1", id).Scan(&productID)
	if err != nil {
		return 0, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET is_active=0 WHERE id=?", id); err != nil {
		return 0, err
	}
	return productID, nil
}

// ListActive returns all active reviews.
func (r *ReviewRepo) ListActive(ctx context.Context) ([]model.Review, error) {
	return r.list(ctx, "SELECT "+reviewCols+" FROM reviews WHERE is_active=1 ORDER BY id")
}

// ListByProduct returns active reviews for one product.
func (r *ReviewRepo) ListByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	return r.list(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE product_id=? AND is_active=1 ORDER BY id", productID)
}

func (r *ReviewRepo) list(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Grade, &rv.Comment, &rv.IsActive, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
