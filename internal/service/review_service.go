package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/online-store/internal/model"
	"github.com/iliyamo/online-store/internal/queue"
	"github.com/iliyamo/online-store/internal/repository"
)

// ReviewStore is the slice of review persistence the conflict handler
// needs.  Insert must signal a (user, product) collision with
// repository.ErrDuplicateReview; Update reports whether the row was
// found.
type ReviewStore interface {
	Insert(ctx context.Context, userID, productID uint64, grade uint8, comment string) (uint64, error)
	Update(ctx context.Context, userID, productID uint64, grade uint8, comment string) (bool, error)
	GetByUserAndProduct(ctx context.Context, userID, productID uint64) (model.Review, error)
	SoftDelete(ctx context.Context, id uint64) (uint64, error)
	ListActive(ctx context.Context) ([]model.Review, error)
	ListByProduct(ctx context.Context, productID uint64) ([]model.Review, error)
}

// ProductStore is the slice of product persistence the review service
// needs.
type ProductStore interface {
	GetActive(ctx context.Context, id uint64) (model.Product, error)
	RecalcRating(ctx context.Context, productID uint64) error
}

// ReviewPublisher emits review domain events.  Publishing is best-effort;
// failures are logged, never surfaced to the client.
type ReviewPublisher interface {
	PublishReviewCreated(ctx context.Context, ev queue.ReviewCreatedEvent) error
}

// ReviewOutcome tags the result of a submit: a first-time insert or an
// update of the caller's existing review.
type ReviewOutcome string

const (
	OutcomeCreated ReviewOutcome = "CREATED"
	OutcomeUpdated ReviewOutcome = "UPDATED"
)

// ReviewService enforces the one-review-per-user-per-product invariant
// under concurrent writers and keeps the product rating aggregate fresh.
type ReviewService struct {
	reviews  ReviewStore
	products ProductStore
	events   ReviewPublisher // may be nil
	now      func() time.Time
}

// NewReviewService wires a ReviewService.  events may be nil to disable
// publishing; pass nil for now to use the wall clock.
func NewReviewService(reviews ReviewStore, products ProductStore, events ReviewPublisher, now func() time.Time) *ReviewService {
	if now == nil {
		now = time.Now
	}
	return &ReviewService{reviews: reviews, products: products, events: events, now: now}
}

// SubmitOrUpdate writes the caller's review of a product.  The first
// submission inserts; any later submission, or a concurrent first
// submission that lost the insert race, lands as an update-in-place.
//
// The sequence is attempt-insert, fallback-to-update rather than
// read-check-then-write: a prior existence read would race against
// concurrent first submissions, while the storage engine's uniqueness
// enforcement on the insert is atomic.  No existence read is cached
// across the insert attempt.  If the fallback update finds no row (it
// vanished between the two steps) the whole sequence is retried once
// before giving up with ErrConflict.
func (s *ReviewService) SubmitOrUpdate(ctx context.Context, userID, productID uint64, grade int, comment string) (ReviewOutcome, model.Review, error) {
	if grade < 1 || grade > 5 {
		return "", model.Review{}, &ValidationError{Field: "grade", Message: "must be between 1 and 5"}
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return "", model.Review{}, &ValidationError{Field: "comment", Message: "must not be empty"}
	}
	if _, err := s.products.GetActive(ctx, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.Review{}, ErrNotFound
		}
		return "", model.Review{}, err
	}

	outcome := ReviewOutcome("")
	g := uint8(grade)
	for attempt := 0; attempt < 2; attempt++ {
		_, err := s.reviews.Insert(ctx, userID, productID, g, comment)
		if err == nil {
			outcome = OutcomeCreated
			break
		}
		if !errors.Is(err, repository.ErrDuplicateReview) {
			return "", model.Review{}, err
		}
		found, err := s.reviews.Update(ctx, userID, productID, g, comment)
		if err != nil {
			return "", model.Review{}, err
		}
		if found {
			outcome = OutcomeUpdated
			break
		}
		// Row deleted between insert and update; run the sequence again.
	}
	if outcome == "" {
		return "", model.Review{}, ErrConflict
	}

	if err := s.products.RecalcRating(ctx, productID); err != nil {
		return "", model.Review{}, err
	}
	rv, err := s.reviews.GetByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return "", model.Review{}, err
	}

	if s.events != nil && outcome == OutcomeCreated {
		ev := queue.ReviewCreatedEvent{
			ReviewID:  rv.ID,
			UserID:    userID,
			ProductID: productID,
			Grade:     g,
			CreatedAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.events.PublishReviewCreated(ctx, ev); err != nil {
			log.Printf("review: publish created event failed: %v", err)
		}
	}
	return outcome, rv, nil
}

// Delete soft-removes a review (admin operation) and rebuilds the product
// rating without it.
func (s *ReviewService) Delete(ctx context.Context, reviewID uint64) error {
	productID, err := s.reviews.SoftDelete(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return s.products.RecalcRating(ctx, productID)
}

// List returns all active reviews.
func (s *ReviewService) List(ctx context.Context) ([]model.Review, error) {
	return s.reviews.ListActive(ctx)
}

// ListByProduct returns the active reviews of one product, failing with
// ErrNotFound when the product itself is missing or hidden.
func (s *ReviewService) ListByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	if _, err := s.products.GetActive(ctx, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.reviews.ListByProduct(ctx, productID)
}
