package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-store/internal/model"
	"github.com/iliyamo/online-store/internal/queue"
	"github.com/iliyamo/online-store/internal/repository"
)

type reviewKey struct {
	userID    uint64
	productID uint64
}

// memReviews is a map-backed ReviewStore.  Its Insert and Update honour
// the same contracts as the SQL implementation: Insert fails with
// ErrDuplicateReview on a (user, product) collision, Update reports
// whether a row matched.  The failure-injection flags simulate the
// interleavings the conflict handler exists for.
type memReviews struct {
	mu   sync.Mutex
	seq  uint64
	rows map[reviewKey]model.Review

	// forceDuplicateOnce makes the next Insert report a duplicate without
	// writing a row, simulating a concurrent writer that vanished before
	// the fallback update ran.
	forceDuplicateOnce bool
	// alwaysDuplicate makes every Insert report a duplicate and, combined
	// with an empty map, drives the handler to retry exhaustion.
	alwaysDuplicate bool
}

func newMemReviews() *memReviews {
	return &memReviews{rows: map[reviewKey]model.Review{}}
}

func (m *memReviews) Insert(_ context.Context, userID, productID uint64, grade uint8, comment string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceDuplicateOnce {
		m.forceDuplicateOnce = false
		return 0, repository.ErrDuplicateReview
	}
	if m.alwaysDuplicate {
		return 0, repository.ErrDuplicateReview
	}
	k := reviewKey{userID, productID}
	if _, ok := m.rows[k]; ok {
		return 0, repository.ErrDuplicateReview
	}
	m.seq++
	m.rows[k] = model.Review{
		ID: m.seq, UserID: userID, ProductID: productID,
		Grade: grade, Comment: comment, IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return m.seq, nil
}

func (m *memReviews) Update(_ context.Context, userID, productID uint64, grade uint8, comment string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := reviewKey{userID, productID}
	rv, ok := m.rows[k]
	if !ok {
		return false, nil
	}
	rv.Grade = grade
	rv.Comment = comment
	rv.IsActive = true
	rv.UpdatedAt = time.Now()
	m.rows[k] = rv
	return true, nil
}

func (m *memReviews) GetByUserAndProduct(_ context.Context, userID, productID uint64) (model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.rows[reviewKey{userID, productID}]
	if !ok || !rv.IsActive {
		return model.Review{}, sql.ErrNoRows
	}
	return rv, nil
}

func (m *memReviews) SoftDelete(_ context.Context, id uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, rv := range m.rows {
		if rv.ID == id && rv.IsActive {
			rv.IsActive = false
			m.rows[k] = rv
			return rv.ProductID, nil
		}
	}
	return 0, sql.ErrNoRows
}

func (m *memReviews) ListActive(_ context.Context) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Review
	for _, rv := range m.rows {
		if rv.IsActive {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (m *memReviews) ListByProduct(_ context.Context, productID uint64) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Review
	for _, rv := range m.rows {
		if rv.IsActive && rv.ProductID == productID {
			out = append(out, rv)
		}
	}
	return out, nil
}

// memProducts is a map-backed ProductStore whose RecalcRating performs
// the same average-over-active-reviews the SQL statement does.
type memProducts struct {
	mu      sync.Mutex
	rows    map[uint64]model.Product
	reviews *memReviews
}

func newMemProducts(reviews *memReviews) *memProducts {
	return &memProducts{rows: map[uint64]model.Product{}, reviews: reviews}
}

func (m *memProducts) add(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.ID] = p
}

func (m *memProducts) GetActive(_ context.Context, id uint64) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || !p.IsActive {
		return model.Product{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memProducts) RecalcRating(ctx context.Context, productID uint64) error {
	reviews, err := m.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[productID]
	if !ok {
		return nil
	}
	if len(reviews) == 0 {
		p.Rating = 0
	} else {
		sum := 0.0
		for _, rv := range reviews {
			sum += float64(rv.Grade)
		}
		p.Rating = float64(int(sum/float64(len(reviews))*100+0.5)) / 100
	}
	m.rows[productID] = p
	return nil
}

// capturingPublisher records every event handed to it.
type capturingPublisher struct {
	mu     sync.Mutex
	events []queue.ReviewCreatedEvent
}

func (p *capturingPublisher) PublishReviewCreated(_ context.Context, ev queue.ReviewCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type reviewFixture struct {
	svc      *ReviewService
	reviews  *memReviews
	products *memProducts
	events   *capturingPublisher
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	reviews := newMemReviews()
	products := newMemProducts(reviews)
	products.add(model.Product{ID: 1, Name: "keyboard", Price: 49.9, CategoryID: 1, SellerID: 7, IsActive: true})
	events := &capturingPublisher{}
	svc := NewReviewService(reviews, products, events, nil)
	return &reviewFixture{svc: svc, reviews: reviews, products: products, events: events}
}

func TestSubmitThenResubmitUpdatesInPlace(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	outcome, rv, err := f.svc.SubmitOrUpdate(ctx, 2, 1, 5, "great")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Equal(t, uint8(5), rv.Grade)

	p, err := f.products.GetActive(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 5.0, p.Rating)

	outcome, rv, err = f.svc.SubmitOrUpdate(ctx, 2, 1, 3, "changed my mind")
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, outcome)
	require.Equal(t, uint8(3), rv.Grade)
	require.Equal(t, "changed my mind", rv.Comment)

	// Still one row, and the aggregate followed the update.
	all, err := f.reviews.ListByProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	p, err = f.products.GetActive(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3.0, p.Rating)
}

func TestSubmitValidation(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	var ve *ValidationError
	_, _, err := f.svc.SubmitOrUpdate(ctx, 2, 1, 0, "too low")
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "grade", ve.Field)

	_, _, err = f.svc.SubmitOrUpdate(ctx, 2, 1, 6, "too high")
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "grade", ve.Field)

	_, _, err = f.svc.SubmitOrUpdate(ctx, 2, 1, 4, "   ")
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "comment", ve.Field)
}

func TestSubmitUnknownProduct(t *testing.T) {
	f := newReviewFixture(t)
	_, _, err := f.svc.SubmitOrUpdate(context.Background(), 2, 99, 4, "where")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentFirstSubmissions(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	outcomes := make([]ReviewOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _, errs[i] = f.svc.SubmitOrUpdate(ctx, 2, 1, 4, "race")
		}(i)
	}
	wg.Wait()

	created := 0
	for i, out := range outcomes {
		require.NoError(t, errs[i])
		if out == OutcomeCreated {
			created++
		}
	}
	require.Equal(t, 1, created, "exactly one concurrent submit may insert")

	all, err := f.reviews.ListByProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSubmitRetriesWhenRowVanishes(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	// First attempt: insert reports a duplicate but no row exists, so the
	// fallback update misses; the second attempt's insert succeeds.
	f.reviews.forceDuplicateOnce = true
	outcome, _, err := f.svc.SubmitOrUpdate(ctx, 2, 1, 4, "persistent")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
}

func TestSubmitGivesUpAfterRetry(t *testing.T) {
	f := newReviewFixture(t)
	f.reviews.alwaysDuplicate = true
	_, _, err := f.svc.SubmitOrUpdate(context.Background(), 2, 1, 4, "doomed")
	require.ErrorIs(t, err, ErrConflict)
}

func TestDeleteRebuildsRating(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, rv1, err := f.svc.SubmitOrUpdate(ctx, 2, 1, 5, "great")
	require.NoError(t, err)
	_, _, err = f.svc.SubmitOrUpdate(ctx, 3, 1, 1, "awful")
	require.NoError(t, err)

	p, err := f.products.GetActive(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3.0, p.Rating)

	require.NoError(t, f.svc.Delete(ctx, rv1.ID))
	p, err = f.products.GetActive(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1.0, p.Rating)

	require.ErrorIs(t, f.svc.Delete(ctx, rv1.ID), ErrNotFound)
}

func TestListByProductUnknownProduct(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.svc.ListByProduct(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEventPublishedOnlyOnCreate(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, rv, err := f.svc.SubmitOrUpdate(ctx, 2, 1, 5, "great")
	require.NoError(t, err)
	_, _, err = f.svc.SubmitOrUpdate(ctx, 2, 1, 4, "still good")
	require.NoError(t, err)

	require.Len(t, f.events.events, 1)
	require.Equal(t, rv.ID, f.events.events[0].ReviewID)
	require.Equal(t, uint8(5), f.events.events[0].Grade)
}
