package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/online-store/internal/auth"
	"github.com/iliyamo/online-store/internal/model"
)

// memUsers is a map-backed UserStore.
type memUsers struct {
	mu      sync.Mutex
	seq     uint64
	byID    map[uint64]model.User
	byEmail map[string]uint64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]model.User{}, byEmail: map[string]uint64{}}
}

func (m *memUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, errors.New("duplicate email")
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.seq++
	m.byID[m.seq] = model.User{ID: m.seq, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	m.byEmail[email] = m.seq
	return m.seq, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id uint64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	m.byID[id] = u
	return nil
}

func (m *memUsers) Deactivate(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || !u.IsActive {
		return sql.ErrNoRows
	}
	u.IsActive = false
	m.byID[id] = u
	return nil
}

// memSessions is a map-backed SessionStore whose Advance is the same
// compare-and-increment the SQL implementation performs.
type memSessions struct {
	mu   sync.Mutex
	rows map[string]model.RefreshSession
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]model.RefreshSession{}}
}

func (m *memSessions) Create(_ context.Context, s model.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (model.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return model.RefreshSession{}, sql.ErrNoRows
	}
	return s, nil
}

func (m *memSessions) Advance(_ context.Context, id string, fromCounter uint64, newExpiry time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.RevokedAt != nil || s.Counter != fromCounter {
		return false, nil
	}
	s.Counter++
	s.ExpiresAt = newExpiry
	m.rows[id] = s
	return true, nil
}

func (m *memSessions) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[id]; ok && s.RevokedAt == nil {
		now := time.Now()
		s.RevokedAt = &now
		m.rows[id] = s
	}
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.rows {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			m.rows[id] = s
		}
	}
	return nil
}

type authFixture struct {
	svc      *AuthService
	users    *memUsers
	sessions *memSessions
	now      *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cur := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return cur }
	tokens := auth.NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour, nowFn)
	users := newMemUsers()
	sessions := newMemSessions()
	svc := NewAuthService(users, sessions, tokens, bcrypt.MinCost, 30*24*time.Hour, nowFn)
	return &authFixture{svc: svc, users: users, sessions: sessions, now: &cur}
}

func tokenReason(t *testing.T, err error) auth.Reason {
	t.Helper()
	var ite *auth.InvalidTokenError
	require.ErrorAs(t, err, &ite)
	return ite.Reason
}

func TestRegisterDefaultsToBuyer(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, pair, err := f.svc.Register(ctx, "Alice@Example.com", "pw", "ADMIN")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, auth.RoleBuyer, u.Role, "ADMIN must not be self-assignable")
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	s, _, err := f.svc.Register(ctx, "bob@example.com", "pw", "seller")
	require.NoError(t, err)
	require.Equal(t, auth.RoleSeller, s.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "u@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, "ghost@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.users.Deactivate(ctx, 1))
	_, _, err = f.svc.Login(ctx, "u@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials, "deactivated accounts cannot log in")
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, first, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	// Legitimate rotation succeeds and yields a new pair.
	_, second, err := f.svc.Refresh(ctx, first.Refresh)
	require.NoError(t, err)
	require.NotEqual(t, first.Refresh, second.Refresh)

	// Replaying the rotated-out token is reuse: the call fails and the
	// whole chain is revoked.
	_, _, err = f.svc.Refresh(ctx, first.Refresh)
	require.Equal(t, auth.ReasonReuseDetected, tokenReason(t, err))

	// Even the legitimately obtained second token is now dead.
	_, _, err = f.svc.Refresh(ctx, second.Refresh)
	require.Equal(t, auth.ReasonRevoked, tokenReason(t, err))
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.Refresh(ctx, pair.Refresh)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent refresh may succeed")
}

func TestLogoutThenRefreshFailsRevoked(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, pair.Refresh))
	// Idempotent: a second logout is fine.
	require.NoError(t, f.svc.Logout(ctx, pair.Refresh))

	_, _, err = f.svc.Refresh(ctx, pair.Refresh)
	require.Equal(t, auth.ReasonRevoked, tokenReason(t, err))
}

func TestExpiredSessionActsRevoked(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	// Force the session row past its deadline while the token itself is
	// still structurally valid.
	f.sessions.mu.Lock()
	for id, s := range f.sessions.rows {
		s.ExpiresAt = f.now.Add(-time.Minute)
		f.sessions.rows[id] = s
	}
	f.sessions.mu.Unlock()

	_, _, err = f.svc.Refresh(ctx, pair.Refresh)
	require.Equal(t, auth.ReasonRevoked, tokenReason(t, err))
}

func TestChangeRoleTakesEffectOnNextIssuance(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, pair, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangeRole(ctx, u.ID, auth.RoleSeller))

	// The outstanding refresh token still rotates; the new pair carries
	// the new role.
	fresh, newPair, err := f.svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	require.Equal(t, auth.RoleSeller, fresh.Role)
	require.NotEmpty(t, newPair.Access)

	require.Error(t, f.svc.ChangeRole(ctx, u.ID, "SUPERUSER"))
	require.ErrorIs(t, f.svc.ChangeRole(ctx, 999, auth.RoleBuyer), ErrNotFound)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, pair, err := f.svc.Register(ctx, "u@example.com", "pw", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, u.ID))

	_, _, err = f.svc.Refresh(ctx, pair.Refresh)
	require.Equal(t, auth.ReasonRevoked, tokenReason(t, err))
}
