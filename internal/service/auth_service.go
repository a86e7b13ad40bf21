package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/online-store/internal/auth"
	"github.com/iliyamo/online-store/internal/model"
)

// UserStore is the slice of user persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateRole(ctx context.Context, id uint64, role string) error
	Deactivate(ctx context.Context, id uint64) error
}

// SessionStore is the slice of refresh-session persistence the auth
// service needs.  Advance must be an atomic compare-and-increment so two
// concurrent refreshes of the same token cannot both succeed.
type SessionStore interface {
	Create(ctx context.Context, s model.RefreshSession) error
	Get(ctx context.Context, id string) (model.RefreshSession, error)
	Advance(ctx context.Context, id string, fromCounter uint64, newExpiry time.Time) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	Access     string
	AccessExp  time.Time
	Refresh    string
	RefreshExp time.Time
}

// AuthService owns registration, login and the refresh-session rotation
// state machine.  Sessions move active(counter) -> active(counter+1) on
// each legitimate refresh and to revoked on logout, expiry or replay.
type AuthService struct {
	users      UserStore
	sessions   SessionStore
	tokens     *auth.TokenService
	bcryptCost int
	refreshTTL time.Duration
	now        func() time.Time
}

// NewAuthService wires an AuthService.  Pass nil for now to use the wall
// clock.
func NewAuthService(users UserStore, sessions SessionStore, tokens *auth.TokenService, bcryptCost int, refreshTTL time.Duration, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

// Register creates a user and logs them in immediately.  Only BUYER and
// SELLER are self-assignable; anything else falls back to BUYER.  Admins
// are promoted through ChangeRole.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (model.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.User{}, TokenPair{}, &ValidationError{Field: "email", Message: "must not be empty"}
	}
	if password == "" {
		return model.User{}, TokenPair{}, &ValidationError{Field: "password", Message: "must not be empty"}
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != auth.RoleSeller {
		role = auth.RoleBuyer
	}

	uid, err := s.users.Create(ctx, email, password, role, s.bcryptCost)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	u := model.User{ID: uid, Email: email, Role: role, IsActive: true}
	pair, err := s.openSession(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Login verifies credentials and opens a fresh session chain.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, err
	}
	if !u.IsActive || !auth.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.openSession(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// openSession creates a session row with counter zero and issues the
// first token pair of the chain.
func (s *AuthService) openSession(ctx context.Context, u model.User) (TokenPair, error) {
	now := s.now().UTC()
	sess := model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Counter:   0,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(u, sess.ID, sess.Counter)
}

func (s *AuthService) issuePair(u model.User, sessionID string, counter uint64) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(u.ID, u.Role, sessionID, counter)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, AccessExp: accessExp, Refresh: refresh, RefreshExp: refreshExp}, nil
}

// Refresh exchanges a refresh token for a new access+refresh pair,
// advancing the session counter.  Presenting a token whose counter no
// longer matches the session proves an old token was replayed: the whole
// chain is force-revoked and the call fails with reuse-detected, so even
// the holder of the latest legitimate token is locked out.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (model.User, TokenPair, error) {
	claims, err := s.tokens.Verify(rawRefresh, auth.KindRefresh)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, TokenPair{}, auth.ErrInvalidToken(auth.ReasonRevoked)
		}
		return model.User{}, TokenPair{}, err
	}
	now := s.now().UTC()
	if sess.Revoked() || sess.ExpiredAt(now) {
		return model.User{}, TokenPair{}, auth.ErrInvalidToken(auth.ReasonRevoked)
	}
	if claims.Counter != sess.Counter {
		// Replay of a rotated-out token: kill the chain.
		_ = s.sessions.Revoke(ctx, sess.ID)
		return model.User{}, TokenPair{}, auth.ErrInvalidToken(auth.ReasonReuseDetected)
	}
	ok, err := s.sessions.Advance(ctx, sess.ID, claims.Counter, now.Add(s.refreshTTL))
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !ok {
		// A concurrent refresh won the conditional update; this call is a
		// replay of the losing token.
		_ = s.sessions.Revoke(ctx, sess.ID)
		return model.User{}, TokenPair{}, auth.ErrInvalidToken(auth.ReasonReuseDetected)
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !u.IsActive {
		_ = s.sessions.Revoke(ctx, sess.ID)
		return model.User{}, TokenPair{}, auth.ErrInvalidToken(auth.ReasonRevoked)
	}
	pair, err := s.issuePair(u, sess.ID, claims.Counter+1)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Logout revokes the session chain a refresh token belongs to.  The
// operation is idempotent: logging out an already revoked or unknown
// session succeeds.  Structurally invalid tokens still fail so clients
// notice broken storage.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	claims, err := s.tokens.Verify(rawRefresh, auth.KindRefresh)
	if err != nil {
		var ite *auth.InvalidTokenError
		// An expired refresh token identifies its session well enough to
		// revoke; anything else is rejected.
		if errors.As(err, &ite) && ite.Reason == auth.ReasonExpired {
			return nil
		}
		return err
	}
	return s.sessions.Revoke(ctx, claims.SessionID)
}

// ChangeRole sets a user's role (admin operation).  Outstanding access
// tokens keep the old role until expiry; this staleness window is a
// documented property of stateless access tokens, not a defect.
func (s *AuthService) ChangeRole(ctx context.Context, userID uint64, role string) error {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !auth.ValidRole(role) {
		return &ValidationError{Field: "role", Message: "unknown role"}
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Deactivate soft-disables an account (admin operation) and revokes all
// of its session chains so no new tokens can be minted for it.
func (s *AuthService) Deactivate(ctx context.Context, userID uint64) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, userID)
}
