package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/online-store/internal/model"
)

// SessionRepo persists refresh session chains.  One row per login; the
// counter column is the rotation nonce compared against the counter baked
// into each refresh token.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a new session row with counter zero.
func (r *SessionRepo) Create(ctx context.Context, s model.RefreshSession) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_sessions (id, user_id, counter, issued_at, expires_at) VALUES (?,?,?,?,?)",
		s.ID, s.UserID, s.Counter, s.IssuedAt.UTC(), s.ExpiresAt.UTC())
	return err
}

// Get fetches a session by id.  Missing rows surface as sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.RefreshSession, error) {
	var (
		s         model.RefreshSession
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,counter,issued_at,expires_at,revoked_at FROM refresh_sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.UserID, &s.Counter, &s.IssuedAt, &s.ExpiresAt, &revokedAt)
	if err != nil {
		return model.RefreshSession{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return s, nil
}

// Advance increments the rotation counter in a single conditional update:
// the row must still hold fromCounter and be unrevoked.  Two concurrent
// refreshes with the same token therefore race on this statement and
// exactly one sees true; the loser must treat the chain as compromised.
// The expiry deadline slides forward on success.
func (r *SessionRepo) Advance(ctx context.Context, id string, fromCounter uint64, newExpiry time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_sessions SET counter=counter+1, expires_at=? WHERE id=? AND counter=? AND revoked_at IS NULL",
		newExpiry.UTC(), id, fromCounter)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke marks a session chain as revoked.  Idempotent.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_sessions SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL", id)
	return err
}

// RevokeAllForUser revokes every active session chain of a user.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL", userID)
	return err
}

// DeleteExpired removes session rows past their deadline.  Lazy expiry on
// lookup already keeps expired sessions unusable; this is storage hygiene
// only and may be called periodically.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_sessions WHERE expires_at <= UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
