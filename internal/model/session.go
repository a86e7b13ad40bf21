package model

import "time"

// RefreshSession models a row in the `refresh_sessions` table.  One row
// tracks one login chain: the session id and rotation counter are embedded
// in each refresh token issued for the chain, and the stored counter must
// match the presented token's counter for a refresh to succeed.  A counter
// mismatch means an old token was replayed; the whole chain is then revoked.
//
// Fields:
//  ID        – session identifier (UUID), embedded in refresh tokens.
//  UserID    – owner of the session.
//  Counter   – rotation nonce; incremented on every successful refresh.
//  IssuedAt  – when the chain was created (login time).
//  ExpiresAt – inactivity deadline; expired sessions act as revoked.
//  RevokedAt – when the chain was revoked (null while active).
type RefreshSession struct {
	ID        string     // refresh_sessions.id
	UserID    uint64     // refresh_sessions.user_id
	Counter   uint64     // refresh_sessions.counter
	IssuedAt  time.Time  // refresh_sessions.issued_at
	ExpiresAt time.Time  // refresh_sessions.expires_at
	RevokedAt *time.Time // refresh_sessions.revoked_at (nullable)
}

// Revoked reports whether the session chain has been revoked.
func (s RefreshSession) Revoked() bool { return s.RevokedAt != nil }

// ExpiredAt reports whether the session is past its deadline at the given
// instant.  Expiry is evaluated lazily on lookup; no background sweep is
// required for correctness.
func (s RefreshSession) ExpiredAt(now time.Time) bool { return now.After(s.ExpiresAt) }
