// Package auth issues and verifies the service's bearer tokens and holds
// the static role/operation permission table.  Tokens are self-contained
// HS256 JWTs: access tokens carry identity and role only, refresh tokens
// additionally carry the session id and rotation counter checked by the
// session layer.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two token flavours embedded in the "kind" claim.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Reason classifies why a token was rejected.  Values are stable and safe
// to expose to clients.
type Reason string

const (
	ReasonMalformed     Reason = "malformed"
	ReasonBadSignature  Reason = "bad-signature"
	ReasonExpired       Reason = "expired"
	ReasonWrongKind     Reason = "wrong-kind"
	ReasonRevoked       Reason = "revoked"
	ReasonReuseDetected Reason = "reuse-detected"
)

// InvalidTokenError is the single error type surfaced for any token
// rejection.  Callers branch on Reason rather than on wrapped library errors.
type InvalidTokenError struct {
	Reason Reason
}

func (e *InvalidTokenError) Error() string { return "invalid token: " + string(e.Reason) }

// ErrInvalidToken returns an *InvalidTokenError with the given reason.
func ErrInvalidToken(r Reason) error { return &InvalidTokenError{Reason: r} }

// Claims is the verified content of a token.  SessionID and Counter are
// zero for access tokens.
type Claims struct {
	UserID    uint64
	Role      string
	Kind      TokenKind
	SessionID string
	Counter   uint64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService signs and verifies tokens with a process-wide secret loaded
// at startup.  Rotating the secret invalidates every outstanding token.
// The clock is injectable so expiry behaviour is testable without sleeps.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService builds a TokenService.  Pass nil for now to use the wall
// clock.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

// IssueAccess signs a short-lived access token for the user.  The role is
// frozen into the token at issuance; a later role change only takes effect
// on the next issued token.
func (s *TokenService) IssueAccess(userID uint64, role string) (string, time.Time, error) {
	return s.sign(jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"kind": string(KindAccess),
	}, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token bound to a session chain.
// The counter is the rotation nonce the session layer compares on use.
func (s *TokenService) IssueRefresh(userID uint64, role, sessionID string, counter uint64) (string, time.Time, error) {
	return s.sign(jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"kind": string(KindRefresh),
		"sid":  sessionID,
		"cnt":  counter,
	}, s.refreshTTL)
}

func (s *TokenService) sign(claims jwt.MapClaims, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a token of the expected kind.  It is pure:
// no storage lookup happens here, which is why a structurally valid but
// rotated-out refresh token still passes and must be checked against the
// session store by the caller.  Failures always surface as
// *InvalidTokenError.
func (s *TokenService) Verify(raw string, kind TokenKind) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrInvalidToken(ReasonExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidToken(ReasonBadSignature)
		default:
			return Claims{}, ErrInvalidToken(ReasonMalformed)
		}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken(ReasonMalformed)
	}

	c := Claims{}
	switch sub := mc["sub"].(type) {
	case float64:
		c.UserID = uint64(sub)
	default:
		return Claims{}, ErrInvalidToken(ReasonMalformed)
	}
	role, ok := mc["role"].(string)
	if !ok || role == "" {
		return Claims{}, ErrInvalidToken(ReasonMalformed)
	}
	c.Role = role
	k, ok := mc["kind"].(string)
	if !ok {
		return Claims{}, ErrInvalidToken(ReasonMalformed)
	}
	c.Kind = TokenKind(k)
	if c.Kind != kind {
		return Claims{}, ErrInvalidToken(ReasonWrongKind)
	}
	if sid, ok := mc["sid"].(string); ok {
		c.SessionID = sid
	}
	if cnt, ok := mc["cnt"].(float64); ok {
		c.Counter = uint64(cnt)
	}
	if kind == KindRefresh && c.SessionID == "" {
		return Claims{}, ErrInvalidToken(ReasonMalformed)
	}
	if iat, ok := mc["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return c, nil
}
