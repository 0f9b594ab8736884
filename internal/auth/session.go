package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/ledgerkit/identity-service/internal/domain"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and claims
	// that fail validation. Callers treat it as unauthenticated.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenExpired is surfaced separately for observability; externally
	// it is indistinguishable from ErrTokenInvalid.
	ErrTokenExpired = errors.New("session token expired")
)

// SessionClaims is the signed payload of a session token: the subject id
// plus a full identity snapshot taken at issue or refresh time.
type SessionClaims struct {
	Identity domain.IdentitySnapshot `json:"identity"`
	jwt.RegisteredClaims
}

// SessionManager issues, refreshes and validates session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager builds a new manager.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a session token embedding the identity snapshot. The lifetime
// is absolute from the moment of issue.
func (m *SessionManager) Issue(identity *domain.Identity) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := &SessionClaims{
		Identity: identity.Snapshot(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Refresh re-signs the session with a replacement snapshot. The subject,
// issue time and expiry of the original token are preserved: a refresh is a
// data update, not a re-authentication, so it never extends the session.
// The snapshot is replaced wholesale, never merged.
func (m *SessionManager) Refresh(claims *SessionClaims, snapshot domain.IdentitySnapshot) (string, error) {
	next := &SessionClaims{
		Identity: snapshot,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: claims.ExpiresAt,
			IssuedAt:  claims.IssuedAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, next)
	return token.SignedString(m.secret)
}

// Parse validates signature and expiry and returns the claims. Expired
// tokens are rejected regardless of signature validity.
func (m *SessionManager) Parse(tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
