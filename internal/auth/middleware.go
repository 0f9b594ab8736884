package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerkit/identity-service/internal/domain"
	apperrors "github.com/ledgerkit/identity-service/pkg/util"
)

const (
	sessionKey = "client_session"
	claimsKey  = "session_claims"
)

// SessionMiddleware validates bearer session tokens and materializes the
// client session for downstream handlers. No store lookup happens here: the
// session is a pure function of the token's embedded snapshot.
type SessionMiddleware struct {
	sessions     *SessionManager
	materializer *Materializer
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(sessions *SessionManager, materializer *Materializer) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, materializer: materializer}
}

// Handle enforces authentication for protected routes.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.sessions.Parse(parts[1])
	if err != nil {
		// expired and invalid collapse to the same external response
		return apperrors.NewUnauthorized("invalid or expired session")
	}

	session := m.materializer.Materialize(claims)
	c.Locals(claimsKey, claims)
	c.Locals(sessionKey, &session)
	return c.Next()
}

// SessionFromContext retrieves the materialized session.
func SessionFromContext(c *fiber.Ctx) (*domain.ClientSession, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.ClientSession)
	return session, ok
}

// ClaimsFromContext retrieves the validated raw claims.
func ClaimsFromContext(c *fiber.Ctx) (*SessionClaims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*SessionClaims)
	return claims, ok
}

// RequireSession ensures a principal is authenticated.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the session carries the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok || session.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
