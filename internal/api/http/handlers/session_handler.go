package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerkit/identity-service/internal/api/dto"
	"github.com/ledgerkit/identity-service/internal/auth"
	"github.com/ledgerkit/identity-service/internal/domain"
	"github.com/ledgerkit/identity-service/internal/service"
	apperrors "github.com/ledgerkit/identity-service/pkg/util"
)

// SessionHandler exposes session introspection and the explicit refresh
// path.
type SessionHandler struct {
	identities   *service.IdentityService
	sessions     *auth.SessionManager
	materializer *auth.Materializer
}

// NewSessionHandler constructs handler.
func NewSessionHandler(identities *service.IdentityService, sessions *auth.SessionManager, materializer *auth.Materializer) *SessionHandler {
	return &SessionHandler{identities: identities, sessions: sessions, materializer: materializer}
}

// Show handles GET /session.
func (h *SessionHandler) Show(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"session": session}})
}

// Refresh handles POST /session/refresh. The embedded snapshot is replaced
// only when the request carries the explicit update intent; otherwise the
// presented token comes back untouched, whatever else the body contains.
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if !req.Update {
		session, _ := auth.SessionFromContext(c)
		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"auth":    dto.AuthResponse{Token: bearerToken(c), ExpiresAt: claims.ExpiresAt.Time},
				"session": session,
			},
		})
	}

	identity, err := h.reresolve(c, claims, req)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			return apperrors.NewUnauthorized("identity no longer exists")
		}
		return apperrors.MapError(err)
	}

	return h.respondRefreshed(c, claims, identity)
}

// Welcome handles POST /session/welcome, flipping the welcome flag and
// returning a session token carrying the updated snapshot.
func (h *SessionHandler) Welcome(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if claims.Identity.Source != domain.IdentitySourceProfile {
		return apperrors.NewForbidden("no profile for this session")
	}

	identity, err := h.identities.AcknowledgeWelcome(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			return apperrors.NewUnauthorized("identity no longer exists")
		}
		return apperrors.MapError(err)
	}

	return h.respondRefreshed(c, claims, identity)
}

func (h *SessionHandler) reresolve(c *fiber.Ctx, claims *auth.SessionClaims, req dto.RefreshRequest) (*domain.Identity, error) {
	hasEdits := req.DisplayName != nil || req.AvatarURL != nil
	if hasEdits && claims.Identity.Source == domain.IdentitySourceProfile {
		return h.identities.UpdateProfileDisplay(c.UserContext(), claims.Subject, req.DisplayName, req.AvatarURL)
	}
	return h.identities.Resolve(c.UserContext(), claims.Identity.Source, claims.Subject)
}

func (h *SessionHandler) respondRefreshed(c *fiber.Ctx, claims *auth.SessionClaims, identity *domain.Identity) error {
	token, err := h.sessions.Refresh(claims, identity.Snapshot())
	if err != nil {
		return apperrors.MapError(err)
	}
	refreshed, err := h.sessions.Parse(token)
	if err != nil {
		return apperrors.MapError(err)
	}
	h.identities.NotifyRefresh(c.UserContext(), identity)
	session := h.materializer.Materialize(refreshed)

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"auth":    dto.AuthResponse{Token: token, ExpiresAt: refreshed.ExpiresAt.Time},
			"session": session,
		},
	})
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
