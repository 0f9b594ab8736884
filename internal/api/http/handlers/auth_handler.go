package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerkit/identity-service/internal/api/dto"
	"github.com/ledgerkit/identity-service/internal/auth"
	"github.com/ledgerkit/identity-service/internal/domain"
	"github.com/ledgerkit/identity-service/internal/service"
	apperrors "github.com/ledgerkit/identity-service/pkg/util"
)

// AuthHandler exposes credential login, signup and bootstrap endpoints.
type AuthHandler struct {
	identities   *service.IdentityService
	sessions     *auth.SessionManager
	materializer *auth.Materializer
}

// NewAuthHandler constructs handler.
func NewAuthHandler(identities *service.IdentityService, sessions *auth.SessionManager, materializer *auth.Materializer) *AuthHandler {
	return &AuthHandler{identities: identities, sessions: sessions, materializer: materializer}
}

// Login handles POST /auth/login. Every internal failure reason collapses
// to the same generic denial.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	identity, err := h.identities.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) ||
			errors.Is(err, service.ErrNoPasswordSet) ||
			errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewInvalidCredentials()
		}
		return apperrors.MapError(err)
	}

	return h.respondWithSession(c, http.StatusOK, identity)
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		return fiber.NewError(http.StatusBadRequest, "email, password, display_name required")
	}

	identity, err := h.identities.SignUp(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return apperrors.NewConflict("email already registered", nil)
		}
		return apperrors.MapError(err)
	}

	return h.respondWithSession(c, http.StatusCreated, identity)
}

// Bootstrap handles POST /auth/bootstrap, creating the first administrator
// behind the static shared secret.
func (h *AuthHandler) Bootstrap(c *fiber.Ctx) error {
	var req dto.BootstrapRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		return fiber.NewError(http.StatusBadRequest, "email, password, display_name required")
	}

	admin, err := h.identities.BootstrapAdministrator(c.UserContext(), req.Secret, req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapSecretWrong):
			return apperrors.NewForbidden("bootstrap denied")
		case errors.Is(err, service.ErrBootstrapCompleted):
			return apperrors.NewConflict("bootstrap already completed", nil)
		}
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"administrator": fiber.Map{
				"id":           admin.ID,
				"email":        admin.Email,
				"display_name": admin.DisplayName,
			},
		},
	})
}

// Logout handles POST /auth/logout. Sessions are stateless; the caller
// discards the token and the server acknowledges.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// respondWithSession issues a session token for the identity, materializes
// it through the same parse path every request uses, and writes the
// envelope.
func (h *AuthHandler) respondWithSession(c *fiber.Ctx, status int, identity *domain.Identity) error {
	token, expiresAt, err := h.sessions.Issue(identity)
	if err != nil {
		return apperrors.MapError(err)
	}
	claims, err := h.sessions.Parse(token)
	if err != nil {
		return apperrors.MapError(err)
	}
	session := h.materializer.Materialize(claims)

	return c.Status(status).JSON(fiber.Map{
		"data": fiber.Map{
			"auth":    dto.AuthResponse{Token: token, ExpiresAt: expiresAt},
			"session": session,
		},
	})
}
