package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// AuthHandler exchanges identity-provider ID tokens for service session tokens
type AuthHandler struct {
	verifier  middleware.TokenVerifier
	users     UserService
	jwtSecret string
	jwtTTL    time.Duration
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil when no
// identity provider is configured; logins then fail with 503.
func NewAuthHandler(verifier middleware.TokenVerifier, users UserService, jwtSecret string, jwtTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		verifier:  verifier,
		users:     users,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/auth/firebase-login", h.FirebaseLogin)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// LoginResponse carries the issued session token and the synced profile.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// FirebaseLogin verifies a Firebase ID token, makes sure the user has a local
// profile, and issues a session JWT whose subject is the Firebase UID.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.verifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Identity provider unavailable")
	}

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, _, err := h.users.SyncUser(ctx, token.UID)
	if err != nil {
		return err
	}

	signed, expiresAt, err := middleware.IssueSessionToken(h.jwtSecret, user.UID, user.Email, h.jwtTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, LoginResponse{Token: signed, ExpiresAt: expiresAt, User: user})
}
