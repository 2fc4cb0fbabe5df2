package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	SyncUser(ctx context.Context, uid string) (*models.User, bool, error)
	CurrentUser(ctx context.Context, uid string) (*models.UserProfile, error)
	Profile(ctx context.Context, username string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error)
	ToggleFollow(ctx context.Context, uid, targetUID string) (*models.FollowResult, error)
	Followers(ctx context.Context, username string) ([]models.UserSummary, error)
	Following(ctx context.Context, username string) ([]models.UserSummary, error)
}

// UserHandler handles HTTP requests related to user profiles
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterUserRoutes registers profile routes. Follow routes live in FollowHandler.
func (h *UserHandler) RegisterUserRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/users/sync", h.SyncUser, auth)
	g.GET("/users/me", h.GetCurrentUser, auth)
	g.PUT("/users/profile", h.UpdateProfile, auth)
	g.GET("/users/profile/:username", h.GetUserProfile)
}

// SyncUser creates the caller's local profile on first sign-in
func (h *UserHandler) SyncUser(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	user, created, err := h.service.SyncUser(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	if created {
		return c.JSON(http.StatusCreated, map[string]interface{}{"user": user, "message": "User created successfully"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user, "message": "User already exists"})
}

// GetCurrentUser returns the caller's profile
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	user, err := h.service.CurrentUser(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}

// GetUserProfile returns a public profile by username
func (h *UserHandler) GetUserProfile(c echo.Context) error {
	user, err := h.service.Profile(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}

// UpdateProfile changes the caller's editable profile fields. Unknown fields are ignored.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	var req models.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), uid, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}
