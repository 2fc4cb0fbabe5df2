package handlers

import (
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	service UserService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(service UserService) *FollowHandler {
	return &FollowHandler{service: service}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/users/follow/:targetUserId", h.ToggleFollow, auth)
	g.GET("/users/:username/followers", h.GetFollowers)
	g.GET("/users/:username/following", h.GetFollowing)
}

// ToggleFollow follows the target user, or unfollows if already following
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	result, err := h.service.ToggleFollow(c.Request().Context(), uid, c.Param("targetUserId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetFollowers lists who follows a user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	users, err := h.service.Followers(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users})
}

// GetFollowing lists whom a user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	users, err := h.service.Following(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users})
}
