package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/labstack/echo/v4"
)

type PostService interface {
	CreatePost(ctx context.Context, uid string, in models.CreatePostRequest) (*models.PostView, error)
	GetPost(ctx context.Context, id string) (*models.PostView, error)
	ListPosts(ctx context.Context, p pagination.Params) (*models.PostPage, error)
	ListUserPosts(ctx context.Context, username string, p pagination.Params) (*models.PostPage, error)
	ToggleLikePost(ctx context.Context, uid, id string) (*models.LikeResult, error)
	DeletePost(ctx context.Context, uid, id string) error
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	service PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(service PostService) *PostHandler {
	return &PostHandler{service: service}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/user/:username", h.GetUserPosts)
	g.GET("/posts/:postId", h.GetPost)
	g.POST("/posts", h.CreatePost, auth)
	g.POST("/posts/:postId/like", h.LikePost, auth)
	g.DELETE("/posts/:postId", h.DeletePost, auth)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.service.CreatePost(c.Request().Context(), uid, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"post": post})
}

// GetPost retrieves a single post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.service.GetPost(c.Request().Context(), c.Param("postId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"post": post})
}

// GetPosts returns the timeline. Callers may page with ?page or with ?skip.
func (h *PostHandler) GetPosts(c echo.Context) error {
	page, err := h.service.ListPosts(c.Request().Context(), postParams(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetUserPosts returns the posts of one user
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	page, err := h.service.ListUserPosts(c.Request().Context(), c.Param("username"), postParams(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// LikePost toggles the caller's like on a post
func (h *PostHandler) LikePost(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	result, err := h.service.ToggleLikePost(c.Request().Context(), uid, c.Param("postId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// DeletePost deletes one of the caller's posts
func (h *PostHandler) DeletePost(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeletePost(c.Request().Context(), uid, c.Param("postId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

func postParams(c echo.Context) pagination.Params {
	p := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"), pagination.DefaultPostLimit)
	if skip := c.QueryParam("skip"); skip != "" {
		p = p.WithSkip(skip)
	}
	return p
}
