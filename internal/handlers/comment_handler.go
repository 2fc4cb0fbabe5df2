package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/labstack/echo/v4"
)

// CommentService is the comment engine as seen by the HTTP layer.
type CommentService interface {
	ListComments(ctx context.Context, postID string, p pagination.Params) (*models.CommentPage, error)
	CreateComment(ctx context.Context, authorUID, postID string, in models.CreateCommentRequest) (*models.CommentView, error)
	ReplyToComment(ctx context.Context, authorUID, parentID string, in models.CreateCommentRequest) (*models.CommentView, error)
	DeleteComment(ctx context.Context, requesterUID, commentID string) error
	ToggleLikeComment(ctx context.Context, uid, commentID string) (*models.LikeResult, error)
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	service CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(service CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// RegisterCommentRoutes registers comment-related routes. Reads are public;
// writes go through auth.
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/comments/post/:postId", h.GetComments)
	g.POST("/comments/post/:postId", h.CreateComment, auth)
	g.DELETE("/comments/:commentId", h.DeleteComment, auth)
	g.POST("/comments/:commentId/like", h.LikeComment, auth)
	g.POST("/comments/:commentId/reply", h.ReplyToComment, auth)
}

// GetComments returns one page of a post's comments, newest first
func (h *CommentHandler) GetComments(c echo.Context) error {
	p := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"), pagination.DefaultCommentLimit)

	page, err := h.service.ListComments(c.Request().Context(), c.Param("postId"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// CreateComment creates a new top-level comment on a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}
	req, err := bindComment(c)
	if err != nil {
		return err
	}

	comment, err := h.service.CreateComment(c.Request().Context(), uid, c.Param("postId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"comment": comment})
}

// ReplyToComment creates a reply under a comment
func (h *CommentHandler) ReplyToComment(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}
	req, err := bindComment(c)
	if err != nil {
		return err
	}

	reply, err := h.service.ReplyToComment(c.Request().Context(), uid, c.Param("commentId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"reply": reply})
}

// DeleteComment deletes one of the caller's comments
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteComment(c.Request().Context(), uid, c.Param("commentId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

// LikeComment toggles the caller's like on a comment
func (h *CommentHandler) LikeComment(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	result, err := h.service.ToggleLikeComment(c.Request().Context(), uid, c.Param("commentId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func bindComment(c echo.Context) (models.CreateCommentRequest, error) {
	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}
