package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/labstack/echo/v4"
)

type NotificationService interface {
	ListNotifications(ctx context.Context, uid string, p pagination.Params) (*models.NotificationPage, error)
	UnreadCount(ctx context.Context, uid string) (int64, error)
	MarkAllRead(ctx context.Context, uid string) (int64, error)
	DeleteNotification(ctx context.Context, uid, id string) error
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterNotificationRoutes registers the caller's inbox routes. All of them need auth.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	n := g.Group("/notifications", auth)
	n.GET("", h.GetNotifications)
	n.GET("/unread-count", h.GetUnreadCount)
	n.PUT("/mark-read", h.MarkAllRead)
	n.DELETE("/:id", h.DeleteNotification)
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}
	p := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"), pagination.DefaultNotificationLimit)

	page, err := h.service.ListNotifications(c.Request().Context(), uid, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	count, err := h.service.UnreadCount(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": count})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	if _, err := h.service.MarkAllRead(c.Request().Context(), uid); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "All notifications marked as read"})
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	uid, err := middleware.UID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteNotification(c.Request().Context(), uid, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Notification deleted successfully"})
}
