package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/labstack/echo/v4"
)

type SearchService interface {
	Search(ctx context.Context, query string, p pagination.Params) (*models.SearchResult, error)
}

type SearchHandler struct {
	service SearchService
}

func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) RegisterSearchRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
}

// Search matches users and posts against ?query
func (h *SearchHandler) Search(c echo.Context) error {
	p := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"), pagination.DefaultSearchLimit)

	result, err := h.service.Search(c.Request().Context(), c.QueryParam("query"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
