package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/chirpline/backend/internal/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of requests that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewHTTPErrorHandler renders every error as {"error": "..."}. Classified
// service errors keep their message; anything unclassified is logged and
// reported as a generic 500.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := classify(err)
		if status == http.StatusInternalServerError {
			logger.Error("unhandled error",
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Error: message})
		}
		if writeErr != nil {
			logger.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	var se *services.Error
	message := "Internal server error"
	if errors.As(err, &se) {
		message = se.Message
	}

	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest, message
	case services.IsUnauthorized(err):
		return http.StatusUnauthorized, message
	case services.IsForbidden(err):
		return http.StatusForbidden, message
	case services.IsNotFound(err):
		return http.StatusNotFound, message
	case services.IsConflict(err):
		return http.StatusConflict, message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
