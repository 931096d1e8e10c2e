package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"campus_api/internal/middleware"
	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error onto an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case query.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrMissingLogin), errors.Is(err, service.ErrInvalidRecord):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrRoleNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrAccountExists), errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes err as {"message": ...}. Server-side failures are logged with the request id.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", middleware.GetRequestID(c),
			"error", err,
		)
	}
	c.JSON(status, model.MessageResponse{Message: message})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "Invalid request: " + err.Error()})
}

// identity returns the verified caller or aborts with 401.
func identity(c *gin.Context) (model.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.MessageResponse{Message: "Unauthorized"})
	}
	return id, ok
}
