package handler

import (
	"log/slog"
	"net/http"

	"campus_api/internal/model"
	"campus_api/internal/schema"
	"campus_api/internal/service"

	"github.com/gin-gonic/gin"
)

// ResourceHandler serves the list and CRUD endpoints shared by every entity.
type ResourceHandler struct {
	service *service.ResourceService
	logger  *slog.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(s *service.ResourceService, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{service: s, logger: logger}
}

// List runs the query pipeline over the request's query string.
func (h *ResourceHandler) List(entity *schema.Entity) gin.HandlerFunc {
	return h.ListScoped(entity, nil)
}

// ListScoped is List with server-imposed filters derived from the request.
func (h *ResourceHandler) ListScoped(entity *schema.Entity, scope func(c *gin.Context) service.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s service.Scope
		if scope != nil {
			s = scope(c)
		}
		page, err := h.service.List(c.Request.Context(), entity, c.Request.URL.Query(), s)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func (h *ResourceHandler) Get(entity *schema.Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.service.Get(c.Request.Context(), entity, c.Param("id"))
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// Create binds the body into a fresh payload from newReq and stores it.
func (h *ResourceHandler) Create(entity *schema.Entity, newReq func() model.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := newReq()
		if err := c.ShouldBindJSON(req); err != nil {
			respondBindError(c, err)
			return
		}
		rec, err := h.service.Create(c.Request.Context(), entity, req.Record())
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		h.logger.InfoContext(c.Request.Context(), "record created", "entity", entity.Name, "id", rec.ID())
		c.JSON(http.StatusCreated, rec)
	}
}

// Update replaces the writable fields of a record with the bound payload.
func (h *ResourceHandler) Update(entity *schema.Entity, newReq func() model.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := newReq()
		if err := c.ShouldBindJSON(req); err != nil {
			respondBindError(c, err)
			return
		}
		rec, err := h.service.Update(c.Request.Context(), entity, c.Param("id"), req.Record())
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// Delete soft-deletes a record.
func (h *ResourceHandler) Delete(entity *schema.Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.Delete(c.Request.Context(), entity, c.Param("id")); err != nil {
			respondError(c, h.logger, err)
			return
		}
		h.logger.InfoContext(c.Request.Context(), "record deleted", "entity", entity.Name, "id", c.Param("id"))
		c.JSON(http.StatusOK, model.MessageResponse{Message: "Resource deleted successfully"})
	}
}
