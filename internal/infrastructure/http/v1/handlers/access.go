package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/access"
	"almox/internal/infrastructure/http/v1/dto"
)

// AccessHandler handles warehouse keeper assignments.
type AccessHandler struct {
	*BaseHandler
	service *access.Service
}

// NewAccessHandler creates a new access handler.
func NewAccessHandler(base *BaseHandler, service *access.Service) *AccessHandler {
	return &AccessHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Assign handles POST /keepers
func (h *AccessHandler) Assign(c *gin.Context) {
	var req dto.AssignKeeperRequest
	if !h.BindJSON(c, &req) {
		return
	}

	userID, err := id.Parse(req.UserID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid userId format"))
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return
	}

	assignment, err := h.service.Assign(c.Request.Context(), userID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromAssignment(assignment))
}

// Unassign handles DELETE /keepers/:assignmentId
func (h *AccessHandler) Unassign(c *gin.Context) {
	assignmentID, err := id.Parse(c.Param("assignmentId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid assignmentId format"))
		return
	}

	if err := h.service.Unassign(c.Request.Context(), assignmentID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// ListByLocation handles GET /keepers/locations/:locationId
func (h *AccessHandler) ListByLocation(c *gin.Context) {
	locationID, err := id.Parse(c.Param("locationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return
	}

	assignments, err := h.service.ListByLocation(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.AssignmentResponse, len(assignments))
	for i, a := range assignments {
		items[i] = dto.FromAssignment(a)
	}

	h.OK(c, dto.AssignmentListResponse{Items: items})
}

// RegisterRoutes registers keeper assignment routes.
func (h *AccessHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Assign)
	rg.DELETE("/:assignmentId", h.Unassign)
	rg.GET("/locations/:locationId", h.ListByLocation)
}
