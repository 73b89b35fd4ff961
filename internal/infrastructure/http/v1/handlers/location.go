package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/catalogs/location"
	"almox/internal/infrastructure/http/v1/dto"
)

// LocationHandler handles storage location catalog operations.
type LocationHandler struct {
	*BaseHandler
	service *location.Service
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(base *BaseHandler, service *location.Service) *LocationHandler {
	return &LocationHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /locations
func (h *LocationHandler) Create(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc := location.New(req.Code, req.Name, location.LocationType(req.Type))
	if req.Address != "" {
		loc.Address = &req.Address
	}

	if err := h.service.Create(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromLocation(loc))
}

// Update handles PUT /locations/:locationId
func (h *LocationHandler) Update(c *gin.Context) {
	locationID, ok := h.locationIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc, err := h.service.GetByID(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	loc.Name = req.Name
	loc.Version = req.Version
	if req.Address != "" {
		loc.Address = &req.Address
	} else {
		loc.Address = nil
	}

	if err := h.service.Update(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLocation(loc))
}

// Deactivate handles DELETE /locations/:locationId
func (h *LocationHandler) Deactivate(c *gin.Context) {
	locationID, ok := h.locationIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), locationID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// GetByID handles GET /locations/:locationId
func (h *LocationHandler) GetByID(c *gin.Context) {
	locationID, ok := h.locationIDParam(c)
	if !ok {
		return
	}

	loc, err := h.service.GetByID(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLocation(loc))
}

// List handles GET /locations
func (h *LocationHandler) List(c *gin.Context) {
	filter := location.Filter{
		SearchText: c.Query("search"),
		Limit:      h.ParseIntQuery(c, "limit", 100),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}

	for _, t := range c.QueryArray("type") {
		filter.Types = append(filter.Types, location.LocationType(t))
	}

	if activeStr := c.Query("isActive"); activeStr != "" {
		active := activeStr == "true"
		filter.IsActive = &active
	}

	locations, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	count, err := h.service.Count(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.LocationResponse, len(locations))
	for i, l := range locations {
		items[i] = dto.FromLocation(l)
	}

	h.OK(c, dto.LocationListResponse{Items: items, TotalCount: count})
}

func (h *LocationHandler) locationIDParam(c *gin.Context) (id.ID, bool) {
	locationID, err := id.Parse(c.Param("locationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return id.Nil(), false
	}
	return locationID, true
}

// RegisterRoutes registers location catalog routes.
func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:locationId", h.GetByID)
	rg.PUT("/:locationId", h.Update)
	rg.DELETE("/:locationId", h.Deactivate)
}
