package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/types"
	"almox/internal/domain/assets"
	"almox/internal/infrastructure/http/v1/dto"
)

// AssetHandler handles stock-to-asset conversions.
type AssetHandler struct {
	*BaseHandler
	service *assets.Service
}

// NewAssetHandler creates a new asset handler.
func NewAssetHandler(base *BaseHandler, service *assets.Service) *AssetHandler {
	return &AssetHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Exit handles POST /assets/exits
func (h *AssetHandler) Exit(c *gin.Context) {
	var req dto.AssetExitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	stockID, err := id.Parse(req.StockID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stockId format"))
		return
	}

	fallback, err := dto.ParseMoney(req.FallbackUnitValue)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid fallbackUnitValue format"))
		return
	}

	result, err := h.service.ExitAndCreateAsset(c.Request.Context(), assets.ExitInput{
		StockID:           stockID,
		Quantity:          types.NewQuantityFromFloat64(req.Quantity),
		Description:       req.Description,
		FallbackUnitValue: fallback,
		Observation:       req.Observation,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromAssetResult(result))
}

// RegisterRoutes registers asset conversion routes.
func (h *AssetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/exits", h.Exit)
}
