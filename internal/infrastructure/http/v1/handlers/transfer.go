package handlers

import (
	"net/http"

	"time"

	"github.com/gin-gonic/gin"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/types"
	"almox/internal/domain/transfer"
	"almox/internal/infrastructure/http/v1/dto"
)

// TransferHandler handles staged transfer operations.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	originID, err := id.Parse(req.OriginLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid originLocationId format"))
		return
	}

	destinationID, err := id.Parse(req.DestinationLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid destinationLocationId format"))
		return
	}

	items := make([]transfer.ItemInput, len(req.Items))
	for i, item := range req.Items {
		stockID, err := id.Parse(item.StockID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid stockId format"))
			return
		}
		items[i] = transfer.ItemInput{
			StockID:  stockID,
			Quantity: types.NewQuantityFromFloat64(item.Quantity),
		}
	}

	created, err := h.service.Create(c.Request.Context(), transfer.CreateInput{
		OriginLocationID:      originID,
		DestinationLocationID: destinationID,
		DriverName:            req.DriverName,
		LicensePlate:          req.LicensePlate,
		Observation:           req.Observation,
		Items:                 items,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromTransfer(created))
}

// Receive handles POST /transfers/:transferId/receive
func (h *TransferHandler) Receive(c *gin.Context) {
	transferID, ok := h.transferIDParam(c)
	if !ok {
		return
	}

	var req dto.ReceiveTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]transfer.ReceiveItemInput, len(req.Items))
	for i, item := range req.Items {
		itemID, err := id.Parse(item.ItemID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid itemId format"))
			return
		}
		items[i] = transfer.ReceiveItemInput{
			ItemID:   itemID,
			Quantity: types.NewQuantityFromFloat64(item.Quantity),
		}
	}

	received, err := h.service.Receive(c.Request.Context(), transferID, items)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(received))
}

// Delete handles DELETE /transfers/:transferId
func (h *TransferHandler) Delete(c *gin.Context) {
	transferID, ok := h.transferIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), transferID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// GetByID handles GET /transfers/:transferId
func (h *TransferHandler) GetByID(c *gin.Context) {
	transferID, ok := h.transferIDParam(c)
	if !ok {
		return
	}

	t, err := h.service.GetByID(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(t))
}

// List handles GET /transfers
func (h *TransferHandler) List(c *gin.Context) {
	filter := transfer.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	for _, v := range c.QueryArray("locationId") {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return
		}
		filter.LocationIDs = append(filter.LocationIDs, parsed)
	}

	for _, s := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, transfer.Status(s))
	}

	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.FromDate = &parsed
		}
	}
	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.ToDate = &parsed
		}
	}

	transfers, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	count, err := h.service.Count(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.TransferResponse, len(transfers))
	for i, t := range transfers {
		items[i] = dto.FromTransfer(t)
	}

	h.OK(c, dto.TransferListResponse{Items: items, TotalCount: count})
}

func (h *TransferHandler) transferIDParam(c *gin.Context) (id.ID, bool) {
	transferID, err := id.Parse(c.Param("transferId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid transferId format"))
		return id.Nil(), false
	}
	return transferID, true
}

// RegisterRoutes registers transfer routes.
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:transferId", h.GetByID)
	rg.POST("/:transferId/receive", h.Receive)
	rg.DELETE("/:transferId", h.Delete)
}
