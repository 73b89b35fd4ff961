package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/types"
	"almox/internal/domain/ledger"
	"almox/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock ledger operations.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Entry handles POST /stock/entries
func (h *StockHandler) Entry(c *gin.Context) {
	var req dto.EntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	movement, ok := h.movementInput(c, req.ReferenceType, req.ReferenceID, req.Observation, req.MovementDate, req.UnitCost)
	if !ok {
		return
	}

	stock, err := h.service.Entry(c.Request.Context(), ledger.EntryInput{
		LocationID:    locationID,
		ProductID:     productID,
		Quantity:      types.NewQuantityFromFloat64(req.Quantity),
		MovementInput: movement,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStock(stock))
}

// Reserve handles POST /stock/:stockId/reserve
func (h *StockHandler) Reserve(c *gin.Context) {
	h.quantityOperation(c, h.service.Reserve)
}

// Release handles POST /stock/:stockId/release
func (h *StockHandler) Release(c *gin.Context) {
	h.quantityOperation(c, h.service.Release)
}

// Exit handles POST /stock/:stockId/exit
func (h *StockHandler) Exit(c *gin.Context) {
	h.quantityOperation(c, h.service.Exit)
}

// quantityOperation runs a reserve/release/exit style operation that
// takes a stock ID plus a quantity and movement metadata.
func (h *StockHandler) quantityOperation(
	c *gin.Context,
	op func(ctx context.Context, stockID id.ID, qty types.Quantity, input ledger.MovementInput) (*ledger.Stock, error),
) {
	stockID, ok := h.stockIDParam(c)
	if !ok {
		return
	}

	var req dto.QuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, ok := h.movementInput(c, req.ReferenceType, req.ReferenceID, req.Observation, "", "")
	if !ok {
		return
	}

	stock, err := op(c.Request.Context(), stockID, types.NewQuantityFromFloat64(req.Quantity), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStock(stock))
}

// CancelReservation handles POST /stock/:stockId/cancel-reservation
func (h *StockHandler) CancelReservation(c *gin.Context) {
	stockID, ok := h.stockIDParam(c)
	if !ok {
		return
	}

	var req dto.CancelReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	stock, err := h.service.CancelReservation(
		c.Request.Context(),
		stockID,
		types.NewQuantityFromFloat64(req.Quantity),
		req.Reason,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStock(stock))
}

// Adjust handles POST /stock/:stockId/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	stockID, ok := h.stockIDParam(c)
	if !ok {
		return
	}

	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}

	stock, err := h.service.Adjust(
		c.Request.Context(),
		stockID,
		types.NewQuantityFromFloat64(req.Quantity),
		req.Reason,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStock(stock))
}

// Transfer handles POST /stock/:stockId/transfer
func (h *StockHandler) Transfer(c *gin.Context) {
	stockID, ok := h.stockIDParam(c)
	if !ok {
		return
	}

	var req dto.DirectTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	destinationID, err := id.Parse(req.DestinationLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid destinationLocationId format"))
		return
	}

	input := ledger.DirectTransferInput{
		StockID:               stockID,
		DestinationLocationID: destinationID,
		Quantity:              types.NewQuantityFromFloat64(req.Quantity),
		Observation:           req.Observation,
	}

	var origin, destination *ledger.Stock
	if req.FromReserved {
		origin, destination, err = h.service.TransferReserved(c.Request.Context(), input)
	} else {
		origin, destination, err = h.service.TransferDirect(c.Request.Context(), input)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"origin":      dto.FromStock(origin),
		"destination": dto.FromStock(destination),
	})
}

// GetStock handles GET /stock/:stockId
func (h *StockHandler) GetStock(c *gin.Context) {
	stockID, ok := h.stockIDParam(c)
	if !ok {
		return
	}

	stock, err := h.service.GetStock(c.Request.Context(), stockID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStock(stock))
}

// ListStock handles GET /stock
func (h *StockHandler) ListStock(c *gin.Context) {
	filter := ledger.StockFilter{
		ExcludeZero: c.Query("excludeZero") == "true",
		BelowMin:    c.Query("belowMin") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 100),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	if ids, ok := h.idListQuery(c, "locationId"); ok {
		filter.LocationIDs = ids
	} else {
		return
	}
	if ids, ok := h.idListQuery(c, "productId"); ok {
		filter.ProductIDs = ids
	} else {
		return
	}

	stocks, err := h.service.ListStock(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockResponse, len(stocks))
	for i, s := range stocks {
		items[i] = dto.FromStock(s)
	}

	h.OK(c, dto.StockListResponse{Items: items, TotalCount: int64(len(items))})
}

// ListMovements handles GET /stock/movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	filter := ledger.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if sStr := c.Query("stockId"); sStr != "" {
		parsed, err := id.Parse(sStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid stockId format"))
			return
		}
		filter.StockID = &parsed
	}

	if ids, ok := h.idListQuery(c, "locationId"); ok {
		filter.LocationIDs = ids
	} else {
		return
	}

	for _, t := range c.QueryArray("type") {
		filter.Types = append(filter.Types, ledger.MovementType(t))
	}

	if refStr := c.Query("referenceType"); refStr != "" {
		ref := ledger.ReferenceType(refStr)
		filter.ReferenceType = &ref
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

	movements, err := h.service.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, len(movements))
	for i, m := range movements {
		items[i] = dto.FromMovement(m)
	}

	h.OK(c, dto.MovementListResponse{Items: items})
}

// CheckConsistency handles GET /stock/:stockId/consistency
func (h *StockHandler) CheckConsistency(c *gin.Context) {
	stockID, ok := h.stockIDParam(c)
	if !ok {
		return
	}

	if err := h.service.CheckConsistency(c.Request.Context(), stockID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "ledger is consistent with balance")
}

// --- helpers ---

func (h *StockHandler) stockIDParam(c *gin.Context) (id.ID, bool) {
	stockID, err := id.Parse(c.Param("stockId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stockId format"))
		return id.Nil(), false
	}
	return stockID, true
}

func (h *StockHandler) idListQuery(c *gin.Context, key string) ([]id.ID, bool) {
	values := c.QueryArray(key)
	if len(values) == 0 {
		return nil, true
	}
	ids := make([]id.ID, len(values))
	for i, v := range values {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid "+key+" format"))
			return nil, false
		}
		ids[i] = parsed
	}
	return ids, true
}

func (h *StockHandler) movementInput(c *gin.Context, refType, refID, observation, movementDate, unitCost string) (ledger.MovementInput, bool) {
	input := ledger.MovementInput{
		ReferenceType: ledger.ReferenceType(refType),
		Observation:   observation,
	}

	if refID != "" {
		parsed, err := id.Parse(refID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid referenceId format"))
			return input, false
		}
		input.ReferenceID = &parsed
	}

	if movementDate != "" {
		parsed, err := time.Parse(time.RFC3339, movementDate)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid movementDate format, expected RFC3339"))
			return input, false
		}
		input.MovementDate = parsed
	}

	cost, err := dto.ParseMoney(unitCost)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid unitCost format"))
		return input, false
	}
	input.UnitCost = cost

	return input, true
}

// RegisterRoutes registers stock ledger routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListStock)
	rg.GET("/movements", h.ListMovements)
	rg.POST("/entries", h.Entry)
	rg.GET("/:stockId", h.GetStock)
	rg.GET("/:stockId/consistency", h.CheckConsistency)
	rg.POST("/:stockId/reserve", h.Reserve)
	rg.POST("/:stockId/release", h.Release)
	rg.POST("/:stockId/cancel-reservation", h.CancelReservation)
	rg.POST("/:stockId/exit", h.Exit)
	rg.POST("/:stockId/adjust", h.Adjust)
	rg.POST("/:stockId/transfer", h.Transfer)
}
