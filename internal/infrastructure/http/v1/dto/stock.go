package dto

import (
	"time"

	"almox/internal/core/types"
	"almox/internal/domain/ledger"
)

// --- Requests ---

// EntryRequest books incoming stock.
type EntryRequest struct {
	LocationID    string  `json:"locationId" binding:"required"`
	ProductID     string  `json:"productId" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required,gt=0"`
	ReferenceType string  `json:"referenceType,omitempty"`
	ReferenceID   string  `json:"referenceId,omitempty"`
	UnitCost      string  `json:"unitCost,omitempty"`
	Observation   string  `json:"observation,omitempty"`
	MovementDate  string  `json:"movementDate,omitempty"`
}

// QuantityRequest carries a quantity for reserve/release/exit operations.
type QuantityRequest struct {
	Quantity      float64 `json:"quantity" binding:"required,gt=0"`
	ReferenceType string  `json:"referenceType,omitempty"`
	ReferenceID   string  `json:"referenceId,omitempty"`
	Observation   string  `json:"observation,omitempty"`
}

// CancelReservationRequest cancels a reservation with a mandatory reason.
type CancelReservationRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Reason   string  `json:"reason" binding:"required"`
}

// AdjustRequest corrects a balance by a signed quantity.
type AdjustRequest struct {
	Quantity float64 `json:"quantity" binding:"required"`
	Reason   string  `json:"reason" binding:"required"`
}

// DirectTransferRequest moves quantity between locations in one step.
type DirectTransferRequest struct {
	DestinationLocationID string  `json:"destinationLocationId" binding:"required"`
	Quantity              float64 `json:"quantity" binding:"required,gt=0"`
	Observation           string  `json:"observation,omitempty"`
	FromReserved          bool    `json:"fromReserved,omitempty"`
}

// --- Responses ---

// StockResponse represents a stock balance in API responses.
type StockResponse struct {
	ID             string     `json:"id"`
	LocationID     string     `json:"locationId"`
	ProductID      string     `json:"productId"`
	Available      float64    `json:"quantityAvailable"`
	Reserved       float64    `json:"quantityReserved"`
	Total          float64    `json:"quantityTotal"`
	MinStock       *float64   `json:"minStock,omitempty"`
	MaxStock       *float64   `json:"maxStock,omitempty"`
	LastMovementAt *time.Time `json:"lastMovementAt,omitempty"`
	Version        int        `json:"version"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// FromStock converts a ledger stock to its response DTO.
func FromStock(s *ledger.Stock) StockResponse {
	resp := StockResponse{
		ID:             s.ID.String(),
		LocationID:     s.LocationID.String(),
		ProductID:      s.ProductID.String(),
		Available:      s.Available.Float64(),
		Reserved:       s.Reserved.Float64(),
		Total:          s.Total.Float64(),
		LastMovementAt: s.LastMovementAt,
		Version:        s.Version,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.MinStock != nil {
		v := s.MinStock.Float64()
		resp.MinStock = &v
	}
	if s.MaxStock != nil {
		v := s.MaxStock.Float64()
		resp.MaxStock = &v
	}
	return resp
}

// StockListResponse represents a page of stock balances.
type StockListResponse struct {
	Items      []StockResponse `json:"items"`
	TotalCount int64           `json:"totalCount"`
}

// MovementResponse represents a ledger movement in API responses.
type MovementResponse struct {
	ID             string    `json:"id"`
	StockID        string    `json:"stockId"`
	Type           string    `json:"type"`
	Quantity       float64   `json:"quantity"`
	AvailableDelta float64   `json:"availableDelta"`
	ReservedDelta  float64   `json:"reservedDelta"`
	TotalBefore    float64   `json:"totalBefore"`
	TotalAfter     float64   `json:"totalAfter"`
	ReferenceType  string    `json:"referenceType"`
	ReferenceID    string    `json:"referenceId,omitempty"`
	TransferNumber string    `json:"transferNumber,omitempty"`
	UnitCost       string    `json:"unitCost,omitempty"`
	TotalCost      string    `json:"totalCost,omitempty"`
	Observation    string    `json:"observation,omitempty"`
	UserID         string    `json:"userId"`
	MovementDate   time.Time `json:"movementDate"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FromMovement converts a ledger movement to its response DTO.
func FromMovement(m *ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:             m.ID.String(),
		StockID:        m.StockID.String(),
		Type:           string(m.Type),
		Quantity:       m.Quantity.Float64(),
		AvailableDelta: m.AvailableDelta.Float64(),
		ReservedDelta:  m.ReservedDelta.Float64(),
		TotalBefore:    m.TotalBefore.Float64(),
		TotalAfter:     m.TotalAfter.Float64(),
		ReferenceType:  string(m.ReferenceType),
		Observation:    m.Observation,
		UserID:         m.UserID.String(),
		MovementDate:   m.MovementDate,
		CreatedAt:      m.CreatedAt,
	}
	if m.ReferenceID != nil {
		resp.ReferenceID = m.ReferenceID.String()
	}
	if m.TransferNumber != nil {
		resp.TransferNumber = *m.TransferNumber
	}
	if m.UnitCost != nil {
		resp.UnitCost = m.UnitCost.String()
	}
	if m.TotalCost != nil {
		resp.TotalCost = m.TotalCost.String()
	}
	return resp
}

// MovementListResponse represents a page of movements.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
}

// ParseMoney parses a decimal string, returning nil for empty input.
func ParseMoney(s string) (*types.Money, error) {
	if s == "" {
		return nil, nil
	}
	m, err := types.NewMoneyFromString(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
