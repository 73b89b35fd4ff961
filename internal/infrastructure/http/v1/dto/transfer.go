package dto

import (
	"time"

	"almox/internal/domain/transfer"
)

// --- Requests ---

// TransferItemRequest is one line of a staged transfer.
type TransferItemRequest struct {
	StockID  string  `json:"stockId" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// CreateTransferRequest opens a staged transfer.
type CreateTransferRequest struct {
	OriginLocationID      string                `json:"originLocationId" binding:"required"`
	DestinationLocationID string                `json:"destinationLocationId" binding:"required"`
	DriverName            string                `json:"driverName,omitempty"`
	LicensePlate          string                `json:"licensePlate,omitempty"`
	Observation           string                `json:"observation,omitempty"`
	Items                 []TransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiveItemRequest books an arrived quantity for one item.
type ReceiveItemRequest struct {
	ItemID   string  `json:"itemId" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// ReceiveTransferRequest books arrivals at the destination.
type ReceiveTransferRequest struct {
	Items []ReceiveItemRequest `json:"items" binding:"required,min=1,dive"`
}

// --- Responses ---

// TransferItemResponse represents a transfer line.
type TransferItemResponse struct {
	ID                      string   `json:"id"`
	StockID                 string   `json:"stockId"`
	ProductID               string   `json:"productId"`
	Quantity                float64  `json:"quantity"`
	QuantityAvailableBefore float64  `json:"quantityAvailableBefore"`
	QuantityReceived        *float64 `json:"quantityReceived,omitempty"`
}

// TransferResponse represents a staged transfer with its items.
type TransferResponse struct {
	ID                    string                 `json:"id"`
	TransferNumber        string                 `json:"transferNumber"`
	OriginLocationID      string                 `json:"originLocationId"`
	DestinationLocationID string                 `json:"destinationLocationId"`
	Status                string                 `json:"status"`
	DriverName            string                 `json:"driverName,omitempty"`
	LicensePlate          string                 `json:"licensePlate,omitempty"`
	UserID                string                 `json:"userId"`
	Observation           string                 `json:"observation,omitempty"`
	Items                 []TransferItemResponse `json:"items"`
	Version               int                    `json:"version"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// FromTransfer converts a transfer to its response DTO.
func FromTransfer(t *transfer.Transfer) TransferResponse {
	items := make([]TransferItemResponse, len(t.Items))
	for i, item := range t.Items {
		items[i] = TransferItemResponse{
			ID:                      item.ID.String(),
			StockID:                 item.StockID.String(),
			ProductID:               item.ProductID.String(),
			Quantity:                item.Quantity.Float64(),
			QuantityAvailableBefore: item.QuantityAvailableBefore.Float64(),
		}
		if item.QuantityReceived != nil {
			v := item.QuantityReceived.Float64()
			items[i].QuantityReceived = &v
		}
	}

	return TransferResponse{
		ID:                    t.ID.String(),
		TransferNumber:        t.TransferNumber,
		OriginLocationID:      t.OriginLocationID.String(),
		DestinationLocationID: t.DestinationLocationID.String(),
		Status:                string(t.Status),
		DriverName:            t.DriverName,
		LicensePlate:          t.LicensePlate,
		UserID:                t.UserID.String(),
		Observation:           t.Observation,
		Items:                 items,
		Version:               t.Version,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

// TransferListResponse represents a page of transfers.
type TransferListResponse struct {
	Items      []TransferResponse `json:"items"`
	TotalCount int64              `json:"totalCount"`
}
