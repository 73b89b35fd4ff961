// Package transfer implements the staged stock transfer lifecycle:
// goods leave the origin when the transfer is created, travel "in
// transit", and are credited to the destination only when received.
// Partial receipt is supported; a pending transfer can be deleted, which
// reverses the origin deduction.
package transfer

import (
	"context"
	"time"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/types"
)

// Status is the transfer lifecycle state.
type Status string

const (
	// StatusPendente: created, origin debited, nothing received yet
	StatusPendente Status = "pendente"

	// StatusRecebido: every item fully received
	StatusRecebido Status = "recebido"

	// StatusRecebidoParcial: some quantity received, less than requested
	StatusRecebidoParcial Status = "recebido_parcial"
)

// Transfer is the staged transfer header.
type Transfer struct {
	ID id.ID `db:"id" json:"id"`

	// TransferNumber is the human-readable sequential number (TRF-2026-00001)
	TransferNumber string `db:"transfer_number" json:"transferNumber"`

	OriginLocationID      id.ID `db:"origin_location_id" json:"originLocationId"`
	DestinationLocationID id.ID `db:"destination_location_id" json:"destinationLocationId"`

	Status Status `db:"status" json:"status"`

	DriverName   string `db:"driver_name" json:"driverName,omitempty"`
	LicensePlate string `db:"license_plate" json:"licensePlate,omitempty"`

	// UserID is the user who created the transfer
	UserID id.ID `db:"user_id" json:"userId"`

	Observation string `db:"observation" json:"observation,omitempty"`

	// Version for optimistic locking on the header
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Items []*Item `db:"-" json:"items"`
}

// Item is one product line of a staged transfer.
type Item struct {
	ID         id.ID `db:"id" json:"id"`
	TransferID id.ID `db:"transfer_id" json:"transferId"`
	StockID    id.ID `db:"stock_id" json:"stockId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	// Quantity requested at creation
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// QuantityAvailableBefore snapshots the origin's available balance
	// at creation time
	QuantityAvailableBefore types.Quantity `db:"quantity_available_before" json:"quantityAvailableBefore"`

	// QuantityReceived accumulates across partial receipts; nil until
	// the first receipt touches the item
	QuantityReceived *types.Quantity `db:"quantity_received" json:"quantityReceived,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Received returns the quantity received so far.
func (i *Item) Received() types.Quantity {
	if i.QuantityReceived == nil {
		return 0
	}
	return *i.QuantityReceived
}

// Outstanding returns the quantity still in transit.
func (i *Item) Outstanding() types.Quantity {
	return i.Quantity - i.Received()
}

// IsFullyReceived reports whether the item has nothing left in transit.
func (i *Item) IsFullyReceived() bool {
	return i.Outstanding() <= 0
}

// Validate checks header invariants.
func (t *Transfer) Validate(ctx context.Context) error {
	if id.IsNil(t.OriginLocationID) {
		return apperror.NewValidation("origin location is required").
			WithDetail("field", "origin_location_id")
	}
	if id.IsNil(t.DestinationLocationID) {
		return apperror.NewValidation("destination location is required").
			WithDetail("field", "destination_location_id")
	}
	if t.OriginLocationID == t.DestinationLocationID {
		return apperror.NewInvalidLocation(t.DestinationLocationID.String(), "origin and destination must differ")
	}
	if len(t.Items) == 0 {
		return apperror.NewValidation("transfer must have at least one item")
	}
	for i, item := range t.Items {
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("item_index", i)
		}
	}
	return nil
}

// IsPending reports whether the transfer can still be received or deleted.
func (t *Transfer) IsPending() bool {
	return t.Status == StatusPendente || t.Status == StatusRecebidoParcial
}

// ResolveStatus recomputes the header status from its items.
func (t *Transfer) ResolveStatus() Status {
	anyReceived := false
	allReceived := true
	for _, item := range t.Items {
		if item.Received() > 0 {
			anyReceived = true
		}
		if !item.IsFullyReceived() {
			allReceived = false
		}
	}
	switch {
	case allReceived:
		return StatusRecebido
	case anyReceived:
		return StatusRecebidoParcial
	default:
		return StatusPendente
	}
}
