// Package ledger implements the stock balance record and its append-only
// movement log. Every quantity change in the system passes through here.
package ledger

import (
	"errors"
	"time"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/types"
)

// MovementType classifies a ledger entry.
type MovementType string

const (
	MovementEntrada       MovementType = "entrada"
	MovementSaida         MovementType = "saida"
	MovementAjuste        MovementType = "ajuste"
	MovementTransferencia MovementType = "transferencia"
)

// ReferenceType identifies the business document behind a movement.
type ReferenceType string

const (
	RefCompra                ReferenceType = "compra"
	RefSolicitacao           ReferenceType = "solicitacao"
	RefAjusteManual          ReferenceType = "ajuste_manual"
	RefTransferencia         ReferenceType = "transferencia"
	RefTermoResponsabilidade ReferenceType = "termo_responsabilidade"
	RefOutro                 ReferenceType = "outro"
)

// Stock is the balance record for one product at one location.
// Exactly one row exists per product-location pair in a tenant database;
// rows are created lazily on the first entrada and never deleted.
type Stock struct {
	ID         id.ID `db:"id" json:"id"`
	LocationID id.ID `db:"location_id" json:"locationId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	// Available is free to be reserved or consumed
	Available types.Quantity `db:"quantity_available" json:"quantityAvailable"`

	// Reserved is earmarked but still on hand
	Reserved types.Quantity `db:"quantity_reserved" json:"quantityReserved"`

	// Total must always equal Available + Reserved
	Total types.Quantity `db:"quantity_total" json:"quantityTotal"`

	MinStock *types.Quantity `db:"min_stock" json:"minStock,omitempty"`
	MaxStock *types.Quantity `db:"max_stock" json:"maxStock,omitempty"`

	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`

	// Version for optimistic locking; bumped on every balance change
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStock creates an empty balance row for a product-location pair.
func NewStock(locationID, productID id.ID) *Stock {
	now := time.Now().UTC()
	return &Stock{
		ID:         id.New(),
		LocationID: locationID,
		ProductID:  productID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CheckInvariant verifies the balance identity after a mutation.
// total == available + reserved, and neither counter is negative.
func (s *Stock) CheckInvariant() error {
	if s.Available < 0 || s.Reserved < 0 {
		return apperror.NewInternal(errors.New("stock balance went negative")).
			WithDetail("stock_id", s.ID.String()).
			WithDetail("available", s.Available.String()).
			WithDetail("reserved", s.Reserved.String())
	}
	if s.Total != s.Available+s.Reserved {
		return apperror.NewInternal(errors.New("stock total diverged from available+reserved")).
			WithDetail("stock_id", s.ID.String()).
			WithDetail("total", s.Total.String())
	}
	return nil
}

// Movement is one immutable ledger entry. Rows are inserted, never
// updated or deleted; replaying them in creation order from zero must
// reproduce the current Stock balance exactly.
type Movement struct {
	ID      id.ID `db:"id" json:"id"`
	StockID id.ID `db:"stock_id" json:"stockId"`

	Type MovementType `db:"movement_type" json:"movementType"`

	// Quantity is the unsigned magnitude of the change
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// AvailableDelta and ReservedDelta are the signed effects on each
	// counter; their sum is the signed effect on total
	AvailableDelta types.Quantity `db:"available_delta" json:"availableDelta"`
	ReservedDelta  types.Quantity `db:"reserved_delta" json:"reservedDelta"`

	// TotalBefore and TotalAfter snapshot the total counter
	TotalBefore types.Quantity `db:"quantity_before" json:"quantityBefore"`
	TotalAfter  types.Quantity `db:"quantity_after" json:"quantityAfter"`

	ReferenceType ReferenceType `db:"reference_type" json:"referenceType"`
	ReferenceID   *id.ID        `db:"reference_id" json:"referenceId,omitempty"`

	// TransferNumber correlates the origin and destination entries of
	// one transfer
	TransferNumber *string `db:"transfer_number" json:"transferNumber,omitempty"`

	UnitCost  *types.Money `db:"cost" json:"cost,omitempty"`
	TotalCost *types.Money `db:"total_cost" json:"totalCost,omitempty"`

	Observation string `db:"observation" json:"observation,omitempty"`

	UserID id.ID `db:"user_id" json:"userId"`

	// MovementDate is the business date, distinct from CreatedAt
	MovementDate time.Time `db:"movement_date" json:"movementDate"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Replay folds movements (in creation order) into the balance they
// produce. Starting from zero over a stock's full history, the result
// must equal the stored balance.
func Replay(movements []*Movement) (available, reserved, total types.Quantity) {
	for _, m := range movements {
		available += m.AvailableDelta
		reserved += m.ReservedDelta
	}
	return available, reserved, available + reserved
}
