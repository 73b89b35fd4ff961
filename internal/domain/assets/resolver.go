// Package assets converts consumed stock into fixed-asset records,
// pricing the consumption by walking the ledger's invoice-linked
// entradas oldest-first.
package assets

import (
	"context"

	"almox/internal/core/id"
	"almox/internal/core/types"
	"almox/internal/domain/ledger"
)

// MovementSource reads the invoice-linked entrada history of a stock.
type MovementSource interface {
	// ListInvoiceEntries returns entrada movements carrying a
	// purchase-invoice reference, oldest first.
	ListInvoiceEntries(ctx context.Context, stockID id.ID) ([]*ledger.Movement, error)
}

// CostResolver prices an exit quantity against the entrada history.
//
// The policy is a simplified FIFO lookup: batches are consumed
// oldest-first, and the unit cost assigned to the whole exit is the
// cost of the batch that completes coverage of the requested quantity.
// It is deliberately not a weighted average across consumed batches.
type CostResolver struct {
	movements MovementSource
}

// NewCostResolver creates a resolver over the given movement source.
func NewCostResolver(movements MovementSource) *CostResolver {
	return &CostResolver{movements: movements}
}

// ResolveUnitCost returns the unit cost for exiting qty units from the
// stock. When no invoice-linked entrada exists, fallback is returned;
// a nil fallback yields zero.
func (r *CostResolver) ResolveUnitCost(ctx context.Context, stockID id.ID, qty types.Quantity, fallback *types.Money) (types.Money, error) {
	entries, err := r.movements.ListInvoiceEntries(ctx, stockID)
	if err != nil {
		return types.ZeroMoney(), err
	}

	if len(entries) == 0 {
		if fallback != nil {
			return *fallback, nil
		}
		return types.ZeroMoney(), nil
	}

	var covered types.Quantity
	cost := types.ZeroMoney()
	for _, entry := range entries {
		if entry.UnitCost != nil {
			cost = *entry.UnitCost
		}
		covered += entry.Quantity
		if covered >= qty {
			break
		}
	}
	// If history does not cover qty, the newest examined batch prices
	// the whole exit.
	return cost, nil
}
