package transfer

import (
	"context"
	"time"

	"almox/internal/core/id"
)

// Filter defines criteria for listing transfers.
type Filter struct {
	// LocationIDs matches transfers whose origin OR destination is in
	// the set. Populated from the caller's accessible scope; nil means
	// unrestricted.
	LocationIDs []id.ID

	Statuses []Status
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines persistence operations for staged transfers.
type Repository interface {
	// Create inserts the header and all items.
	Create(ctx context.Context, transfer *Transfer) error

	// Update persists header changes with an optimistic version check.
	Update(ctx context.Context, transfer *Transfer) error

	// UpdateItem persists a received-quantity change on one item.
	UpdateItem(ctx context.Context, item *Item) error

	// GetByID loads the header with its items.
	GetByID(ctx context.Context, transferID id.ID) (*Transfer, error)

	// GetByIDForUpdate loads the header with a row lock, then its items.
	// Must be called inside a transaction.
	GetByIDForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error)

	// Delete removes the header and its items.
	Delete(ctx context.Context, transferID id.ID) error

	List(ctx context.Context, filter Filter) ([]*Transfer, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}
