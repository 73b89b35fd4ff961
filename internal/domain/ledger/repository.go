package ledger

import (
	"context"
	"time"

	"almox/internal/core/id"
)

// Repository defines persistence operations for stock balances and
// their movement log.
type Repository interface {
	// Stock balance operations

	// CreateStock inserts a new balance row.
	CreateStock(ctx context.Context, stock *Stock) error

	// UpdateStock persists a balance change with an optimistic version
	// check. Returns CONCURRENT_MODIFICATION when the stored version no
	// longer matches.
	UpdateStock(ctx context.Context, stock *Stock) error

	// GetStock returns a balance row without locking.
	GetStock(ctx context.Context, stockID id.ID) (*Stock, error)

	// GetStockForUpdate returns a balance row with a row-level lock.
	// Must be called inside a transaction; the lock is held until commit.
	GetStockForUpdate(ctx context.Context, stockID id.ID) (*Stock, error)

	// GetByLocationProduct returns the balance for a product-location pair.
	GetByLocationProduct(ctx context.Context, locationID, productID id.ID) (*Stock, error)

	// GetByLocationProductForUpdate is the locking variant, used when a
	// transfer must create-or-credit the destination row.
	GetByLocationProductForUpdate(ctx context.Context, locationID, productID id.ID) (*Stock, error)

	// ListStock returns balances matching the filter.
	ListStock(ctx context.Context, filter StockFilter) ([]*Stock, error)

	// CountStock returns the number of balances matching the filter.
	CountStock(ctx context.Context, filter StockFilter) (int64, error)

	// Movement operations

	// CreateMovement appends one ledger entry.
	CreateMovement(ctx context.Context, movement *Movement) error

	// ListMovements returns entries matching the filter, in creation order.
	ListMovements(ctx context.Context, filter MovementFilter) ([]*Movement, error)

	// ListInvoiceEntries returns entrada movements on a stock that carry
	// a purchase-invoice reference, oldest first. Consumed by the FIFO
	// cost resolver.
	ListInvoiceEntries(ctx context.Context, stockID id.ID) ([]*Movement, error)
}

// StockFilter defines criteria for listing balances.
type StockFilter struct {
	// LocationIDs restricts to the given locations. Populated from the
	// caller's accessible scope; nil means unrestricted (super-admin).
	LocationIDs []id.ID

	ProductIDs  []id.ID
	ExcludeZero bool
	BelowMin    bool
	Limit       int
	Offset      int
}

// MovementFilter defines criteria for listing movements.
type MovementFilter struct {
	StockID       *id.ID
	LocationIDs   []id.ID
	Types         []MovementType
	ReferenceType *ReferenceType
	FromDate      *time.Time
	ToDate        *time.Time
	Limit         int
	Offset        int
}
