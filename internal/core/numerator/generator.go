// Package numerator provides domain contracts for sequential numbering.
// Transfer and responsibility-term numbers must come from an atomic counter,
// never from a max-plus-one read, so concurrent creations cannot collide.
// Implementations live in the infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential document numbers.
//
// In database-per-tenant mode, implementations obtain the tenant's
// connection from context via tenant.GetPool.
type Generator interface {
	// GetNextNumber generates the next number for the configured sequence.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., TRF-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)

	// SetNextNumber sets the counter value (for data migrations).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
