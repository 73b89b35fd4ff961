package location

import (
	"context"

	"almox/internal/core/id"
)

// Filter defines criteria for listing locations.
type Filter struct {
	Types      []LocationType
	IsActive   *bool
	SearchText string // matches code or name
	Limit      int
	Offset     int
}

// Repository defines persistence operations for locations.
type Repository interface {
	Create(ctx context.Context, loc *Location) error
	Update(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, locationID id.ID) (*Location, error)
	GetByCode(ctx context.Context, code string) (*Location, error)
	List(ctx context.Context, filter Filter) ([]*Location, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}
