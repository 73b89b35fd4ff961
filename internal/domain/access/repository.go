package access

import (
	"context"

	"almox/internal/core/id"
)

// Repository defines persistence operations for keeper assignments.
type Repository interface {
	Create(ctx context.Context, assignment *Assignment) error
	Delete(ctx context.Context, assignmentID id.ID) error
	ListByUser(ctx context.Context, userID id.ID) ([]*Assignment, error)
	ListByLocation(ctx context.Context, locationID id.ID) ([]*Assignment, error)
}

// LocationReader is the slice of the location catalog the gate needs.
type LocationReader interface {
	// ListActiveIDs returns the ids of all active locations.
	ListActiveIDs(ctx context.Context) ([]id.ID, error)
	// IsActive reports whether the location exists and is active.
	IsActive(ctx context.Context, locationID id.ID) (bool, error)
}
