// Package access resolves which stock locations a user may see and mutate.
// Ledger, transfer and listing operations consult this gate before acting.
package access

import (
	"time"

	"almox/internal/core/id"
)

// Assignment links a user to a location as its warehouse keeper.
// A user with at least one assignment sees exactly the assigned locations.
type Assignment struct {
	ID         id.ID     `db:"id" json:"id"`
	UserID     id.ID     `db:"user_id" json:"userId"`
	LocationID id.ID     `db:"location_id" json:"locationId"`
	CreatedBy  id.ID     `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// NewAssignment creates a keeper assignment.
func NewAssignment(userID, locationID, createdBy id.ID) *Assignment {
	return &Assignment{
		ID:         id.New(),
		UserID:     userID,
		LocationID: locationID,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}
}

// Scope describes the resolved accessible location set for one user.
type Scope struct {
	// All grants access to every location, including inactive ones.
	All bool

	// ActiveOnly grants access to every active location.
	ActiveOnly bool

	// LocationIDs is the explicit accessible set when neither All nor
	// ActiveOnly is set. Empty means access denied everywhere.
	LocationIDs []id.ID
}

// IsEmpty reports whether the scope grants no access at all.
func (s Scope) IsEmpty() bool {
	return !s.All && !s.ActiveOnly && len(s.LocationIDs) == 0
}

// Contains reports whether the scope includes the given location.
// active is the location's current state, needed for the ActiveOnly case.
func (s Scope) Contains(locationID id.ID, active bool) bool {
	if s.All {
		return true
	}
	if s.ActiveOnly {
		return active
	}
	for _, lid := range s.LocationIDs {
		if lid == locationID {
			return true
		}
	}
	return false
}
