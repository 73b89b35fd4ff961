// Package location provides the stock location catalog.
// A location is a warehouse, yard or site holding stock; every Stock row
// belongs to exactly one location.
package location

import (
	"context"
	"time"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
)

// LocationType defines the kind of stock location.
type LocationType string

const (
	TypeWarehouse LocationType = "warehouse"
	TypeYard      LocationType = "yard"
	TypeSite      LocationType = "site"
	TypeTransit   LocationType = "transit"
)

// Location represents a place where stock is held.
type Location struct {
	ID id.ID `db:"id" json:"id"`

	// Code is a human-readable identifier (unique within tenant database)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	Type LocationType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive gates whether the location can originate or receive stock
	IsActive bool `db:"is_active" json:"isActive"`

	// Version for optimistic locking
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a new active Location.
func New(code, name string, locType LocationType) *Location {
	now := time.Now().UTC()
	return &Location{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Type:      locType,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks entity invariants.
func (l *Location) Validate(ctx context.Context) error {
	if l.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if !isValidLocationType(l.Type) {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}

	return nil
}

// CanHoldStock reports whether the location may originate or receive stock.
func (l *Location) CanHoldStock() bool {
	return l.IsActive
}

func isValidLocationType(t LocationType) bool {
	switch t {
	case TypeWarehouse, TypeYard, TypeSite, TypeTransit:
		return true
	}
	return false
}
