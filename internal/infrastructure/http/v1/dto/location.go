package dto

import (
	"time"

	"almox/internal/domain/catalogs/location"
)

// CreateLocationRequest creates a storage location.
type CreateLocationRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Address string `json:"address,omitempty"`
}

// UpdateLocationRequest updates a storage location.
type UpdateLocationRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address,omitempty"`
	Version int    `json:"version" binding:"required"`
}

// LocationResponse represents a storage location.
type LocationResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"isActive"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromLocation converts a location to its response DTO.
func FromLocation(l *location.Location) LocationResponse {
	resp := LocationResponse{
		ID:        l.ID.String(),
		Code:      l.Code,
		Name:      l.Name,
		Type:      string(l.Type),
		IsActive:  l.IsActive,
		Version:   l.Version,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Address != nil {
		resp.Address = *l.Address
	}
	return resp
}

// LocationListResponse represents a page of locations.
type LocationListResponse struct {
	Items      []LocationResponse `json:"items"`
	TotalCount int64              `json:"totalCount"`
}
