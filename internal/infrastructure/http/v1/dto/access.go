package dto

import (
	"time"

	"almox/internal/domain/access"
)

// AssignKeeperRequest grants a user keeper access to a location.
type AssignKeeperRequest struct {
	UserID     string `json:"userId" binding:"required"`
	LocationID string `json:"locationId" binding:"required"`
}

// AssignmentResponse represents a keeper assignment.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	LocationID string    `json:"locationId"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromAssignment converts an assignment to its response DTO.
func FromAssignment(a *access.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:         a.ID.String(),
		UserID:     a.UserID.String(),
		LocationID: a.LocationID.String(),
		CreatedBy:  a.CreatedBy.String(),
		CreatedAt:  a.CreatedAt,
	}
}

// AssignmentListResponse represents assignments of a location.
type AssignmentListResponse struct {
	Items []AssignmentResponse `json:"items"`
}
