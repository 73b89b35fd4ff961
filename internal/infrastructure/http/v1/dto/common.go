// Package dto defines request/response payloads for the HTTP API.
package dto

// IDResponse is returned after successful creation.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success envelope.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PaginationQuery holds common list parameters.
type PaginationQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
