package dto

import "almox/internal/domain/assets"

// AssetExitRequest converts reserved stock into a fixed asset.
type AssetExitRequest struct {
	StockID           string  `json:"stockId" binding:"required"`
	Quantity          float64 `json:"quantity" binding:"required,gt=0"`
	Description       string  `json:"description" binding:"required"`
	FallbackUnitValue string  `json:"fallbackUnitValue,omitempty"`
	Observation       string  `json:"observation,omitempty"`
}

// AssetExitResponse reports a completed conversion.
type AssetExitResponse struct {
	AssetID    string        `json:"assetId"`
	TermNumber string        `json:"termNumber"`
	UnitValue  string        `json:"unitValue"`
	Stock      StockResponse `json:"stock"`
}

// FromAssetResult converts a conversion result to its response DTO.
func FromAssetResult(r *assets.Result) AssetExitResponse {
	return AssetExitResponse{
		AssetID:    r.AssetID.String(),
		TermNumber: r.TermNumber,
		UnitValue:  r.UnitValue.String(),
		Stock:      FromStock(r.Stock),
	}
}
