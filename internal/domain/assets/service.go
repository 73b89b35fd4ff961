package assets

import (
	"context"
	"fmt"
	"time"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/numerator"
	"almox/internal/core/tenant"
	"almox/internal/core/types"
	"almox/internal/domain/ledger"
	"almox/pkg/logger"
)

// Ledger is the slice of the stock ledger the conversion needs.
type Ledger interface {
	GetStock(ctx context.Context, stockID id.ID) (*ledger.Stock, error)
	Exit(ctx context.Context, stockID id.ID, qty types.Quantity, input ledger.MovementInput) (*ledger.Stock, error)
}

// AssetCreator is the external collaborator that owns the asset domain.
// The ledger knows nothing about assets beyond this contract.
type AssetCreator interface {
	CreateAsset(ctx context.Context, input AssetInput) (id.ID, error)
}

// AssetInput is the contract handed to the asset collaborator.
type AssetInput struct {
	Description     string
	AcquisitionDate time.Time
	UnitValue       types.Money
	Quantity        types.Quantity
	SourceReference string
}

// Service performs stock-to-asset conversion: reserved stock exits the
// ledger under a responsibility term, priced by the FIFO resolver, and
// an asset record is created through the external collaborator.
type Service struct {
	ledger   Ledger
	resolver *CostResolver
	creator  AssetCreator
	numbers  numerator.Generator
}

// NewService creates an asset conversion service.
func NewService(stockLedger Ledger, resolver *CostResolver, creator AssetCreator, numbers numerator.Generator) *Service {
	return &Service{
		ledger:   stockLedger,
		resolver: resolver,
		creator:  creator,
		numbers:  numbers,
	}
}

// termNumberPrefix is the sequence prefix for responsibility terms.
const termNumberPrefix = "TR"

// ExitInput describes a stock-to-asset conversion request.
type ExitInput struct {
	StockID     id.ID
	Quantity    types.Quantity
	Description string

	// FallbackUnitValue prices the asset when no invoice-linked entrada
	// exists on the stock
	FallbackUnitValue *types.Money

	Observation string
}

// Result reports a completed conversion.
type Result struct {
	AssetID    id.ID
	TermNumber string
	UnitValue  types.Money
	Stock      *ledger.Stock
}

// ExitAndCreateAsset consumes reserved stock and creates the matching
// fixed asset, all inside one transaction. The exit movement carries
// the responsibility-term number and the resolved unit cost.
func (s *Service) ExitAndCreateAsset(ctx context.Context, input ExitInput) (*Result, error) {
	if !input.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}
	if input.Description == "" {
		return nil, apperror.NewValidation("asset description is required").
			WithDetail("field", "description")
	}

	var result *Result
	err := tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		unitCost, err := s.resolver.ResolveUnitCost(ctx, input.StockID, input.Quantity, input.FallbackUnitValue)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		termNumber, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(termNumberPrefix), now)
		if err != nil {
			return fmt.Errorf("generate term number: %w", err)
		}

		observation := fmt.Sprintf("Termo de responsabilidade %s", termNumber)
		if input.Observation != "" {
			observation = fmt.Sprintf("%s - %s", observation, input.Observation)
		}

		stock, err := s.ledger.Exit(ctx, input.StockID, input.Quantity, ledger.MovementInput{
			ReferenceType: ledger.RefTermoResponsabilidade,
			Observation:   observation,
			UnitCost:      &unitCost,
		})
		if err != nil {
			return err
		}

		assetID, err := s.creator.CreateAsset(ctx, AssetInput{
			Description:     input.Description,
			AcquisitionDate: now,
			UnitValue:       unitCost,
			Quantity:        input.Quantity,
			SourceReference: termNumber,
		})
		if err != nil {
			return fmt.Errorf("create asset: %w", err)
		}

		result = &Result{
			AssetID:    assetID,
			TermNumber: termNumber,
			UnitValue:  unitCost,
			Stock:      stock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock converted to asset",
		"stock_id", input.StockID,
		"asset_id", result.AssetID,
		"term_number", result.TermNumber,
		"quantity", input.Quantity,
		"unit_value", result.UnitValue)
	return result, nil
}
