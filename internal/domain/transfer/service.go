package transfer

import (
	"context"
	"fmt"
	"time"

	"almox/internal/core/apperror"
	appctx "almox/internal/core/context"
	"almox/internal/core/id"
	"almox/internal/core/numerator"
	"almox/internal/core/tenant"
	"almox/internal/core/types"
	"almox/internal/domain/ledger"
	"almox/pkg/logger"
)

// Ledger is the slice of the stock ledger the transfer lifecycle needs.
// All three mutation methods run inside the caller's transaction.
type Ledger interface {
	GetStock(ctx context.Context, stockID id.ID) (*ledger.Stock, error)
	DebitInTransit(ctx context.Context, stockID id.ID, qty types.Quantity, transferNumber string, referenceID id.ID) (types.Quantity, error)
	CreditReceived(ctx context.Context, locationID, productID id.ID, qty types.Quantity, transferNumber string, referenceID id.ID) error
	RestoreFromTransit(ctx context.Context, stockID id.ID, qty types.Quantity, transferNumber string, referenceID id.ID) error
}

// AccessGate authorizes operations against locations.
type AccessGate interface {
	CheckLocation(ctx context.Context, locationID id.ID) error
	AccessibleLocationIDs(ctx context.Context) (ids []id.ID, allowed bool, err error)
}

// LocationReader answers whether a location exists and is active.
type LocationReader interface {
	IsActive(ctx context.Context, locationID id.ID) (bool, error)
}

// AuditTrail records transfer lifecycle snapshots.
type AuditTrail interface {
	Record(ctx context.Context, action string, payload any) error
}

// Service implements the staged transfer lifecycle.
type Service struct {
	repo      Repository
	ledger    Ledger
	gate      AccessGate
	locations LocationReader
	numbers   numerator.Generator
	audit     AuditTrail
}

// NewService creates a staged transfer service.
func NewService(
	repo Repository,
	stockLedger Ledger,
	gate AccessGate,
	locations LocationReader,
	numbers numerator.Generator,
	audit AuditTrail,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    stockLedger,
		gate:      gate,
		locations: locations,
		numbers:   numbers,
		audit:     audit,
	}
}

// ItemInput is one requested product line.
type ItemInput struct {
	StockID  id.ID
	Quantity types.Quantity
}

// CreateInput describes a new staged transfer.
type CreateInput struct {
	OriginLocationID      id.ID
	DestinationLocationID id.ID
	DriverName            string
	LicensePlate          string
	Observation           string
	Items                 []ItemInput
}

// Create opens a staged transfer: validates every item against the
// origin, debits the origin immediately (the goods go in transit) and
// persists the header as pendente. No destination-side entry yet.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Transfer, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("no authenticated user")
	}
	userID, err := id.Parse(user.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid user id in token")
	}

	if err := s.gate.CheckLocation(ctx, input.OriginLocationID); err != nil {
		return nil, err
	}
	if err := s.gate.CheckLocation(ctx, input.DestinationLocationID); err != nil {
		return nil, err
	}

	active, err := s.locations.IsActive(ctx, input.DestinationLocationID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperror.NewInvalidLocation(input.DestinationLocationID.String(), "destination location is not active")
	}

	now := time.Now().UTC()
	t := &Transfer{
		ID:                    id.New(),
		OriginLocationID:      input.OriginLocationID,
		DestinationLocationID: input.DestinationLocationID,
		Status:                StatusPendente,
		DriverName:            input.DriverName,
		LicensePlate:          input.LicensePlate,
		Observation:           input.Observation,
		UserID:                userID,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	for _, itemInput := range input.Items {
		t.Items = append(t.Items, &Item{
			ID:         id.New(),
			TransferID: t.ID,
			StockID:    itemInput.StockID,
			Quantity:   itemInput.Quantity,
			CreatedAt:  now,
		})
	}
	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(ledger.TransferNumberPrefix), now)
		if err != nil {
			return fmt.Errorf("generate transfer number: %w", err)
		}
		t.TransferNumber = number

		for _, item := range t.Items {
			stock, err := s.ledger.GetStock(ctx, item.StockID)
			if err != nil {
				return err
			}
			if stock.LocationID != input.OriginLocationID {
				return apperror.NewValidation("item stock does not belong to origin location").
					WithDetail("stock_id", item.StockID.String()).
					WithDetail("origin_location_id", input.OriginLocationID.String())
			}
			item.ProductID = stock.ProductID

			availableBefore, err := s.ledger.DebitInTransit(ctx, item.StockID, item.Quantity, number, t.ID)
			if err != nil {
				return err
			}
			item.QuantityAvailableBefore = availableBefore
		}

		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer created",
		"transfer_id", t.ID,
		"transfer_number", t.TransferNumber,
		"origin_location_id", t.OriginLocationID,
		"destination_location_id", t.DestinationLocationID,
		"items", len(t.Items))
	return t, nil
}

// ReceiveItemInput is one received line: item id plus the quantity that
// actually arrived in this receipt.
type ReceiveItemInput struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Receive books arrived quantities at the destination. Each received
// quantity must be positive and, cumulatively, must not exceed the
// requested quantity. The header resolves to recebido when every item
// is fully received, recebido_parcial otherwise.
func (s *Service) Receive(ctx context.Context, transferID id.ID, items []ReceiveItemInput) (*Transfer, error) {
	if len(items) == 0 {
		return nil, apperror.NewValidation("at least one item must be received")
	}

	var t *Transfer
	err := tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}

		if !t.IsPending() {
			return apperror.NewTransferNotPending(transferID.String(), string(t.Status))
		}
		if err := s.gate.CheckLocation(ctx, t.DestinationLocationID); err != nil {
			return err
		}

		byID := make(map[id.ID]*Item, len(t.Items))
		for _, item := range t.Items {
			byID[item.ID] = item
		}

		for _, received := range items {
			item, ok := byID[received.ItemID]
			if !ok {
				return apperror.NewNotFound("transfer item", received.ItemID.String())
			}
			if !received.Quantity.IsPositive() {
				return apperror.NewValidation("received quantity must be positive").
					WithDetail("item_id", received.ItemID.String())
			}
			if received.Quantity > item.Outstanding() {
				return apperror.NewValidation("received quantity exceeds outstanding quantity").
					WithDetail("item_id", received.ItemID.String()).
					WithDetail("received", received.Quantity.String()).
					WithDetail("outstanding", item.Outstanding().String())
			}

			if err := s.ledger.CreditReceived(ctx, t.DestinationLocationID, item.ProductID, received.Quantity, t.TransferNumber, t.ID); err != nil {
				return err
			}

			newReceived := item.Received() + received.Quantity
			item.QuantityReceived = &newReceived
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return err
			}
		}

		t.Status = t.ResolveStatus()
		t.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, "transfer_received", t); err != nil {
			logger.Warn(ctx, "audit record failed", "action", "transfer_received", "error", err)
		}
	}

	logger.Info(ctx, "transfer received",
		"transfer_id", t.ID,
		"transfer_number", t.TransferNumber,
		"status", t.Status)
	return t, nil
}

// Delete removes a transfer that is still pendente, crediting the
// debited quantities back to the origin. Settled or partially received
// transfers cannot be deleted.
func (s *Service) Delete(ctx context.Context, transferID id.ID) error {
	var t *Transfer
	err := tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}

		if t.Status != StatusPendente {
			return apperror.NewTransferNotPending(transferID.String(), string(t.Status))
		}
		if err := s.gate.CheckLocation(ctx, t.OriginLocationID); err != nil {
			return err
		}

		for _, item := range t.Items {
			if err := s.ledger.RestoreFromTransit(ctx, item.StockID, item.Quantity, t.TransferNumber, t.ID); err != nil {
				return err
			}
		}

		return s.repo.Delete(ctx, transferID)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, "transfer_deleted", t); err != nil {
			logger.Warn(ctx, "audit record failed", "action", "transfer_deleted", "error", err)
		}
	}

	logger.Info(ctx, "transfer deleted",
		"transfer_id", transferID,
		"transfer_number", t.TransferNumber)
	return nil
}

// GetByID returns a transfer after checking access to either endpoint.
func (s *Service) GetByID(ctx context.Context, transferID id.ID) (*Transfer, error) {
	t, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.CheckLocation(ctx, t.OriginLocationID); err != nil {
		if destErr := s.gate.CheckLocation(ctx, t.DestinationLocationID); destErr != nil {
			return nil, err
		}
	}
	return t, nil
}

// List returns transfers touching the caller's accessible locations.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Transfer, error) {
	ids, allowed, err := s.gate.AccessibleLocationIDs(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*Transfer{}, nil
	}
	if ids != nil {
		filter.LocationIDs = ids
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Count returns the number of transfers matching the filter within the
// caller's accessible locations.
func (s *Service) Count(ctx context.Context, filter Filter) (int64, error) {
	ids, allowed, err := s.gate.AccessibleLocationIDs(ctx)
	if err != nil {
		return 0, err
	}
	if !allowed {
		return 0, nil
	}
	if ids != nil {
		filter.LocationIDs = ids
	}
	return s.repo.Count(ctx, filter)
}
