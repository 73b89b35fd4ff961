package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"almox/internal/core/apperror"
	appctx "almox/internal/core/context"
	"almox/internal/core/id"
	"almox/internal/core/numerator"
	"almox/internal/core/tenant"
	"almox/internal/core/types"
	"almox/pkg/logger"
)

// AccessGate authorizes ledger operations against locations.
type AccessGate interface {
	// CheckLocation verifies the caller may act on the location.
	CheckLocation(ctx context.Context, locationID id.ID) error

	// AccessibleLocationIDs returns the caller's location filter.
	// nil ids with allowed=true means unrestricted; allowed=false means
	// queries must return zero rows.
	AccessibleLocationIDs(ctx context.Context) (ids []id.ID, allowed bool, err error)
}

// LocationReader answers whether a location exists and is active.
type LocationReader interface {
	IsActive(ctx context.Context, locationID id.ID) (bool, error)
}

// AuditTrail records sensitive ledger actions for later inspection.
// Implementations must not participate in the surrounding transaction.
type AuditTrail interface {
	Record(ctx context.Context, action string, payload any) error
}

// Service implements the stock ledger operations. Every balance change
// runs inside one transaction: lock the Stock row, mutate the counters,
// append the Movement, commit or roll back as a whole.
type Service struct {
	repo      Repository
	gate      AccessGate
	locations LocationReader
	numbers   numerator.Generator
	audit     AuditTrail
}

// NewService creates a ledger service.
func NewService(
	repo Repository,
	gate AccessGate,
	locations LocationReader,
	numbers numerator.Generator,
	audit AuditTrail,
) *Service {
	return &Service{
		repo:      repo,
		gate:      gate,
		locations: locations,
		numbers:   numbers,
		audit:     audit,
	}
}

// TransferNumberPrefix is the sequence prefix shared by direct and
// staged transfers: both draw from the same counter space, so a TRF
// number is unique across the two paths.
const TransferNumberPrefix = "TRF"

// MovementInput carries the caller-supplied metadata of one movement.
type MovementInput struct {
	ReferenceType ReferenceType
	ReferenceID   *id.ID
	Observation   string
	MovementDate  time.Time
	UnitCost      *types.Money
}

// EntryInput describes an incoming quantity (entrada).
type EntryInput struct {
	LocationID id.ID
	ProductID  id.ID
	Quantity   types.Quantity
	MovementInput
}

// Entry books incoming stock, creating the balance row lazily on the
// first entrada for a product-location pair.
func (s *Service) Entry(ctx context.Context, input EntryInput) (*Stock, error) {
	if !input.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}
	if err := s.gate.CheckLocation(ctx, input.LocationID); err != nil {
		return nil, err
	}

	active, err := s.locations.IsActive(ctx, input.LocationID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperror.NewInvalidLocation(input.LocationID.String(), "location is not active")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var stock *Stock
	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		stock, err = s.lockOrCreateStock(ctx, input.LocationID, input.ProductID)
		if err != nil {
			return err
		}

		totalBefore := stock.Total
		stock.Available += input.Quantity

		m := s.newMovement(stock, MovementEntrada, input.Quantity, input.MovementInput, userID)
		m.AvailableDelta = input.Quantity
		m.TotalBefore = totalBefore
		m.TotalAfter = totalBefore + input.Quantity

		return s.commitChange(ctx, stock, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock entry booked",
		"stock_id", stock.ID,
		"location_id", input.LocationID,
		"product_id", input.ProductID,
		"quantity", input.Quantity)
	return stock, nil
}

// Reserve moves quantity from available to reserved on one stock row.
func (s *Service) Reserve(ctx context.Context, stockID id.ID, qty types.Quantity, input MovementInput) (*Stock, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var stock *Stock
	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		stock, err = s.lockAndAuthorize(ctx, stockID)
		if err != nil {
			return err
		}

		if qty > stock.Available {
			return apperror.NewInsufficientAvailable(stockID.String(), qty.String(), stock.Available.String())
		}

		stock.Available -= qty
		stock.Reserved += qty

		if input.ReferenceType == "" {
			input.ReferenceType = RefSolicitacao
		}
		m := s.newMovement(stock, MovementAjuste, qty, input, userID)
		m.AvailableDelta = -qty
		m.ReservedDelta = qty
		m.TotalBefore = stock.Total
		m.TotalAfter = stock.Total

		return s.commitChange(ctx, stock, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock reserved", "stock_id", stockID, "quantity", qty)
	return stock, nil
}

// Release moves quantity back from reserved to available.
func (s *Service) Release(ctx context.Context, stockID id.ID, qty types.Quantity, input MovementInput) (*Stock, error) {
	return s.release(ctx, stockID, qty, input, false)
}

// CancelReservation releases a reservation on an exception path (item no
// longer needed or available). Unlike Release it mandates a reason, which
// is persisted in the movement and written to the audit trail.
func (s *Service) CancelReservation(ctx context.Context, stockID id.ID, qty types.Quantity, reason string) (*Stock, error) {
	if len(strings.TrimSpace(reason)) < 10 {
		return nil, apperror.NewValidation("cancellation reason must have at least 10 characters").
			WithDetail("field", "reason")
	}

	stock, err := s.release(ctx, stockID, qty, MovementInput{
		ReferenceType: RefAjusteManual,
		Observation:   reason,
	}, true)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, "reservation_cancelled", map[string]any{
			"stock_id": stockID.String(),
			"quantity": qty.String(),
			"reason":   reason,
		}); err != nil {
			logger.Warn(ctx, "audit record failed", "action", "reservation_cancelled", "error", err)
		}
	}

	return stock, nil
}

func (s *Service) release(ctx context.Context, stockID id.ID, qty types.Quantity, input MovementInput, cancellation bool) (*Stock, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var stock *Stock
	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		stock, err = s.lockAndAuthorize(ctx, stockID)
		if err != nil {
			return err
		}

		if qty > stock.Reserved {
			return apperror.NewInsufficientReserved(stockID.String(), qty.String(), stock.Reserved.String())
		}

		stock.Reserved -= qty
		stock.Available += qty

		if input.ReferenceType == "" {
			input.ReferenceType = RefSolicitacao
		}
		m := s.newMovement(stock, MovementAjuste, qty, input, userID)
		m.AvailableDelta = qty
		m.ReservedDelta = -qty
		m.TotalBefore = stock.Total
		m.TotalAfter = stock.Total

		return s.commitChange(ctx, stock, m)
	})
	if err != nil {
		return nil, err
	}

	action := "reservation released"
	if cancellation {
		action = "reservation cancelled"
	}
	logger.Info(ctx, action, "stock_id", stockID, "quantity", qty)
	return stock, nil
}

// Exit consumes reserved quantity permanently. The goods leave the
// building; both reserved and total decrease.
func (s *Service) Exit(ctx context.Context, stockID id.ID, qty types.Quantity, input MovementInput) (*Stock, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var stock *Stock
	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		stock, err = s.lockAndAuthorize(ctx, stockID)
		if err != nil {
			return err
		}

		if qty > stock.Reserved {
			return apperror.NewInsufficientReserved(stockID.String(), qty.String(), stock.Reserved.String())
		}

		totalBefore := stock.Total
		stock.Reserved -= qty

		m := s.newMovement(stock, MovementSaida, qty, input, userID)
		m.ReservedDelta = -qty
		m.TotalBefore = totalBefore
		m.TotalAfter = totalBefore - qty

		return s.commitChange(ctx, stock, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock exit", "stock_id", stockID, "quantity", qty)
	return stock, nil
}

// Adjust corrects a balance manually. Positive quantity adds to
// available, negative removes from it. Requires a reason.
func (s *Service) Adjust(ctx context.Context, stockID id.ID, qty types.Quantity, reason string) (*Stock, error) {
	if qty.IsZero() {
		return nil, apperror.NewValidation("adjustment quantity must not be zero")
	}
	if len(strings.TrimSpace(reason)) < 10 {
		return nil, apperror.NewValidation("adjustment reason must have at least 10 characters").
			WithDetail("field", "reason")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var stock *Stock
	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		stock, err = s.lockAndAuthorize(ctx, stockID)
		if err != nil {
			return err
		}

		if qty.IsNegative() && qty.Abs() > stock.Available {
			return apperror.NewInsufficientAvailable(stockID.String(), qty.Abs().String(), stock.Available.String())
		}

		totalBefore := stock.Total
		stock.Available += qty

		m := s.newMovement(stock, MovementAjuste, qty.Abs(), MovementInput{
			ReferenceType: RefAjusteManual,
			Observation:   reason,
		}, userID)
		m.AvailableDelta = qty
		m.TotalBefore = totalBefore
		m.TotalAfter = totalBefore + qty

		return s.commitChange(ctx, stock, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted", "stock_id", stockID, "quantity", qty)
	return stock, nil
}

// DirectTransferInput describes a synchronous transfer between two rows.
type DirectTransferInput struct {
	StockID               id.ID
	DestinationLocationID id.ID
	Quantity              types.Quantity
	Observation           string
	MovementDate          time.Time
}

// TransferDirect moves available quantity between two locations in one
// call. The destination is credited immediately into its available
// bucket; there is no receiving step.
func (s *Service) TransferDirect(ctx context.Context, input DirectTransferInput) (*Stock, *Stock, error) {
	return s.directTransfer(ctx, input, false)
}

// TransferReserved moves reserved quantity between two locations,
// crediting the destination's reserved bucket so the goods stay
// earmarked across the move. Used when reserved items exit one site and
// remain committed at the next.
func (s *Service) TransferReserved(ctx context.Context, input DirectTransferInput) (*Stock, *Stock, error) {
	return s.directTransfer(ctx, input, true)
}

func (s *Service) directTransfer(ctx context.Context, input DirectTransferInput, fromReserved bool) (origin, destination *Stock, err error) {
	if !input.Quantity.IsPositive() {
		return nil, nil, apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, nil, err
	}

	err = tenant.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
		origin, err = s.repo.GetStockForUpdate(ctx, input.StockID)
		if err != nil {
			return err
		}

		if origin.LocationID == input.DestinationLocationID {
			return apperror.NewInvalidLocation(input.DestinationLocationID.String(), "origin and destination must differ")
		}
		if err := s.gate.CheckLocation(ctx, origin.LocationID); err != nil {
			return err
		}
		if err := s.gate.CheckLocation(ctx, input.DestinationLocationID); err != nil {
			return err
		}

		active, err := s.locations.IsActive(ctx, input.DestinationLocationID)
		if err != nil {
			return err
		}
		if !active {
			return apperror.NewInvalidLocation(input.DestinationLocationID.String(), "destination location is not active")
		}

		if fromReserved {
			if input.Quantity > origin.Reserved {
				return apperror.NewInsufficientReserved(origin.ID.String(), input.Quantity.String(), origin.Reserved.String())
			}
		} else {
			if input.Quantity > origin.Available {
				return apperror.NewInsufficientAvailable(origin.ID.String(), input.Quantity.String(), origin.Available.String())
			}
		}

		// Crossed concurrent transfers lock the same two rows in opposite
		// order; Postgres aborts one with a deadlock error and the caller
		// retries.
		destination, err = s.lockOrCreateStock(ctx, input.DestinationLocationID, origin.ProductID)
		if err != nil {
			return err
		}

		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(TransferNumberPrefix), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("generate transfer number: %w", err)
		}

		originBefore := origin.Total
		destBefore := destination.Total
		if fromReserved {
			origin.Reserved -= input.Quantity
			destination.Reserved += input.Quantity
		} else {
			origin.Available -= input.Quantity
			destination.Available += input.Quantity
		}

		meta := MovementInput{
			ReferenceType: RefTransferencia,
			MovementDate:  input.MovementDate,
		}

		originMove := s.newMovement(origin, MovementTransferencia, input.Quantity, meta, userID)
		originMove.TransferNumber = &number
		originMove.Observation = transferObservation(input.Observation, "Origem")
		originMove.TotalBefore = originBefore
		originMove.TotalAfter = originBefore - input.Quantity
		if fromReserved {
			originMove.ReservedDelta = -input.Quantity
		} else {
			originMove.AvailableDelta = -input.Quantity
		}

		destMove := s.newMovement(destination, MovementTransferencia, input.Quantity, meta, userID)
		destMove.TransferNumber = &number
		destMove.Observation = transferObservation(input.Observation, "Destino")
		destMove.TotalBefore = destBefore
		destMove.TotalAfter = destBefore + input.Quantity
		if fromReserved {
			destMove.ReservedDelta = input.Quantity
		} else {
			destMove.AvailableDelta = input.Quantity
		}

		if err := s.commitChange(ctx, origin, originMove); err != nil {
			return err
		}
		return s.commitChange(ctx, destination, destMove)
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "direct transfer completed",
		"origin_stock_id", origin.ID,
		"destination_stock_id", destination.ID,
		"quantity", input.Quantity,
		"from_reserved", fromReserved)
	return origin, destination, nil
}

// --- Staged transfer hooks ---
//
// The staged transfer service runs a multi-row lifecycle; these methods
// execute its per-item ledger effects inside the caller's transaction.

// DebitInTransit removes quantity from a stock's available and total at
// staged-transfer creation. Returns the available balance before the
// debit, snapshotted on the transfer item.
func (s *Service) DebitInTransit(ctx context.Context, stockID id.ID, qty types.Quantity, transferNumber string, referenceID id.ID) (types.Quantity, error) {
	if !qty.IsPositive() {
		return 0, apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return 0, err
	}

	stock, err := s.repo.GetStockForUpdate(ctx, stockID)
	if err != nil {
		return 0, err
	}

	if qty > stock.Available {
		return 0, apperror.NewInsufficientAvailable(stockID.String(), qty.String(), stock.Available.String())
	}

	availableBefore := stock.Available
	totalBefore := stock.Total
	stock.Available -= qty

	m := s.newMovement(stock, MovementTransferencia, qty, MovementInput{
		ReferenceType: RefTransferencia,
		ReferenceID:   &referenceID,
	}, userID)
	m.TransferNumber = &transferNumber
	m.Observation = "Transferência - Origem"
	m.AvailableDelta = -qty
	m.TotalBefore = totalBefore
	m.TotalAfter = totalBefore - qty

	if err := s.commitChange(ctx, stock, m); err != nil {
		return 0, err
	}
	return availableBefore, nil
}

// CreditReceived books received quantity into the destination stock,
// creating the row if the product never existed at that location.
func (s *Service) CreditReceived(ctx context.Context, locationID, productID id.ID, qty types.Quantity, transferNumber string, referenceID id.ID) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return err
	}

	stock, err := s.lockOrCreateStock(ctx, locationID, productID)
	if err != nil {
		return err
	}

	totalBefore := stock.Total
	stock.Available += qty

	m := s.newMovement(stock, MovementTransferencia, qty, MovementInput{
		ReferenceType: RefTransferencia,
		ReferenceID:   &referenceID,
	}, userID)
	m.TransferNumber = &transferNumber
	m.Observation = "Transferência - Destino"
	m.AvailableDelta = qty
	m.TotalBefore = totalBefore
	m.TotalAfter = totalBefore + qty

	return s.commitChange(ctx, stock, m)
}

// RestoreFromTransit reverses an in-transit debit when a pending staged
// transfer is deleted.
func (s *Service) RestoreFromTransit(ctx context.Context, stockID id.ID, qty types.Quantity, transferNumber string, referenceID id.ID) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return err
	}

	stock, err := s.repo.GetStockForUpdate(ctx, stockID)
	if err != nil {
		return err
	}

	totalBefore := stock.Total
	stock.Available += qty

	m := s.newMovement(stock, MovementTransferencia, qty, MovementInput{
		ReferenceType: RefTransferencia,
		ReferenceID:   &referenceID,
	}, userID)
	m.TransferNumber = &transferNumber
	m.Observation = "Transferência cancelada - Estorno"
	m.AvailableDelta = qty
	m.TotalBefore = totalBefore
	m.TotalAfter = totalBefore + qty

	return s.commitChange(ctx, stock, m)
}

// --- Queries ---

// GetStock returns a balance row after checking location access.
func (s *Service) GetStock(ctx context.Context, stockID id.ID) (*Stock, error) {
	stock, err := s.repo.GetStock(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckLocation(ctx, stock.LocationID); err != nil {
		return nil, err
	}
	return stock, nil
}

// ListStock returns balances restricted to the caller's accessible
// locations. An empty accessible set short-circuits to zero rows.
func (s *Service) ListStock(ctx context.Context, filter StockFilter) ([]*Stock, error) {
	ids, allowed, err := s.gate.AccessibleLocationIDs(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*Stock{}, nil
	}
	if ids != nil {
		filter.LocationIDs = intersectLocations(filter.LocationIDs, ids)
		if len(filter.LocationIDs) == 0 {
			return []*Stock{}, nil
		}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListStock(ctx, filter)
}

// ListMovements returns movement history restricted to accessible
// locations, in creation order.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]*Movement, error) {
	ids, allowed, err := s.gate.AccessibleLocationIDs(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*Movement{}, nil
	}
	if ids != nil {
		filter.LocationIDs = intersectLocations(filter.LocationIDs, ids)
		if len(filter.LocationIDs) == 0 {
			return []*Movement{}, nil
		}
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 200
	}
	return s.repo.ListMovements(ctx, filter)
}

// CheckConsistency replays a stock's full movement history and compares
// the result with the stored balance. Maintenance/diagnostic helper.
func (s *Service) CheckConsistency(ctx context.Context, stockID id.ID) error {
	stock, err := s.GetStock(ctx, stockID)
	if err != nil {
		return err
	}

	movements, err := s.repo.ListMovements(ctx, MovementFilter{StockID: &stockID})
	if err != nil {
		return err
	}

	available, reserved, total := Replay(movements)
	if available != stock.Available || reserved != stock.Reserved || total != stock.Total {
		return apperror.NewConflict("stock balance diverges from movement history").
			WithDetail("stock_id", stockID.String()).
			WithDetail("stored_available", stock.Available.String()).
			WithDetail("replayed_available", available.String()).
			WithDetail("stored_reserved", stock.Reserved.String()).
			WithDetail("replayed_reserved", reserved.String())
	}
	return nil
}

// --- Internals ---

func (s *Service) currentUserID(ctx context.Context) (id.ID, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return id.Nil(), apperror.NewUnauthorized("no authenticated user")
	}
	userID, err := id.Parse(user.UserID)
	if err != nil {
		return id.Nil(), apperror.NewUnauthorized("invalid user id in token")
	}
	return userID, nil
}

// lockAndAuthorize loads a stock row under a row lock and verifies the
// caller may act on its location.
func (s *Service) lockAndAuthorize(ctx context.Context, stockID id.ID) (*Stock, error) {
	stock, err := s.repo.GetStockForUpdate(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckLocation(ctx, stock.LocationID); err != nil {
		return nil, err
	}
	return stock, nil
}

// lockOrCreateStock returns the locked balance row for the pair,
// creating an empty one when the product never existed at the location.
func (s *Service) lockOrCreateStock(ctx context.Context, locationID, productID id.ID) (*Stock, error) {
	stock, err := s.repo.GetByLocationProductForUpdate(ctx, locationID, productID)
	if err == nil {
		return stock, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	stock = NewStock(locationID, productID)
	if err := s.repo.CreateStock(ctx, stock); err != nil {
		return nil, err
	}
	// Re-read under lock so a concurrent creator loses cleanly.
	return s.repo.GetByLocationProductForUpdate(ctx, locationID, productID)
}

func (s *Service) newMovement(stock *Stock, movementType MovementType, qty types.Quantity, input MovementInput, userID id.ID) *Movement {
	now := time.Now().UTC()
	movementDate := input.MovementDate
	if movementDate.IsZero() {
		movementDate = now
	}
	refType := input.ReferenceType
	if refType == "" {
		refType = RefOutro
	}

	m := &Movement{
		ID:            id.New(),
		StockID:       stock.ID,
		Type:          movementType,
		Quantity:      qty,
		ReferenceType: refType,
		ReferenceID:   input.ReferenceID,
		Observation:   input.Observation,
		UserID:        userID,
		MovementDate:  movementDate,
		CreatedAt:     now,
	}

	if input.UnitCost != nil {
		m.UnitCost = input.UnitCost
		totalCost := input.UnitCost.Mul(qty.Decimal())
		m.TotalCost = &totalCost
	}
	return m
}

// commitChange persists a mutated balance and its movement as one step.
func (s *Service) commitChange(ctx context.Context, stock *Stock, m *Movement) error {
	now := time.Now().UTC()
	stock.Total = stock.Available + stock.Reserved
	stock.LastMovementAt = &now
	stock.UpdatedAt = now

	if err := stock.CheckInvariant(); err != nil {
		return err
	}
	if err := s.repo.UpdateStock(ctx, stock); err != nil {
		return err
	}
	return s.repo.CreateMovement(ctx, m)
}

func transferObservation(userObservation, side string) string {
	if userObservation == "" {
		return "Transferência - " + side
	}
	return fmt.Sprintf("Transferência - %s: %s", side, userObservation)
}

func intersectLocations(requested, accessible []id.ID) []id.ID {
	if len(requested) == 0 {
		return accessible
	}
	allowed := make(map[id.ID]struct{}, len(accessible))
	for _, lid := range accessible {
		allowed[lid] = struct{}{}
	}
	out := make([]id.ID, 0, len(requested))
	for _, lid := range requested {
		if _, ok := allowed[lid]; ok {
			out = append(out, lid)
		}
	}
	return out
}
