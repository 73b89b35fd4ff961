package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almox/internal/core/apperror"
	appctx "almox/internal/core/context"
	"almox/internal/core/id"
	"almox/internal/core/numerator"
	"almox/internal/core/tenant"
	"almox/internal/core/types"
)

// --- Fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type pairKey struct {
	locationID id.ID
	productID  id.ID
}

type fakeRepo struct {
	stocks    map[id.ID]*Stock
	byPair    map[pairKey]id.ID
	movements []*Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stocks: make(map[id.ID]*Stock),
		byPair: make(map[pairKey]id.ID),
	}
}

func (r *fakeRepo) CreateStock(_ context.Context, stock *Stock) error {
	cp := *stock
	r.stocks[stock.ID] = &cp
	r.byPair[pairKey{stock.LocationID, stock.ProductID}] = stock.ID
	return nil
}

func (r *fakeRepo) UpdateStock(_ context.Context, stock *Stock) error {
	current, ok := r.stocks[stock.ID]
	if !ok {
		return apperror.NewNotFound("stock", stock.ID.String())
	}
	if current.Version != stock.Version {
		return apperror.NewConcurrentModification("stock", stock.ID.String())
	}
	stock.Version++
	cp := *stock
	r.stocks[stock.ID] = &cp
	return nil
}

func (r *fakeRepo) GetStock(_ context.Context, stockID id.ID) (*Stock, error) {
	stock, ok := r.stocks[stockID]
	if !ok {
		return nil, apperror.NewNotFound("stock", stockID.String())
	}
	cp := *stock
	return &cp, nil
}

func (r *fakeRepo) GetStockForUpdate(ctx context.Context, stockID id.ID) (*Stock, error) {
	return r.GetStock(ctx, stockID)
}

func (r *fakeRepo) GetByLocationProduct(_ context.Context, locationID, productID id.ID) (*Stock, error) {
	stockID, ok := r.byPair[pairKey{locationID, productID}]
	if !ok {
		return nil, apperror.NewNotFound("stock", locationID.String())
	}
	cp := *r.stocks[stockID]
	return &cp, nil
}

func (r *fakeRepo) GetByLocationProductForUpdate(ctx context.Context, locationID, productID id.ID) (*Stock, error) {
	return r.GetByLocationProduct(ctx, locationID, productID)
}

func (r *fakeRepo) ListStock(_ context.Context, filter StockFilter) ([]*Stock, error) {
	var out []*Stock
	for _, stock := range r.stocks {
		if len(filter.LocationIDs) > 0 && !containsID(filter.LocationIDs, stock.LocationID) {
			continue
		}
		cp := *stock
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) CountStock(ctx context.Context, filter StockFilter) (int64, error) {
	stocks, _ := r.ListStock(ctx, filter)
	return int64(len(stocks)), nil
}

func (r *fakeRepo) CreateMovement(_ context.Context, movement *Movement) error {
	cp := *movement
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *fakeRepo) ListMovements(_ context.Context, filter MovementFilter) ([]*Movement, error) {
	var out []*Movement
	for _, m := range r.movements {
		if filter.StockID != nil && m.StockID != *filter.StockID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) ListInvoiceEntries(_ context.Context, stockID id.ID) ([]*Movement, error) {
	var out []*Movement
	for _, m := range r.movements {
		if m.StockID != stockID || m.Type != MovementEntrada {
			continue
		}
		if m.ReferenceType != RefCompra || m.ReferenceID == nil {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

type openGate struct{}

func (openGate) CheckLocation(context.Context, id.ID) error { return nil }
func (openGate) AccessibleLocationIDs(context.Context) ([]id.ID, bool, error) {
	return nil, true, nil
}

type deniedGate struct{}

func (deniedGate) CheckLocation(context.Context, id.ID) error {
	return apperror.NewAccessDenied("location not in accessible set")
}
func (deniedGate) AccessibleLocationIDs(context.Context) ([]id.ID, bool, error) {
	return nil, false, nil
}

type locationSet map[id.ID]bool

func (l locationSet) IsActive(_ context.Context, locationID id.ID) (bool, error) {
	return l[locationID], nil
}

type auditRecorder struct {
	actions []string
}

func (a *auditRecorder) Record(_ context.Context, action string, _ any) error {
	a.actions = append(a.actions, action)
	return nil
}

// --- Helpers ---

func testCtx() context.Context {
	ctx := tenant.WithTxManager(context.Background(), fakeTxManager{})
	return appctx.WithUser(ctx, &appctx.UserContext{UserID: id.New().String()})
}

func newTestService(repo *fakeRepo, active locationSet) (*Service, *auditRecorder) {
	audit := &auditRecorder{}
	return NewService(repo, openGate{}, active, &numerator.MockGenerator{}, audit), audit
}

func seedStock(t *testing.T, repo *fakeRepo, locationID id.ID, available, reserved types.Quantity) *Stock {
	t.Helper()
	stock := NewStock(locationID, id.New())
	stock.Available = available
	stock.Reserved = reserved
	stock.Total = available + reserved
	require.NoError(t, repo.CreateStock(context.Background(), stock))
	return stock
}

// --- Tests ---

func TestEntry_CreatesStockLazily(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	productID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})

	stock, err := svc.Entry(testCtx(), EntryInput{
		LocationID: locationID,
		ProductID:  productID,
		Quantity:   types.NewQuantityFromInt(10),
	})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(10), stock.Available)
	assert.Equal(t, types.Quantity(0), stock.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(10), stock.Total)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, MovementEntrada, m.Type)
	assert.Equal(t, types.NewQuantityFromInt(10), m.AvailableDelta)
	assert.Equal(t, types.Quantity(0), m.TotalBefore)
	assert.Equal(t, types.NewQuantityFromInt(10), m.TotalAfter)
}

func TestEntry_RejectsInactiveLocation(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: false})

	_, err := svc.Entry(testCtx(), EntryInput{
		LocationID: locationID,
		ProductID:  id.New(),
		Quantity:   types.NewQuantityFromInt(1),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLocation))
}

func TestEntry_RequiresAuthenticatedUser(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})

	ctx := tenant.WithTxManager(context.Background(), fakeTxManager{})
	_, err := svc.Entry(ctx, EntryInput{
		LocationID: locationID,
		ProductID:  id.New(),
		Quantity:   types.NewQuantityFromInt(1),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestReserve_MovesAvailableToReserved(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(10), 0)

	updated, err := svc.Reserve(testCtx(), stock.ID, types.NewQuantityFromInt(4), MovementInput{})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(6), updated.Available)
	assert.Equal(t, types.NewQuantityFromInt(4), updated.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(10), updated.Total)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, MovementAjuste, m.Type)
	assert.Equal(t, RefSolicitacao, m.ReferenceType)
	assert.Equal(t, m.TotalBefore, m.TotalAfter)
}

func TestReserve_InsufficientAvailable(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(5), 0)

	_, err := svc.Reserve(testCtx(), stock.ID, types.NewQuantityFromInt(10), MovementInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientAvailable))

	// Balance untouched and no movement written.
	current, _ := repo.GetStock(context.Background(), stock.ID)
	assert.Equal(t, types.NewQuantityFromInt(5), current.Available)
	assert.Empty(t, repo.movements)
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(10), 0)
	ctx := testCtx()

	_, err := svc.Reserve(ctx, stock.ID, types.NewQuantityFromInt(4), MovementInput{})
	require.NoError(t, err)

	released, err := svc.Release(ctx, stock.ID, types.NewQuantityFromInt(4), MovementInput{})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(10), released.Available)
	assert.Equal(t, types.Quantity(0), released.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(10), released.Total)
}

func TestCancelReservation_RequiresReason(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(10), types.NewQuantityFromInt(4))

	_, err := svc.CancelReservation(testCtx(), stock.ID, types.NewQuantityFromInt(4), "short")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCancelReservation_RecordsAudit(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, audit := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, 0, types.NewQuantityFromInt(4))

	updated, err := svc.CancelReservation(testCtx(), stock.ID, types.NewQuantityFromInt(4), "item no longer needed at this site")
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(4), updated.Available)
	assert.Equal(t, types.Quantity(0), updated.Reserved)
	assert.Contains(t, audit.actions, "reservation_cancelled")

	require.Len(t, repo.movements, 1)
	assert.Equal(t, RefAjusteManual, repo.movements[0].ReferenceType)
}

func TestExit_ConsumesReserved(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(6), types.NewQuantityFromInt(4))

	updated, err := svc.Exit(testCtx(), stock.ID, types.NewQuantityFromInt(3), MovementInput{})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(6), updated.Available)
	assert.Equal(t, types.NewQuantityFromInt(1), updated.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(7), updated.Total)

	m := repo.movements[0]
	assert.Equal(t, MovementSaida, m.Type)
	assert.Equal(t, types.NewQuantityFromInt(-3), m.ReservedDelta)
	assert.Equal(t, types.NewQuantityFromInt(10), m.TotalBefore)
	assert.Equal(t, types.NewQuantityFromInt(7), m.TotalAfter)
}

func TestExit_RejectsMoreThanReserved(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(100), types.NewQuantityFromInt(2))

	_, err := svc.Exit(testCtx(), stock.ID, types.NewQuantityFromInt(3), MovementInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientReserved))
}

func TestAdjust_NegativeBeyondAvailable(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(2), 0)

	_, err := svc.Adjust(testCtx(), stock.ID, types.NewQuantityFromInt(-5), "inventory recount correction")
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientAvailable))
}

func TestDirectTransfer_ConservesTotal(t *testing.T) {
	repo := newFakeRepo()
	originLoc := id.New()
	destLoc := id.New()
	svc, _ := newTestService(repo, locationSet{originLoc: true, destLoc: true})
	origin := seedStock(t, repo, originLoc, types.NewQuantityFromInt(10), 0)

	originAfter, destAfter, err := svc.TransferDirect(testCtx(), DirectTransferInput{
		StockID:               origin.ID,
		DestinationLocationID: destLoc,
		Quantity:              types.NewQuantityFromInt(4),
	})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(6), originAfter.Total)
	assert.Equal(t, types.NewQuantityFromInt(4), destAfter.Total)
	assert.Equal(t, origin.ProductID, destAfter.ProductID)

	// Combined quantity is conserved across the pair.
	assert.Equal(t, types.NewQuantityFromInt(10), originAfter.Total+destAfter.Total)

	require.Len(t, repo.movements, 2)
	require.NotNil(t, repo.movements[0].TransferNumber)
	require.NotNil(t, repo.movements[1].TransferNumber)
	assert.Equal(t, *repo.movements[0].TransferNumber, *repo.movements[1].TransferNumber)
	assert.True(t, strings.HasPrefix(*repo.movements[0].TransferNumber, TransferNumberPrefix+"-"))
	assert.Contains(t, repo.movements[0].Observation, "Origem")
	assert.Contains(t, repo.movements[1].Observation, "Destino")
}

func TestDirectTransfer_SameLocationRejected(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	origin := seedStock(t, repo, locationID, types.NewQuantityFromInt(10), 0)

	_, _, err := svc.TransferDirect(testCtx(), DirectTransferInput{
		StockID:               origin.ID,
		DestinationLocationID: locationID,
		Quantity:              types.NewQuantityFromInt(1),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLocation))
}

func TestTransferReserved_MovesReservedBucket(t *testing.T) {
	repo := newFakeRepo()
	originLoc := id.New()
	destLoc := id.New()
	svc, _ := newTestService(repo, locationSet{originLoc: true, destLoc: true})
	origin := seedStock(t, repo, originLoc, 0, types.NewQuantityFromInt(5))

	originAfter, destAfter, err := svc.TransferReserved(testCtx(), DirectTransferInput{
		StockID:               origin.ID,
		DestinationLocationID: destLoc,
		Quantity:              types.NewQuantityFromInt(5),
	})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), originAfter.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(5), destAfter.Reserved)
	assert.Equal(t, types.Quantity(0), destAfter.Available)
}

func TestStagedHooks_DebitAndRestore(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	stock := seedStock(t, repo, locationID, types.NewQuantityFromInt(10), 0)
	ctx := testCtx()

	before, err := svc.DebitInTransit(ctx, stock.ID, types.NewQuantityFromInt(4), "TRF-2026-00001", id.New())
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(10), before)

	current, _ := repo.GetStock(ctx, stock.ID)
	assert.Equal(t, types.NewQuantityFromInt(6), current.Available)
	assert.Equal(t, types.NewQuantityFromInt(6), current.Total)

	err = svc.RestoreFromTransit(ctx, stock.ID, types.NewQuantityFromInt(4), "TRF-2026-00001", id.New())
	require.NoError(t, err)

	current, _ = repo.GetStock(ctx, stock.ID)
	assert.Equal(t, types.NewQuantityFromInt(10), current.Available)
	assert.Equal(t, types.NewQuantityFromInt(10), current.Total)
}

func TestCheckConsistency_ReplayMatchesBalance(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	productID := id.New()
	svc, _ := newTestService(repo, locationSet{locationID: true})
	ctx := testCtx()

	stock, err := svc.Entry(ctx, EntryInput{
		LocationID: locationID,
		ProductID:  productID,
		Quantity:   types.NewQuantityFromInt(10),
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, stock.ID, types.NewQuantityFromInt(4), MovementInput{})
	require.NoError(t, err)
	_, err = svc.Exit(ctx, stock.ID, types.NewQuantityFromInt(2), MovementInput{})
	require.NoError(t, err)

	assert.NoError(t, svc.CheckConsistency(ctx, stock.ID))

	// Tamper with the stored balance; replay must now diverge.
	tampered := repo.stocks[stock.ID]
	tampered.Available += types.NewQuantityFromInt(1)
	tampered.Total += types.NewQuantityFromInt(1)

	err = svc.CheckConsistency(ctx, stock.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestListStock_DeniedScopeShortCircuits(t *testing.T) {
	repo := newFakeRepo()
	locationID := id.New()
	seedStock(t, repo, locationID, types.NewQuantityFromInt(10), 0)

	svc := NewService(repo, deniedGate{}, locationSet{locationID: true}, &numerator.MockGenerator{}, nil)

	stocks, err := svc.ListStock(testCtx(), StockFilter{})
	require.NoError(t, err)
	assert.Empty(t, stocks)

	movements, err := svc.ListMovements(testCtx(), MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestReplay_FoldsDeltas(t *testing.T) {
	movements := []*Movement{
		{AvailableDelta: types.NewQuantityFromInt(10)},
		{AvailableDelta: types.NewQuantityFromInt(-4), ReservedDelta: types.NewQuantityFromInt(4)},
		{ReservedDelta: types.NewQuantityFromInt(-2)},
	}

	available, reserved, total := Replay(movements)
	assert.Equal(t, types.NewQuantityFromInt(6), available)
	assert.Equal(t, types.NewQuantityFromInt(2), reserved)
	assert.Equal(t, types.NewQuantityFromInt(8), total)
}

func TestStock_CheckInvariant(t *testing.T) {
	stock := NewStock(id.New(), id.New())
	stock.Available = types.NewQuantityFromInt(3)
	stock.Reserved = types.NewQuantityFromInt(2)
	stock.Total = types.NewQuantityFromInt(5)
	assert.NoError(t, stock.CheckInvariant())

	stock.Total = types.NewQuantityFromInt(6)
	assert.Error(t, stock.CheckInvariant())

	stock.Available = types.NewQuantityFromInt(-1)
	stock.Total = stock.Available + stock.Reserved
	assert.Error(t, stock.CheckInvariant())
}
