package transfer

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
	"almox/internal/domain/ledger"
)

// --- Fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type creditKey struct {
	locationID id.ID
	productID  id.ID
}

type fakeLedger struct {
	stocks   map[id.ID]*ledger.Stock
	credited map[creditKey]types.Quantity
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		stocks:   make(map[id.ID]*ledger.Stock),
		credited: make(map[creditKey]types.Quantity),
	}
}

func (l *fakeLedger) addStock(locationID id.ID, available types.Quantity) *ledger.Stock {
	stock := ledger.NewStock(locationID, id.New())
	stock.Available = available
	stock.Total = available
	l.stocks[stock.ID] = stock
	return stock
}

func (l *fakeLedger) GetStock(_ context.Context, stockID id.ID) (*ledger.Stock, error) {
	stock, ok := l.stocks[stockID]
	if !ok {
		return nil, apperror.NewNotFound("stock", stockID.String())
	}
	cp := *stock
	return &cp, nil
}

func (l *fakeLedger) DebitInTransit(_ context.Context, stockID id.ID, qty types.Quantity, _ string, _ id.ID) (types.Quantity, error) {
	stock, ok := l.stocks[stockID]
	if !ok {
		return 0, apperror.NewNotFound("stock", stockID.String())
	}
	if qty > stock.Available {
		return 0, apperror.NewInsufficientAvailable(stockID.String(), qty.String(), stock.Available.String())
	}
	before := stock.Available
	stock.Available -= qty
	stock.Total = stock.Available + stock.Reserved
	return before, nil
}

func (l *fakeLedger) CreditReceived(_ context.Context, locationID, productID id.ID, qty types.Quantity, _ string, _ id.ID) error {
	l.credited[creditKey{locationID, productID}] += qty
	return nil
}

func (l *fakeLedger) RestoreFromTransit(_ context.Context, stockID id.ID, qty types.Quantity, _ string, _ id.ID) error {
	stock, ok := l.stocks[stockID]
	if !ok {
		return apperror.NewNotFound("stock", stockID.String())
	}
	stock.Available += qty
	stock.Total = stock.Available + stock.Reserved
	return nil
}

type fakeRepo struct {
	transfers map[id.ID]*Transfer
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{transfers: make(map[id.ID]*Transfer)}
}

func (r *fakeRepo) Create(_ context.Context, t *Transfer) error {
	r.transfers[t.ID] = t
	return nil
}

func (r *fakeRepo) Update(_ context.Context, t *Transfer) error {
	if _, ok := r.transfers[t.ID]; !ok {
		return apperror.NewNotFound("transfer", t.ID.String())
	}
	r.transfers[t.ID] = t
	return nil
}

func (r *fakeRepo) UpdateItem(context.Context, *Item) error { return nil }

func (r *fakeRepo) GetByID(_ context.Context, transferID id.ID) (*Transfer, error) {
	t, ok := r.transfers[transferID]
	if !ok {
		return nil, apperror.NewNotFound("transfer", transferID.String())
	}
	return t, nil
}

func (r *fakeRepo) GetByIDForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return r.GetByID(ctx, transferID)
}

func (r *fakeRepo) Delete(_ context.Context, transferID id.ID) error {
	delete(r.transfers, transferID)
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ Filter) ([]*Transfer, error) {
	var out []*Transfer
	for _, t := range r.transfers {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeRepo) Count(_ context.Context, _ Filter) (int64, error) {
	return int64(len(r.transfers)), nil
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

type fixture struct {
	svc    *Service
	repo   *fakeRepo
	ledger *fakeLedger
	audit  *auditRecorder
}

func newFixture(active locationSet) *fixture {
	repo := newFakeRepo()
	stockLedger := newFakeLedger()
	audit := &auditRecorder{}
	svc := NewService(repo, stockLedger, openGate{}, active, &numerator.MockGenerator{}, audit)
	return &fixture{svc: svc, repo: repo, ledger: stockLedger, audit: audit}
}

func createPending(t *testing.T, f *fixture, origin, destination id.ID, qty types.Quantity) (*Transfer, *ledger.Stock) {
	t.Helper()
	stock := f.ledger.addStock(origin, types.NewQuantityFromInt(10))

	created, err := f.svc.Create(testCtx(), CreateInput{
		OriginLocationID:      origin,
		DestinationLocationID: destination,
		Items:                 []ItemInput{{StockID: stock.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return created, stock
}

// --- Tests ---

func TestCreate_DebitsOriginAndSnapshotsBalance(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})

	created, stock := createPending(t, f, origin, destination, types.NewQuantityFromInt(4))

	assert.Equal(t, StatusPendente, created.Status)
	// Staged transfers number from the same TRF sequence as direct ones.
	assert.True(t, strings.HasPrefix(created.TransferNumber, ledger.TransferNumberPrefix+"-"))

	require.Len(t, created.Items, 1)
	item := created.Items[0]
	assert.Equal(t, stock.ProductID, item.ProductID)
	assert.Equal(t, types.NewQuantityFromInt(10), item.QuantityAvailableBefore)
	assert.Nil(t, item.QuantityReceived)

	// Origin debited immediately; nothing credited yet.
	assert.Equal(t, types.NewQuantityFromInt(6), f.ledger.stocks[stock.ID].Available)
	assert.Empty(t, f.ledger.credited)
}

func TestCreate_RejectsItemFromAnotherLocation(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})

	elsewhere := f.ledger.addStock(id.New(), types.NewQuantityFromInt(10))

	_, err := f.svc.Create(testCtx(), CreateInput{
		OriginLocationID:      origin,
		DestinationLocationID: destination,
		Items:                 []ItemInput{{StockID: elsewhere.ID, Quantity: types.NewQuantityFromInt(1)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCreate_RejectsSameOriginAndDestination(t *testing.T) {
	locationID := id.New()
	f := newFixture(locationSet{locationID: true})
	stock := f.ledger.addStock(locationID, types.NewQuantityFromInt(10))

	_, err := f.svc.Create(testCtx(), CreateInput{
		OriginLocationID:      locationID,
		DestinationLocationID: locationID,
		Items:                 []ItemInput{{StockID: stock.ID, Quantity: types.NewQuantityFromInt(1)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLocation))
}

func TestCreate_InsufficientAvailableRollsBack(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})
	stock := f.ledger.addStock(origin, types.NewQuantityFromInt(3))

	_, err := f.svc.Create(testCtx(), CreateInput{
		OriginLocationID:      origin,
		DestinationLocationID: destination,
		Items:                 []ItemInput{{StockID: stock.ID, Quantity: types.NewQuantityFromInt(5)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientAvailable))
	assert.Empty(t, f.repo.transfers)
}

func TestReceive_PartialThenFull(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})
	created, stock := createPending(t, f, origin, destination, types.NewQuantityFromInt(4))
	itemID := created.Items[0].ID
	ctx := testCtx()

	partial, err := f.svc.Receive(ctx, created.ID, []ReceiveItemInput{
		{ItemID: itemID, Quantity: types.NewQuantityFromInt(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRecebidoParcial, partial.Status)
	assert.Equal(t, types.NewQuantityFromInt(3), partial.Items[0].Received())
	assert.Equal(t, types.NewQuantityFromInt(1), partial.Items[0].Outstanding())

	full, err := f.svc.Receive(ctx, created.ID, []ReceiveItemInput{
		{ItemID: itemID, Quantity: types.NewQuantityFromInt(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRecebido, full.Status)
	assert.True(t, full.Items[0].IsFullyReceived())

	// Destination credited with the cumulative received quantity.
	assert.Equal(t, types.NewQuantityFromInt(4), f.ledger.credited[creditKey{destination, stock.ProductID}])
	assert.Contains(t, f.audit.actions, "transfer_received")
}

func TestReceive_RejectsOverOutstanding(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})
	created, _ := createPending(t, f, origin, destination, types.NewQuantityFromInt(4))

	_, err := f.svc.Receive(testCtx(), created.ID, []ReceiveItemInput{
		{ItemID: created.Items[0].ID, Quantity: types.NewQuantityFromInt(5)},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestReceive_RejectsSettledTransfer(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})
	created, _ := createPending(t, f, origin, destination, types.NewQuantityFromInt(4))
	itemID := created.Items[0].ID
	ctx := testCtx()

	_, err := f.svc.Receive(ctx, created.ID, []ReceiveItemInput{
		{ItemID: itemID, Quantity: types.NewQuantityFromInt(4)},
	})
	require.NoError(t, err)

	_, err = f.svc.Receive(ctx, created.ID, []ReceiveItemInput{
		{ItemID: itemID, Quantity: types.NewQuantityFromInt(1)},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeTransferNotPending))
}

func TestDelete_RestoresOrigin(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})
	created, stock := createPending(t, f, origin, destination, types.NewQuantityFromInt(4))

	require.NoError(t, f.svc.Delete(testCtx(), created.ID))

	assert.Equal(t, types.NewQuantityFromInt(10), f.ledger.stocks[stock.ID].Available)
	assert.NotContains(t, f.repo.transfers, created.ID)
	assert.Contains(t, f.audit.actions, "transfer_deleted")
}

func TestDelete_RejectsPartiallyReceived(t *testing.T) {
	origin := id.New()
	destination := id.New()
	f := newFixture(locationSet{origin: true, destination: true})
	created, _ := createPending(t, f, origin, destination, types.NewQuantityFromInt(4))
	ctx := testCtx()

	_, err := f.svc.Receive(ctx, created.ID, []ReceiveItemInput{
		{ItemID: created.Items[0].ID, Quantity: types.NewQuantityFromInt(1)},
	})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, created.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeTransferNotPending))
}

func TestList_DeniedScopeShortCircuits(t *testing.T) {
	f := newFixture(locationSet{})
	svc := NewService(f.repo, f.ledger, deniedGate{}, locationSet{}, &numerator.MockGenerator{}, nil)

	transfers, err := svc.List(testCtx(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, transfers)

	count, err := svc.Count(testCtx(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResolveStatus(t *testing.T) {
	three := types.NewQuantityFromInt(3)
	five := types.NewQuantityFromInt(5)

	tests := []struct {
		name     string
		items    []*Item
		expected Status
	}{
		{
			name:     "nothing received",
			items:    []*Item{{Quantity: five}},
			expected: StatusPendente,
		},
		{
			name:     "partially received",
			items:    []*Item{{Quantity: five, QuantityReceived: &three}},
			expected: StatusRecebidoParcial,
		},
		{
			name:     "fully received",
			items:    []*Item{{Quantity: five, QuantityReceived: &five}},
			expected: StatusRecebido,
		},
		{
			name: "one item full one pending",
			items: []*Item{
				{Quantity: five, QuantityReceived: &five},
				{Quantity: three},
			},
			expected: StatusRecebidoParcial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Transfer{Items: tt.items}
			assert.Equal(t, tt.expected, tr.ResolveStatus())
		})
	}
}
