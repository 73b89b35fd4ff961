package assets

import (
	"context"
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

type fakeMovementSource struct {
	entries []*ledger.Movement
}

func (s *fakeMovementSource) ListInvoiceEntries(context.Context, id.ID) ([]*ledger.Movement, error) {
	return s.entries, nil
}

func invoiceEntry(qty int64, unitCost string) *ledger.Movement {
	cost := types.MustMoney(unitCost)
	return &ledger.Movement{
		Type:     ledger.MovementEntrada,
		Quantity: types.NewQuantityFromInt(qty),
		UnitCost: &cost,
	}
}

func TestResolveUnitCost(t *testing.T) {
	fallback := types.MustMoney("7.50")

	tests := []struct {
		name     string
		entries  []*ledger.Movement
		qty      int64
		fallback *types.Money
		expected string
	}{
		{
			name: "exit covered by second batch prices at that batch",
			entries: []*ledger.Movement{
				invoiceEntry(5, "10.00"),
				invoiceEntry(5, "12.00"),
			},
			qty:      7,
			expected: "12.00",
		},
		{
			name: "exit within first batch prices at first batch",
			entries: []*ledger.Movement{
				invoiceEntry(5, "10.00"),
				invoiceEntry(5, "12.00"),
			},
			qty:      5,
			expected: "10.00",
		},
		{
			name: "history shorter than exit prices at newest batch",
			entries: []*ledger.Movement{
				invoiceEntry(5, "10.00"),
				invoiceEntry(5, "12.00"),
			},
			qty:      20,
			expected: "12.00",
		},
		{
			name:     "no history uses fallback",
			entries:  nil,
			qty:      3,
			fallback: &fallback,
			expected: "7.50",
		},
		{
			name:     "no history and no fallback yields zero",
			entries:  nil,
			qty:      3,
			expected: "0",
		},
		{
			name: "entry without cost keeps previous batch cost",
			entries: []*ledger.Movement{
				invoiceEntry(5, "10.00"),
				{Type: ledger.MovementEntrada, Quantity: types.NewQuantityFromInt(5)},
			},
			qty:      7,
			expected: "10.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewCostResolver(&fakeMovementSource{entries: tt.entries})

			cost, err := resolver.ResolveUnitCost(context.Background(), id.New(), types.NewQuantityFromInt(tt.qty), tt.fallback)
			require.NoError(t, err)
			assert.True(t, cost.Equal(types.MustMoney(tt.expected)),
				"expected %s, got %s", tt.expected, cost.String())
		})
	}
}

// --- Conversion service ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLedger struct {
	stock     *ledger.Stock
	exitInput ledger.MovementInput
}

func (l *fakeLedger) GetStock(context.Context, id.ID) (*ledger.Stock, error) {
	return l.stock, nil
}

func (l *fakeLedger) Exit(_ context.Context, _ id.ID, qty types.Quantity, input ledger.MovementInput) (*ledger.Stock, error) {
	if qty > l.stock.Reserved {
		return nil, apperror.NewInsufficientReserved(l.stock.ID.String(), qty.String(), l.stock.Reserved.String())
	}
	l.exitInput = input
	l.stock.Reserved -= qty
	l.stock.Total = l.stock.Available + l.stock.Reserved
	return l.stock, nil
}

type fakeAssetCreator struct {
	created []AssetInput
}

func (c *fakeAssetCreator) CreateAsset(_ context.Context, input AssetInput) (id.ID, error) {
	c.created = append(c.created, input)
	return id.New(), nil
}

func testCtx() context.Context {
	ctx := tenant.WithTxManager(context.Background(), fakeTxManager{})
	return appctx.WithUser(ctx, &appctx.UserContext{UserID: id.New().String()})
}

func TestExitAndCreateAsset(t *testing.T) {
	stock := ledger.NewStock(id.New(), id.New())
	stock.Reserved = types.NewQuantityFromInt(10)
	stock.Total = stock.Reserved

	cost := types.MustMoney("12.00")
	entry := &ledger.Movement{
		Type:     ledger.MovementEntrada,
		Quantity: types.NewQuantityFromInt(10),
		UnitCost: &cost,
	}

	stockLedger := &fakeLedger{stock: stock}
	creator := &fakeAssetCreator{}
	resolver := NewCostResolver(&fakeMovementSource{entries: []*ledger.Movement{entry}})
	svc := NewService(stockLedger, resolver, creator, &numerator.MockGenerator{})

	result, err := svc.ExitAndCreateAsset(testCtx(), ExitInput{
		StockID:     stock.ID,
		Quantity:    types.NewQuantityFromInt(3),
		Description: "Furadeira industrial",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.TermNumber)
	assert.True(t, result.UnitValue.Equal(cost))
	assert.Equal(t, types.NewQuantityFromInt(7), result.Stock.Reserved)

	// Exit movement carries the term reference and resolved cost.
	assert.Equal(t, ledger.RefTermoResponsabilidade, stockLedger.exitInput.ReferenceType)
	assert.Contains(t, stockLedger.exitInput.Observation, result.TermNumber)
	require.NotNil(t, stockLedger.exitInput.UnitCost)
	assert.True(t, stockLedger.exitInput.UnitCost.Equal(cost))

	require.Len(t, creator.created, 1)
	asset := creator.created[0]
	assert.Equal(t, "Furadeira industrial", asset.Description)
	assert.Equal(t, result.TermNumber, asset.SourceReference)
	assert.True(t, asset.UnitValue.Equal(cost))
}

func TestExitAndCreateAsset_Validation(t *testing.T) {
	svc := NewService(&fakeLedger{stock: ledger.NewStock(id.New(), id.New())},
		NewCostResolver(&fakeMovementSource{}), &fakeAssetCreator{}, &numerator.MockGenerator{})

	_, err := svc.ExitAndCreateAsset(testCtx(), ExitInput{
		StockID:     id.New(),
		Quantity:    0,
		Description: "Furadeira",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.ExitAndCreateAsset(testCtx(), ExitInput{
		StockID:  id.New(),
		Quantity: types.NewQuantityFromInt(1),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
