package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/tenant"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	locations map[id.ID]*Location
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{locations: make(map[id.ID]*Location)}
}

func (r *fakeRepo) Create(_ context.Context, loc *Location) error {
	r.locations[loc.ID] = loc
	return nil
}

func (r *fakeRepo) Update(_ context.Context, loc *Location) error {
	if _, ok := r.locations[loc.ID]; !ok {
		return apperror.NewNotFound("location", loc.ID.String())
	}
	r.locations[loc.ID] = loc
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, locationID id.ID) (*Location, error) {
	loc, ok := r.locations[locationID]
	if !ok {
		return nil, apperror.NewNotFound("location", locationID.String())
	}
	return loc, nil
}

func (r *fakeRepo) GetByCode(_ context.Context, code string) (*Location, error) {
	for _, loc := range r.locations {
		if loc.Code == code {
			return loc, nil
		}
	}
	return nil, apperror.NewNotFound("location", code)
}

func (r *fakeRepo) List(_ context.Context, _ Filter) ([]*Location, error) {
	var out []*Location
	for _, loc := range r.locations {
		out = append(out, loc)
	}
	return out, nil
}

func (r *fakeRepo) Count(_ context.Context, _ Filter) (int64, error) {
	return int64(len(r.locations)), nil
}

func (r *fakeRepo) ListActiveIDs(_ context.Context) ([]id.ID, error) {
	var out []id.ID
	for _, loc := range r.locations {
		if loc.IsActive {
			out = append(out, loc.ID)
		}
	}
	return out, nil
}

func (r *fakeRepo) IsActive(_ context.Context, locationID id.ID) (bool, error) {
	loc, ok := r.locations[locationID]
	return ok && loc.IsActive, nil
}

func testCtx() context.Context {
	return tenant.WithTxManager(context.Background(), fakeTxManager{})
}

func TestCreate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	loc := New("ALM-001", "Almoxarifado Central", TypeWarehouse)
	require.NoError(t, svc.Create(testCtx(), loc))
	assert.True(t, loc.IsActive)

	// Duplicate code is rejected.
	dup := New("ALM-001", "Outro Almoxarifado", TypeWarehouse)
	err := svc.Create(testCtx(), dup)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newFakeRepo())

	err := svc.Create(testCtx(), New("X-001", "", TypeWarehouse))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = svc.Create(testCtx(), New("X-002", "Depósito", LocationType("garage")))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDeactivate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	loc := New("OBR-001", "Obra Norte", TypeSite)
	require.NoError(t, svc.Create(testCtx(), loc))

	require.NoError(t, svc.Deactivate(testCtx(), loc.ID))
	stored, err := svc.GetByID(testCtx(), loc.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.False(t, stored.CanHoldStock())

	// Deactivating twice is a no-op.
	require.NoError(t, svc.Deactivate(testCtx(), loc.ID))

	err = svc.Deactivate(testCtx(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}
