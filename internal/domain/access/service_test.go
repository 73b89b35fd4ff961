package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almox/internal/core/apperror"
	appctx "almox/internal/core/context"
	"almox/internal/core/id"
)

type fakeRepo struct {
	assignments map[id.ID]*Assignment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{assignments: make(map[id.ID]*Assignment)}
}

func (r *fakeRepo) Create(_ context.Context, a *Assignment) error {
	r.assignments[a.ID] = a
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, assignmentID id.ID) error {
	delete(r.assignments, assignmentID)
	return nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID id.ID) ([]*Assignment, error) {
	var out []*Assignment
	for _, a := range r.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByLocation(_ context.Context, locationID id.ID) ([]*Assignment, error) {
	var out []*Assignment
	for _, a := range r.assignments {
		if a.LocationID == locationID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeLocations struct {
	active map[id.ID]bool
}

func (l *fakeLocations) ListActiveIDs(context.Context) ([]id.ID, error) {
	var out []id.ID
	for lid, active := range l.active {
		if active {
			out = append(out, lid)
		}
	}
	return out, nil
}

func (l *fakeLocations) IsActive(_ context.Context, locationID id.ID) (bool, error) {
	return l.active[locationID], nil
}

func userCtx(user *appctx.UserContext) context.Context {
	return appctx.WithUser(context.Background(), user)
}

func TestResolveScope(t *testing.T) {
	keeperID := id.New()
	assignedLocation := id.New()

	repo := newFakeRepo()
	assignment := NewAssignment(keeperID, assignedLocation, id.New())
	repo.assignments[assignment.ID] = assignment

	locations := &fakeLocations{active: map[id.ID]bool{assignedLocation: true}}
	svc := NewService(repo, locations)

	tests := []struct {
		name string
		user *appctx.UserContext
		want func(t *testing.T, scope Scope)
	}{
		{
			name: "super admin sees everything",
			user: &appctx.UserContext{UserID: id.New().String(), Roles: []string{appctx.RoleSuperAdmin}},
			want: func(t *testing.T, scope Scope) {
				assert.True(t, scope.All)
			},
		},
		{
			name: "admin sees active locations",
			user: &appctx.UserContext{UserID: id.New().String(), Roles: []string{appctx.RoleAdmin}},
			want: func(t *testing.T, scope Scope) {
				assert.False(t, scope.All)
				assert.True(t, scope.ActiveOnly)
			},
		},
		{
			name: "management sees active locations",
			user: &appctx.UserContext{UserID: id.New().String(), Roles: []string{appctx.RoleManagement}},
			want: func(t *testing.T, scope Scope) {
				assert.True(t, scope.ActiveOnly)
			},
		},
		{
			name: "supervisor sees active locations",
			user: &appctx.UserContext{UserID: id.New().String(), Roles: []string{appctx.RoleSupervisor}},
			want: func(t *testing.T, scope Scope) {
				assert.True(t, scope.ActiveOnly)
			},
		},
		{
			name: "stock manage permission sees active locations",
			user: &appctx.UserContext{UserID: id.New().String(), Permissions: []string{appctx.PermStockManage}},
			want: func(t *testing.T, scope Scope) {
				assert.True(t, scope.ActiveOnly)
			},
		},
		{
			name: "keeper sees exactly assigned locations",
			user: &appctx.UserContext{UserID: keeperID.String()},
			want: func(t *testing.T, scope Scope) {
				assert.False(t, scope.All)
				assert.False(t, scope.ActiveOnly)
				assert.Equal(t, []id.ID{assignedLocation}, scope.LocationIDs)
			},
		},
		{
			name: "assignment wins over view permission",
			user: &appctx.UserContext{
				UserID:      keeperID.String(),
				Permissions: []string{appctx.PermStockMovementsView},
			},
			want: func(t *testing.T, scope Scope) {
				assert.False(t, scope.ActiveOnly)
				assert.Equal(t, []id.ID{assignedLocation}, scope.LocationIDs)
			},
		},
		{
			name: "view permission without assignment sees active locations",
			user: &appctx.UserContext{
				UserID:      id.New().String(),
				Permissions: []string{appctx.PermStockLocationsView},
			},
			want: func(t *testing.T, scope Scope) {
				assert.True(t, scope.ActiveOnly)
			},
		},
		{
			name: "no role, permission or assignment yields empty scope",
			user: &appctx.UserContext{UserID: id.New().String()},
			want: func(t *testing.T, scope Scope) {
				assert.True(t, scope.IsEmpty())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := svc.ResolveScope(userCtx(tt.user))
			require.NoError(t, err)
			tt.want(t, scope)
		})
	}
}

func TestResolveScope_RequiresUser(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeLocations{})

	_, err := svc.ResolveScope(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestAccessibleLocationIDs(t *testing.T) {
	keeperID := id.New()
	assignedLocation := id.New()
	activeLocation := id.New()

	repo := newFakeRepo()
	assignment := NewAssignment(keeperID, assignedLocation, id.New())
	repo.assignments[assignment.ID] = assignment

	locations := &fakeLocations{active: map[id.ID]bool{
		assignedLocation: true,
		activeLocation:   true,
	}}
	svc := NewService(repo, locations)

	t.Run("super admin gets no filter", func(t *testing.T) {
		ids, allowed, err := svc.AccessibleLocationIDs(userCtx(&appctx.UserContext{
			UserID: id.New().String(),
			Roles:  []string{appctx.RoleSuperAdmin},
		}))
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Nil(t, ids)
	})

	t.Run("admin gets active location list", func(t *testing.T) {
		ids, allowed, err := svc.AccessibleLocationIDs(userCtx(&appctx.UserContext{
			UserID: id.New().String(),
			Roles:  []string{appctx.RoleAdmin},
		}))
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.ElementsMatch(t, []id.ID{assignedLocation, activeLocation}, ids)
	})

	t.Run("keeper gets assigned list", func(t *testing.T) {
		ids, allowed, err := svc.AccessibleLocationIDs(userCtx(&appctx.UserContext{
			UserID: keeperID.String(),
		}))
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, []id.ID{assignedLocation}, ids)
	})

	t.Run("empty scope denies", func(t *testing.T) {
		ids, allowed, err := svc.AccessibleLocationIDs(userCtx(&appctx.UserContext{
			UserID: id.New().String(),
		}))
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Nil(t, ids)
	})
}

func TestCheckLocation(t *testing.T) {
	keeperID := id.New()
	assignedLocation := id.New()
	otherLocation := id.New()
	inactiveLocation := id.New()

	repo := newFakeRepo()
	assignment := NewAssignment(keeperID, assignedLocation, id.New())
	repo.assignments[assignment.ID] = assignment

	locations := &fakeLocations{active: map[id.ID]bool{
		assignedLocation: true,
		otherLocation:    true,
		inactiveLocation: false,
	}}
	svc := NewService(repo, locations)

	t.Run("super admin may touch inactive locations", func(t *testing.T) {
		err := svc.CheckLocation(userCtx(&appctx.UserContext{
			UserID: id.New().String(),
			Roles:  []string{appctx.RoleSuperAdmin},
		}), inactiveLocation)
		assert.NoError(t, err)
	})

	t.Run("admin denied on inactive location", func(t *testing.T) {
		err := svc.CheckLocation(userCtx(&appctx.UserContext{
			UserID: id.New().String(),
			Roles:  []string{appctx.RoleAdmin},
		}), inactiveLocation)
		assert.True(t, apperror.HasCode(err, apperror.CodeAccessDenied))
	})

	t.Run("keeper allowed on assigned location", func(t *testing.T) {
		err := svc.CheckLocation(userCtx(&appctx.UserContext{UserID: keeperID.String()}), assignedLocation)
		assert.NoError(t, err)
	})

	t.Run("keeper denied elsewhere", func(t *testing.T) {
		err := svc.CheckLocation(userCtx(&appctx.UserContext{UserID: keeperID.String()}), otherLocation)
		assert.True(t, apperror.HasCode(err, apperror.CodeAccessDenied))
	})

	t.Run("empty scope denied everywhere", func(t *testing.T) {
		err := svc.CheckLocation(userCtx(&appctx.UserContext{UserID: id.New().String()}), assignedLocation)
		assert.True(t, apperror.HasCode(err, apperror.CodeAccessDenied))
	})
}

func TestAssign(t *testing.T) {
	adminID := id.New()
	locationID := id.New()
	inactiveID := id.New()

	repo := newFakeRepo()
	locations := &fakeLocations{active: map[id.ID]bool{locationID: true, inactiveID: false}}
	svc := NewService(repo, locations)

	ctx := userCtx(&appctx.UserContext{UserID: adminID.String(), Roles: []string{appctx.RoleAdmin}})

	keeperID := id.New()
	assignment, err := svc.Assign(ctx, keeperID, locationID)
	require.NoError(t, err)
	assert.Equal(t, keeperID, assignment.UserID)
	assert.Equal(t, locationID, assignment.LocationID)
	assert.Equal(t, adminID, assignment.CreatedBy)

	_, err = svc.Assign(ctx, keeperID, inactiveID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLocation))

	require.NoError(t, svc.Unassign(ctx, assignment.ID))
	assert.Empty(t, repo.assignments)
}
