package access

import (
	"context"

	"almox/internal/core/apperror"
	appctx "almox/internal/core/context"
	"almox/internal/core/id"
	"almox/pkg/logger"
)

// Service resolves the accessible location set for the calling user.
//
// Resolution order:
//  1. super-admin role: every location, including inactive ones.
//  2. admin, management or supervisor role, or the stock manage
//     permission: every active location.
//  3. explicit keeper assignment: exactly the assigned locations,
//     even when the user also holds a view permission.
//  4. a stock view permission with no assignment: every active location.
//  5. otherwise: empty set, access denied.
type Service struct {
	repo      Repository
	locations LocationReader
}

// NewService creates an access service.
func NewService(repo Repository, locations LocationReader) *Service {
	return &Service{repo: repo, locations: locations}
}

// ResolveScope computes the caller's accessible location scope.
func (s *Service) ResolveScope(ctx context.Context) (Scope, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return Scope{}, apperror.NewUnauthorized("no authenticated user")
	}

	if appctx.HasRole(ctx, appctx.RoleSuperAdmin) {
		return Scope{All: true}, nil
	}

	if appctx.HasRole(ctx, appctx.RoleAdmin) ||
		appctx.HasRole(ctx, appctx.RoleManagement) ||
		appctx.HasRole(ctx, appctx.RoleSupervisor) ||
		appctx.HasPermission(ctx, appctx.PermStockManage) {
		return Scope{ActiveOnly: true}, nil
	}

	userID, err := id.Parse(user.UserID)
	if err != nil {
		return Scope{}, apperror.NewUnauthorized("invalid user id in token")
	}

	assignments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Scope{}, err
	}

	if len(assignments) > 0 {
		ids := make([]id.ID, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.LocationID)
		}
		return Scope{LocationIDs: ids}, nil
	}

	if appctx.HasAnyPermission(ctx,
		appctx.PermStockLocationsView,
		appctx.PermStockMovementsView,
		appctx.PermStockKeepersView,
	) {
		return Scope{ActiveOnly: true}, nil
	}

	return Scope{}, nil
}

// AccessibleLocationIDs materializes the scope into an explicit id list
// for IN (...) filters. An empty list with allowed=false means queries
// must short-circuit to zero rows instead of running unrestricted.
func (s *Service) AccessibleLocationIDs(ctx context.Context) (ids []id.ID, allowed bool, err error) {
	scope, err := s.ResolveScope(ctx)
	if err != nil {
		return nil, false, err
	}

	if scope.IsEmpty() {
		return nil, false, nil
	}

	if scope.All {
		// nil with allowed=true means no filter needed.
		return nil, true, nil
	}

	if scope.ActiveOnly {
		active, err := s.locations.ListActiveIDs(ctx)
		if err != nil {
			return nil, false, err
		}
		if len(active) == 0 {
			return nil, false, nil
		}
		return active, true, nil
	}

	return scope.LocationIDs, true, nil
}

// CheckLocation verifies the caller may act on a single location.
// Mutations call this immediately before changing stock at the location.
func (s *Service) CheckLocation(ctx context.Context, locationID id.ID) error {
	scope, err := s.ResolveScope(ctx)
	if err != nil {
		return err
	}

	if scope.IsEmpty() {
		return apperror.NewAccessDenied("no accessible stock locations").
			WithDetail("location_id", locationID.String())
	}

	if scope.All {
		return nil
	}

	if scope.ActiveOnly {
		active, err := s.locations.IsActive(ctx, locationID)
		if err != nil {
			return err
		}
		if !active {
			return apperror.NewAccessDenied("location is not active").
				WithDetail("location_id", locationID.String())
		}
		return nil
	}

	if !scope.Contains(locationID, true) {
		return apperror.NewAccessDenied("location not in accessible set").
			WithDetail("location_id", locationID.String())
	}
	return nil
}

// Assign creates a keeper assignment for a user at a location.
func (s *Service) Assign(ctx context.Context, userID, locationID id.ID) (*Assignment, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("no authenticated user")
	}

	createdBy, err := id.Parse(user.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid user id in token")
	}

	active, err := s.locations.IsActive(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperror.NewInvalidLocation(locationID.String(), "location is not active")
	}

	assignment := NewAssignment(userID, locationID, createdBy)
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, err
	}

	logger.Info(ctx, "keeper assigned",
		"assignment_id", assignment.ID,
		"user_id", userID,
		"location_id", locationID)
	return assignment, nil
}

// Unassign removes a keeper assignment.
func (s *Service) Unassign(ctx context.Context, assignmentID id.ID) error {
	return s.repo.Delete(ctx, assignmentID)
}

// ListByLocation returns the keeper assignments for a location.
func (s *Service) ListByLocation(ctx context.Context, locationID id.ID) ([]*Assignment, error) {
	if err := s.CheckLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.repo.ListByLocation(ctx, locationID)
}
