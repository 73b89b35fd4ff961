package location

import (
	"context"
	"time"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/core/tenant"
	"almox/pkg/logger"
)

// Service provides business operations for the location catalog.
type Service struct {
	repo Repository
}

// NewService creates a location service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new location.
func (s *Service) Create(ctx context.Context, loc *Location) error {
	if err := loc.Validate(ctx); err != nil {
		return err
	}

	if loc.Code != "" {
		existing, err := s.repo.GetByCode(ctx, loc.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return apperror.NewConflict("location code already in use").
				WithDetail("code", loc.Code)
		}
	}

	txManager, err := tenant.GetTxManager(ctx)
	if err != nil {
		return err
	}

	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, loc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "location created",
		"location_id", loc.ID,
		"code", loc.Code,
		"type", loc.Type)
	return nil
}

// Update validates and persists changes to an existing location.
func (s *Service) Update(ctx context.Context, loc *Location) error {
	if err := loc.Validate(ctx); err != nil {
		return err
	}

	txManager, err := tenant.GetTxManager(ctx)
	if err != nil {
		return err
	}

	loc.UpdatedAt = time.Now().UTC()

	return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, loc)
	})
}

// Deactivate marks a location inactive. Inactive locations keep their
// stock rows but can no longer originate or receive movements.
func (s *Service) Deactivate(ctx context.Context, locationID id.ID) error {
	loc, err := s.repo.GetByID(ctx, locationID)
	if err != nil {
		return err
	}

	if !loc.IsActive {
		return nil
	}

	loc.IsActive = false
	loc.UpdatedAt = time.Now().UTC()

	txManager, err := tenant.GetTxManager(ctx)
	if err != nil {
		return err
	}

	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, loc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "location deactivated", "location_id", locationID)
	return nil
}

// GetByID returns a location by id.
func (s *Service) GetByID(ctx context.Context, locationID id.ID) (*Location, error) {
	return s.repo.GetByID(ctx, locationID)
}

// List returns locations matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Location, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Count returns the number of locations matching the filter.
func (s *Service) Count(ctx context.Context, filter Filter) (int64, error) {
	return s.repo.Count(ctx, filter)
}
