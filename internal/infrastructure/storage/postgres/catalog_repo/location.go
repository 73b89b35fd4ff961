// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/catalogs/location"
	"almox/internal/infrastructure/storage/postgres"
)

const locationsTable = "locations"

var locationColumns = []string{
	"id", "code", "name", "type", "address",
	"is_active", "version", "created_at", "updated_at",
}

// LocationRepo implements location.Repository and the access gate's
// LocationReader.
type LocationRepo struct {
	builder squirrel.StatementBuilderType
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo() *LocationRepo {
	return &LocationRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ location.Repository = (*LocationRepo)(nil)

func (r *LocationRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts a new location.
func (r *LocationRepo) Create(ctx context.Context, loc *location.Location) error {
	q := r.builder.Insert(locationsTable).
		Columns(locationColumns...).
		Values(
			loc.ID, loc.Code, loc.Name, loc.Type, loc.Address,
			loc.IsActive, loc.Version, loc.CreatedAt, loc.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert location: %w", err))
	}
	return nil
}

// Update persists changes with an optimistic version check.
func (r *LocationRepo) Update(ctx context.Context, loc *location.Location) error {
	q := r.builder.Update(locationsTable).
		Set("code", loc.Code).
		Set("name", loc.Name).
		Set("type", loc.Type).
		Set("address", loc.Address).
		Set("is_active", loc.IsActive).
		Set("version", loc.Version+1).
		Set("updated_at", loc.UpdatedAt).
		Where(squirrel.Eq{
			"id":      loc.ID,
			"version": loc.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update location: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("location", loc.ID.String())
	}

	loc.Version++
	return nil
}

// GetByID returns a location by id.
func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.Location, error) {
	return r.getOne(ctx, squirrel.Eq{"id": locationID}, locationID.String())
}

// GetByCode returns a location by its human-readable code.
func (r *LocationRepo) GetByCode(ctx context.Context, code string) (*location.Location, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *LocationRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*location.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var loc location.Location
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &loc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("location", key)
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get location: %w", err))
	}
	return &loc, nil
}

// List returns locations matching the filter.
func (r *LocationRepo) List(ctx context.Context, filter location.Filter) ([]*location.Location, error) {
	q := r.builder.Select(locationColumns...).From(locationsTable)
	q = applyFilter(q, filter)
	q = q.OrderBy("code", "name")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locations []*location.Location
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &locations, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select locations: %w", err))
	}
	return locations, nil
}

// Count returns the number of locations matching the filter.
func (r *LocationRepo) Count(ctx context.Context, filter location.Filter) (int64, error) {
	q := r.builder.Select("COUNT(*)").From(locationsTable)
	q = applyFilter(q, filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &count, sql, args...); err != nil {
		return 0, apperror.NewDatabase(fmt.Errorf("count locations: %w", err))
	}
	return count, nil
}

// ListActiveIDs returns ids of all active locations, for the access gate.
func (r *LocationRepo) ListActiveIDs(ctx context.Context) ([]id.ID, error) {
	q := r.builder.Select("id").
		From(locationsTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ids, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select active location ids: %w", err))
	}
	return ids, nil
}

// IsActive reports whether the location exists and is active.
func (r *LocationRepo) IsActive(ctx context.Context, locationID id.ID) (bool, error) {
	loc, err := r.GetByID(ctx, locationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return loc.IsActive, nil
}

func applyFilter(q squirrel.SelectBuilder, filter location.Filter) squirrel.SelectBuilder {
	if len(filter.Types) > 0 {
		q = q.Where(squirrel.Eq{"type": filter.Types})
	}
	if filter.IsActive != nil {
		q = q.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.SearchText != "" {
		pattern := "%" + filter.SearchText + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	return q
}
