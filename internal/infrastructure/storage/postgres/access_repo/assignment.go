// Package access_repo provides the PostgreSQL implementation of the
// keeper assignment repository.
package access_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/access"
	"almox/internal/infrastructure/storage/postgres"
)

const assignmentsTable = "warehouse_keeper_assignments"

var assignmentColumns = []string{
	"id", "user_id", "location_id", "created_by", "created_at",
}

// AssignmentRepo implements access.Repository.
type AssignmentRepo struct {
	builder squirrel.StatementBuilderType
}

// NewAssignmentRepo creates a new assignment repository.
func NewAssignmentRepo() *AssignmentRepo {
	return &AssignmentRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ access.Repository = (*AssignmentRepo)(nil)

func (r *AssignmentRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts a keeper assignment.
func (r *AssignmentRepo) Create(ctx context.Context, a *access.Assignment) error {
	q := r.builder.Insert(assignmentsTable).
		Columns(assignmentColumns...).
		Values(a.ID, a.UserID, a.LocationID, a.CreatedBy, a.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert assignment: %w", err))
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepo) Delete(ctx context.Context, assignmentID id.ID) error {
	sql, args, err := r.builder.Delete(assignmentsTable).
		Where(squirrel.Eq{"id": assignmentID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete assignment: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("assignment", assignmentID.String())
	}
	return nil
}

// ListByUser returns all assignments for a user.
func (r *AssignmentRepo) ListByUser(ctx context.Context, userID id.ID) ([]*access.Assignment, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID})
}

// ListByLocation returns all assignments at a location.
func (r *AssignmentRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]*access.Assignment, error) {
	return r.list(ctx, squirrel.Eq{"location_id": locationID})
}

func (r *AssignmentRepo) list(ctx context.Context, where squirrel.Eq) ([]*access.Assignment, error) {
	q := r.builder.Select(assignmentColumns...).
		From(assignmentsTable).
		Where(where).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var assignments []*access.Assignment
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &assignments, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select assignments: %w", err))
	}
	return assignments, nil
}
