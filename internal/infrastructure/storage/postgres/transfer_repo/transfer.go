// Package transfer_repo provides the PostgreSQL implementation of the
// staged transfer repository.
package transfer_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/transfer"
	"almox/internal/infrastructure/storage/postgres"
)

const (
	transfersTable = "stock_transfers"
	itemsTable     = "stock_transfer_items"
)

var transferColumns = []string{
	"id", "transfer_number",
	"origin_location_id", "destination_location_id",
	"status", "driver_name", "license_plate",
	"user_id", "observation",
	"version", "created_at", "updated_at",
}

var itemColumns = []string{
	"id", "transfer_id", "stock_id", "product_id",
	"quantity", "quantity_available_before", "quantity_received",
	"created_at",
}

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	builder squirrel.StatementBuilderType
}

// NewTransferRepo creates a new staged transfer repository.
func NewTransferRepo() *TransferRepo {
	return &TransferRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ transfer.Repository = (*TransferRepo)(nil)

func (r *TransferRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts the header and all items.
func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Insert(transfersTable).
		Columns(transferColumns...).
		Values(
			t.ID, t.TransferNumber,
			t.OriginLocationID, t.DestinationLocationID,
			t.Status, t.DriverName, t.LicensePlate,
			t.UserID, t.Observation,
			t.Version, t.CreatedAt, t.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert transfer: %w", err))
	}

	if len(t.Items) == 0 {
		return nil
	}

	itemsQ := r.builder.Insert(itemsTable).Columns(itemColumns...)
	for _, item := range t.Items {
		itemsQ = itemsQ.Values(
			item.ID, item.TransferID, item.StockID, item.ProductID,
			item.Quantity, item.QuantityAvailableBefore, item.QuantityReceived,
			item.CreatedAt,
		)
	}

	sql, args, err = itemsQ.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert transfer items: %w", err))
	}
	return nil
}

// Update persists header changes with an optimistic version check.
func (r *TransferRepo) Update(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Update(transfersTable).
		Set("status", t.Status).
		Set("driver_name", t.DriverName).
		Set("license_plate", t.LicensePlate).
		Set("observation", t.Observation).
		Set("version", t.Version+1).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{
			"id":      t.ID,
			"version": t.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update transfer: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock_transfer", t.ID.String())
	}

	t.Version++
	return nil
}

// UpdateItem persists a received-quantity change.
func (r *TransferRepo) UpdateItem(ctx context.Context, item *transfer.Item) error {
	q := r.builder.Update(itemsTable).
		Set("quantity_received", item.QuantityReceived).
		Where(squirrel.Eq{"id": item.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update transfer item: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("transfer item", item.ID.String())
	}
	return nil
}

// GetByID loads the header with its items.
func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	q := r.builder.Select(transferColumns...).
		From(transfersTable).
		Where(squirrel.Eq{"id": transferID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.getTransfer(ctx, sql, args...)
}

// GetByIDForUpdate loads the header under a row lock, then its items.
func (r *TransferRepo) GetByIDForUpdate(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	sql := `
		SELECT id, transfer_number,
		       origin_location_id, destination_location_id,
		       status, driver_name, license_plate,
		       user_id, observation,
		       version, created_at, updated_at
		FROM stock_transfers
		WHERE id = $1
		FOR UPDATE
	`
	return r.getTransfer(ctx, sql, transferID)
}

func (r *TransferRepo) getTransfer(ctx context.Context, sql string, args ...any) (*transfer.Transfer, error) {
	var t transfer.Transfer
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", fmt.Sprint(args[0]))
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get transfer: %w", err))
	}

	items, err := r.loadItems(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return &t, nil
}

func (r *TransferRepo) loadItems(ctx context.Context, transferID id.ID) ([]*transfer.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"transfer_id": transferID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*transfer.Item
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select transfer items: %w", err))
	}
	return items, nil
}

// Delete removes the header and its items.
func (r *TransferRepo) Delete(ctx context.Context, transferID id.ID) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	sql, args, err := r.builder.Delete(itemsTable).
		Where(squirrel.Eq{"transfer_id": transferID}).ToSql()
	if err != nil {
		return fmt.Errorf("build items delete: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete transfer items: %w", err))
	}

	sql, args, err = r.builder.Delete(transfersTable).
		Where(squirrel.Eq{"id": transferID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete transfer: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("transfer", transferID.String())
	}
	return nil
}

// List returns headers matching the filter, newest first, with items.
func (r *TransferRepo) List(ctx context.Context, filter transfer.Filter) ([]*transfer.Transfer, error) {
	q := r.builder.Select(transferColumns...).From(transfersTable)
	q = applyFilter(q, filter)
	q = q.OrderBy("created_at DESC")

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

	var transfers []*transfer.Transfer
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &transfers, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select transfers: %w", err))
	}

	for _, t := range transfers {
		items, err := r.loadItems(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Items = items
	}
	return transfers, nil
}

// Count returns the number of headers matching the filter.
func (r *TransferRepo) Count(ctx context.Context, filter transfer.Filter) (int64, error) {
	q := r.builder.Select("COUNT(*)").From(transfersTable)
	q = applyFilter(q, filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &count, sql, args...); err != nil {
		return 0, apperror.NewDatabase(fmt.Errorf("count transfers: %w", err))
	}
	return count, nil
}

func applyFilter(q squirrel.SelectBuilder, filter transfer.Filter) squirrel.SelectBuilder {
	if len(filter.LocationIDs) > 0 {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"origin_location_id": filter.LocationIDs},
			squirrel.Eq{"destination_location_id": filter.LocationIDs},
		})
	}
	if len(filter.Statuses) > 0 {
		q = q.Where(squirrel.Eq{"status": filter.Statuses})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return q
}
