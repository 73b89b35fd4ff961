// Package ledger_repo provides the PostgreSQL implementation of the
// stock ledger repository. TxManager is obtained from context, so the
// same code runs against any tenant database.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/ledger"
	"almox/internal/infrastructure/storage/postgres"
)

const (
	stocksTable    = "stocks"
	movementsTable = "stock_movements"
)

var stockColumns = []string{
	"id", "location_id", "product_id",
	"quantity_available", "quantity_reserved", "quantity_total",
	"min_stock", "max_stock", "last_movement_at",
	"version", "created_at", "updated_at",
}

var movementColumns = []string{
	"id", "stock_id", "movement_type", "quantity",
	"available_delta", "reserved_delta",
	"quantity_before", "quantity_after",
	"reference_type", "reference_id", "transfer_number",
	"cost", "total_cost", "observation",
	"user_id", "movement_date", "created_at",
}

// StockRepo implements ledger.Repository.
type StockRepo struct {
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo() *StockRepo {
	return &StockRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ ledger.Repository = (*StockRepo)(nil)

func (r *StockRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// CreateStock inserts a new balance row.
func (r *StockRepo) CreateStock(ctx context.Context, stock *ledger.Stock) error {
	q := r.builder.Insert(stocksTable).
		Columns(stockColumns...).
		Values(
			stock.ID, stock.LocationID, stock.ProductID,
			stock.Available, stock.Reserved, stock.Total,
			stock.MinStock, stock.MaxStock, stock.LastMovementAt,
			stock.Version, stock.CreatedAt, stock.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert stock: %w", err))
	}
	return nil
}

// UpdateStock persists a balance change with an optimistic version
// check on top of the row lock already held by the service.
func (r *StockRepo) UpdateStock(ctx context.Context, stock *ledger.Stock) error {
	q := r.builder.Update(stocksTable).
		Set("quantity_available", stock.Available).
		Set("quantity_reserved", stock.Reserved).
		Set("quantity_total", stock.Total).
		Set("min_stock", stock.MinStock).
		Set("max_stock", stock.MaxStock).
		Set("last_movement_at", stock.LastMovementAt).
		Set("version", stock.Version+1).
		Set("updated_at", stock.UpdatedAt).
		Where(squirrel.Eq{
			"id":      stock.ID,
			"version": stock.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update stock: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock", stock.ID.String())
	}

	stock.Version++
	return nil
}

// GetStock returns a balance row without locking.
func (r *StockRepo) GetStock(ctx context.Context, stockID id.ID) (*ledger.Stock, error) {
	q := r.builder.Select(stockColumns...).
		From(stocksTable).
		Where(squirrel.Eq{"id": stockID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.getStock(ctx, sql, args...)
}

// GetStockForUpdate returns a balance row with a row-level lock.
func (r *StockRepo) GetStockForUpdate(ctx context.Context, stockID id.ID) (*ledger.Stock, error) {
	sql := `
		SELECT id, location_id, product_id,
		       quantity_available, quantity_reserved, quantity_total,
		       min_stock, max_stock, last_movement_at,
		       version, created_at, updated_at
		FROM stocks
		WHERE id = $1
		FOR UPDATE
	`
	return r.getStock(ctx, sql, stockID)
}

// GetByLocationProduct returns the balance for a product-location pair.
func (r *StockRepo) GetByLocationProduct(ctx context.Context, locationID, productID id.ID) (*ledger.Stock, error) {
	q := r.builder.Select(stockColumns...).
		From(stocksTable).
		Where(squirrel.Eq{
			"location_id": locationID,
			"product_id":  productID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.getStock(ctx, sql, args...)
}

// GetByLocationProductForUpdate is the locking variant.
func (r *StockRepo) GetByLocationProductForUpdate(ctx context.Context, locationID, productID id.ID) (*ledger.Stock, error) {
	sql := `
		SELECT id, location_id, product_id,
		       quantity_available, quantity_reserved, quantity_total,
		       min_stock, max_stock, last_movement_at,
		       version, created_at, updated_at
		FROM stocks
		WHERE location_id = $1 AND product_id = $2
		FOR UPDATE
	`
	return r.getStock(ctx, sql, locationID, productID)
}

func (r *StockRepo) getStock(ctx context.Context, sql string, args ...any) (*ledger.Stock, error) {
	var stock ledger.Stock
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &stock, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock", fmt.Sprint(args[0]))
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get stock: %w", err))
	}
	return &stock, nil
}

// ListStock returns balances matching the filter.
func (r *StockRepo) ListStock(ctx context.Context, filter ledger.StockFilter) ([]*ledger.Stock, error) {
	q := r.listStockQuery(filter).OrderBy("location_id", "product_id")

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

	var stocks []*ledger.Stock
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &stocks, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select stocks: %w", err))
	}
	return stocks, nil
}

// CountStock returns the number of balances matching the filter.
func (r *StockRepo) CountStock(ctx context.Context, filter ledger.StockFilter) (int64, error) {
	q := r.builder.Select("COUNT(*)").From(stocksTable)
	q = applyStockFilter(q, filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &count, sql, args...); err != nil {
		return 0, apperror.NewDatabase(fmt.Errorf("count stocks: %w", err))
	}
	return count, nil
}

func (r *StockRepo) listStockQuery(filter ledger.StockFilter) squirrel.SelectBuilder {
	q := r.builder.Select(stockColumns...).From(stocksTable)
	return applyStockFilter(q, filter)
}

func applyStockFilter(q squirrel.SelectBuilder, filter ledger.StockFilter) squirrel.SelectBuilder {
	if len(filter.LocationIDs) > 0 {
		q = q.Where(squirrel.Eq{"location_id": filter.LocationIDs})
	}
	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity_total": int64(0)})
	}
	if filter.BelowMin {
		q = q.Where("min_stock IS NOT NULL AND quantity_total < min_stock")
	}
	return q
}

// CreateMovement appends one ledger entry.
func (r *StockRepo) CreateMovement(ctx context.Context, m *ledger.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.StockID, m.Type, m.Quantity,
			m.AvailableDelta, m.ReservedDelta,
			m.TotalBefore, m.TotalAfter,
			m.ReferenceType, m.ReferenceID, m.TransferNumber,
			m.UnitCost, m.TotalCost, m.Observation,
			m.UserID, m.MovementDate, m.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert movement: %w", err))
	}
	return nil
}

// ListMovements returns entries matching the filter, in creation order.
func (r *StockRepo) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]*ledger.Movement, error) {
	cols := make([]string, len(movementColumns))
	for i, c := range movementColumns {
		cols[i] = "m." + c
	}

	q := r.builder.Select(cols...).From(movementsTable + " m")

	if len(filter.LocationIDs) > 0 {
		q = q.Join(stocksTable + " s ON s.id = m.stock_id").
			Where(squirrel.Eq{"s.location_id": filter.LocationIDs})
	}
	if filter.StockID != nil {
		q = q.Where(squirrel.Eq{"m.stock_id": *filter.StockID})
	}
	if len(filter.Types) > 0 {
		q = q.Where(squirrel.Eq{"m.movement_type": filter.Types})
	}
	if filter.ReferenceType != nil {
		q = q.Where(squirrel.Eq{"m.reference_type": *filter.ReferenceType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"m.movement_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"m.movement_date": *filter.ToDate})
	}

	q = q.OrderBy("m.created_at", "m.id")

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

	var movements []*ledger.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select movements: %w", err))
	}
	return movements, nil
}

// ListInvoiceEntries returns invoice-linked entradas oldest first,
// feeding the FIFO cost resolver.
func (r *StockRepo) ListInvoiceEntries(ctx context.Context, stockID id.ID) ([]*ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{
			"stock_id":       stockID,
			"movement_type":  ledger.MovementEntrada,
			"reference_type": ledger.RefCompra,
		}).
		Where("reference_id IS NOT NULL").
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*ledger.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select invoice entries: %w", err))
	}
	return movements, nil
}
