// Package asset_repo persists fixed assets created from stock exits.
package asset_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"almox/internal/core/apperror"
	"almox/internal/core/id"
	"almox/internal/domain/assets"
	"almox/internal/infrastructure/storage/postgres"
)

const assetsTable = "fixed_assets"

// AssetRepo implements assets.AssetCreator.
type AssetRepo struct {
	builder squirrel.StatementBuilderType
}

// NewAssetRepo creates a new fixed asset repository.
func NewAssetRepo() *AssetRepo {
	return &AssetRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ assets.AssetCreator = (*AssetRepo)(nil)

// CreateAsset inserts a fixed asset record and returns its ID.
// Runs inside the caller's transaction so the asset and the stock
// exit commit or roll back together.
func (r *AssetRepo) CreateAsset(ctx context.Context, input assets.AssetInput) (id.ID, error) {
	assetID := id.New()
	now := time.Now()

	q := r.builder.Insert(assetsTable).
		Columns(
			"id", "description", "acquisition_date",
			"unit_value", "quantity", "source_reference",
			"created_at", "updated_at",
		).
		Values(
			assetID, input.Description, input.AcquisitionDate,
			input.UnitValue, input.Quantity, input.SourceReference,
			now, now,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build insert: %w", err)
	}

	querier := postgres.MustGetTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return id.Nil(), apperror.NewDatabase(fmt.Errorf("insert asset: %w", err))
	}
	return assetID, nil
}
