// Package catalog_repo provides the PostgreSQL implementation of the
// read-only catalog repository.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	productsTable   = "products"
	warehousesTable = "warehouses"
	locationsTable  = "stock_locations"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (catalog.Product, error) {
	sql, args, err := r.builder.Select("id", "sku", "name").
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return catalog.Product{}, fmt.Errorf("build query: %w", err)
	}

	var product catalog.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &product, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, apperror.NewNotFound("product", productID)
		}
		return catalog.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (r *CatalogRepo) GetLocation(ctx context.Context, locationID id.ID) (catalog.StockLocation, error) {
	sql, args, err := r.builder.Select("id", "name", "kind", "warehouse_id").
		From(locationsTable).
		Where(squirrel.Eq{"id": locationID}).
		ToSql()
	if err != nil {
		return catalog.StockLocation{}, fmt.Errorf("build query: %w", err)
	}

	var location catalog.StockLocation
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &location, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.StockLocation{}, apperror.NewNotFound("stock location", locationID)
		}
		return catalog.StockLocation{}, fmt.Errorf("get stock location: %w", err)
	}
	return location, nil
}

func (r *CatalogRepo) GetWarehouse(ctx context.Context, warehouseID id.ID) (catalog.Warehouse, error) {
	sql, args, err := r.builder.Select("id", "code", "name").
		From(warehousesTable).
		Where(squirrel.Eq{"id": warehouseID}).
		ToSql()
	if err != nil {
		return catalog.Warehouse{}, fmt.Errorf("build query: %w", err)
	}

	var warehouse catalog.Warehouse
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &warehouse, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Warehouse{}, apperror.NewNotFound("warehouse", warehouseID)
		}
		return catalog.Warehouse{}, fmt.Errorf("get warehouse: %w", err)
	}
	return warehouse, nil
}

func (r *CatalogRepo) ListLocations(ctx context.Context) ([]catalog.StockLocation, error) {
	sql, args, err := r.builder.Select("id", "name", "kind", "warehouse_id").
		From(locationsTable).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locations []catalog.StockLocation
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &locations, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock locations: %w", err)
	}
	return locations, nil
}
