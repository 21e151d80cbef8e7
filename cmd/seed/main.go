// Package main provides a CLI tool for seeding the database with demo data:
// a pair of warehouses with their locations, a small product catalog, and a
// completed order to allocate returns against.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := txManager.GetQuerier(ctx)

		mainWH := id.New()
		returnsWH := id.New()
		for _, wh := range []struct {
			id         id.ID
			code, name string
		}{
			{mainWH, "WH-MAIN", "Main warehouse"},
			{returnsWH, "WH-RET", "Returns warehouse"},
		} {
			if _, err := q.Exec(ctx, `
				INSERT INTO warehouses (id, code, name) VALUES ($1, $2, $3)
				ON CONFLICT (code) DO NOTHING
			`, wh.id, wh.code, wh.name); err != nil {
				return fmt.Errorf("seed warehouse %s: %w", wh.code, err)
			}
		}

		locations := []struct {
			name        string
			kind        catalog.LocationKind
			warehouseID *id.ID
		}{
			{"Main stock", catalog.LocationInternal, &mainWH},
			{"Returns stock", catalog.LocationInternal, &returnsWH},
			{"Suppliers", catalog.LocationSupplier, nil},
			{"Customers", catalog.LocationCustomer, nil},
			{"Inventory loss", catalog.LocationInventoryLoss, nil},
			{"Quality control", catalog.LocationQuality, nil},
		}
		for _, loc := range locations {
			if _, err := q.Exec(ctx, `
				INSERT INTO stock_locations (id, name, kind, warehouse_id) VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO NOTHING
			`, id.New(), loc.name, loc.kind, loc.warehouseID); err != nil {
				return fmt.Errorf("seed location %s: %w", loc.name, err)
			}
		}

		products := []struct {
			id        id.ID
			sku, name string
		}{
			{id.New(), "SKU-0001", "Steel bolt M8"},
			{id.New(), "SKU-0002", "Steel nut M8"},
			{id.New(), "SKU-0003", "Washer 8mm"},
		}
		for _, p := range products {
			if _, err := q.Exec(ctx, `
				INSERT INTO products (id, sku, name) VALUES ($1, $2, $3)
				ON CONFLICT (sku) DO NOTHING
			`, p.id, p.sku, p.name); err != nil {
				return fmt.Errorf("seed product %s: %w", p.sku, err)
			}
		}

		orderID := id.New()
		tag, err := q.Exec(ctx, `
			INSERT INTO orders (id, number, state, created_at) VALUES ($1, $2, 'completed', $3)
			ON CONFLICT (number) DO NOTHING
		`, orderID, "ORD-DEMO-0001", time.Now().UTC())
		if err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Demo order already present, keep its lines untouched.
			return nil
		}

		lines := []struct {
			productID id.ID
			qty       types.Quantity
			price     string
		}{
			{products[0].id, 10, "2.50"},
			{products[0].id, 5, "2.30"},
			{products[1].id, 20, "1.10"},
		}
		for _, line := range lines {
			if _, err := q.Exec(ctx, `
				INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price, returned_quantity)
				VALUES ($1, $2, $3, $4, $5, 0)
			`, id.New(), orderID, line.productID, line.qty, types.MustMoney(line.price)); err != nil {
				return fmt.Errorf("seed order line: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Info("seeding completed successfully")
}
