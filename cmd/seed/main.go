// seed is a one-shot tool that loads demo master data for local development.
// It is idempotent: rows already present, matched by name, are left alone.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"distribution-ledger/internal/db"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding shops...")
	_, err = tx.Exec(ctx, `
		INSERT INTO shops (name, address, phone, credit_limit)
		SELECT s.name, s.address, s.phone, s.credit_limit::numeric
		FROM (VALUES
		    ('City Mart',        '12 Main Street, Colombo 03',  '0112-555-101', '50000'),
		    ('Lakeview Grocery', '8 Lake Road, Kandy',          '0812-555-202', '30000'),
		    ('Harbor Stores',    '41 Dock Street, Galle',       '0912-555-303', '0')
		) AS s(name, address, phone, credit_limit)
		WHERE NOT EXISTS (SELECT 1 FROM shops WHERE shops.name = s.name);
	`)
	if err != nil {
		log.Fatalf("Failed to seed shops: %v", err)
	}

	log.Println("Seeding suppliers...")
	_, err = tx.Exec(ctx, `
		INSERT INTO suppliers (name, phone, address)
		SELECT s.name, s.phone, s.address
		FROM (VALUES
		    ('Island Distributors', '0112-777-404', '220 Industrial Zone, Kelaniya'),
		    ('Sunrise Imports',     '0112-777-505', '5 Port Access Road, Colombo 15')
		) AS s(name, phone, address)
		WHERE NOT EXISTS (SELECT 1 FROM suppliers WHERE suppliers.name = s.name);
	`)
	if err != nil {
		log.Fatalf("Failed to seed suppliers: %v", err)
	}

	log.Println("Seeding products...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (name, selling_price, cost_price, min_stock)
		SELECT p.name, p.selling_price::numeric, p.cost_price::numeric, p.min_stock::bigint
		FROM (VALUES
		    ('Rice 5kg',          '1450', '1200', '20'),
		    ('Sunflower Oil 1L',  '980',  '810',  '30'),
		    ('Wheat Flour 1kg',   '320',  '255',  '50'),
		    ('Sugar 1kg',         '290',  '240',  '50'),
		    ('Tea 200g',          '650',  '520',  '25')
		) AS p(name, selling_price, cost_price, min_stock)
		WHERE NOT EXISTS (SELECT 1 FROM products WHERE products.name = p.name);
	`)
	if err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data loaded successfully.")
}
