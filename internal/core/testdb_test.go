package core_test

import (
	"context"
	"os"
	"testing"

	"distribution-ledger/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE pending_payments, invoice_items, invoices, order_items, orders,
			grn_items, grns, products, suppliers, shops, document_sequences CASCADE;

		INSERT INTO shops (id, name, address, phone, credit_limit, balance_amount) VALUES
		(1, 'Credit Shop', '1 High Street', '011-000-0001', 50000, 0),
		(2, 'Cash Shop',   '2 Low Street',  '011-000-0002', 0,     0);

		INSERT INTO suppliers (id, name, phone, address) VALUES
		(1, 'Main Supplier', '011-000-0009', '9 Depot Road');

		INSERT INTO products (id, name, selling_price, cost_price, available_qty, total_cost, min_stock, is_active) VALUES
		(1, 'Widget', 200, 100, 10, 1000, 2, true),
		(2, 'Gadget', 80, 50, 100, 5000, 10, true),
		(3, 'Retired Widget', 120, 60, 5, 300, 0, false);

		SELECT setval(pg_get_serial_sequence('shops', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('suppliers', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('products', 'id'), 100);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

type testServices struct {
	inventory core.InventoryLedger
	master    core.MasterService
	invoices  core.InvoiceService
	orders    core.OrderService
	grns      core.GRNService
	payments  core.PaymentService
	reporting core.ReportingService
}

func newTestServices(pool *pgxpool.Pool) testServices {
	log := zerolog.Nop()
	inventory := core.NewInventoryLedger(pool, log)
	sequences := core.NewSequenceService()
	payments := core.NewPaymentService(pool)
	gate := core.NewCreditGate()
	settings := core.StaticSettings{
		CashDiscountPercent: decimal.NewFromInt(5),
		PaymentTermDays:     30,
	}

	return testServices{
		inventory: inventory,
		master:    core.NewMasterService(pool, log),
		invoices:  core.NewInvoiceService(pool, inventory, sequences, payments, gate, settings, log),
		orders:    core.NewOrderService(pool, inventory, sequences, gate, settings, log),
		grns:      core.NewGRNService(pool, inventory, sequences, settings, log),
		payments:  payments,
		reporting: core.NewReportingService(pool),
	}
}

func productValuation(t *testing.T, pool *pgxpool.Pool, productID int64) (int64, decimal.Decimal) {
	t.Helper()
	var qty int64
	var totalCost decimal.Decimal
	err := pool.QueryRow(context.Background(),
		"SELECT available_qty, total_cost FROM products WHERE id = $1", productID,
	).Scan(&qty, &totalCost)
	if err != nil {
		t.Fatalf("failed to read valuation for product %d: %v", productID, err)
	}
	return qty, totalCost
}

func shopBalance(t *testing.T, pool *pgxpool.Pool, shopID int64) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	err := pool.QueryRow(context.Background(),
		"SELECT balance_amount FROM shops WHERE id = $1", shopID,
	).Scan(&balance)
	if err != nil {
		t.Fatalf("failed to read balance for shop %d: %v", shopID, err)
	}
	return balance
}
