package core_test

import (
	"context"
	"errors"
	"testing"

	"distribution-ledger/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMaster_ShopCRUD(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	name := "Shop " + uuid.NewString()
	shop, err := svcs.master.CreateShop(ctx, core.ShopInput{
		Name:        name,
		Address:     "3 New Road",
		CreditLimit: decimal.NewFromInt(25000),
	})
	if err != nil {
		t.Fatalf("CreateShop: %v", err)
	}
	if !shop.BalanceAmount.IsZero() {
		t.Error("new shop must start with zero balance")
	}
	if !shop.AvailableCredit().Equal(d("25000")) {
		t.Errorf("available credit = %s, want 25000", shop.AvailableCredit())
	}

	updated, err := svcs.master.UpdateShop(ctx, shop.ID, core.ShopInput{
		Name:        name,
		CreditLimit: decimal.NewFromInt(30000),
	})
	if err != nil {
		t.Fatalf("UpdateShop: %v", err)
	}
	if !updated.CreditLimit.Equal(d("30000")) {
		t.Errorf("credit limit = %s, want 30000", updated.CreditLimit)
	}

	var vErr *core.ValidationError
	if _, err := svcs.master.CreateShop(ctx, core.ShopInput{}); !errors.As(err, &vErr) {
		t.Error("expected validation error for empty name")
	}
	if _, err := svcs.master.CreateShop(ctx, core.ShopInput{
		Name:        "Bad",
		CreditLimit: decimal.NewFromInt(-1),
	}); !errors.As(err, &vErr) {
		t.Error("expected validation error for negative credit limit")
	}

	shops, total, err := svcs.master.ListShops(ctx, core.ListQuery{Search: name})
	if err != nil {
		t.Fatalf("ListShops: %v", err)
	}
	if total != 1 || len(shops) != 1 || shops[0].ID != shop.ID {
		t.Errorf("search by name returned %d/%d", len(shops), total)
	}
}

func TestMaster_ProductLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	p, err := svcs.master.CreateProduct(ctx, core.ProductInput{
		Name:         "Sprocket " + uuid.NewString(),
		SellingPrice: d("45.50"),
		CostPrice:    d("30"),
		MinStock:     5,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.AvailableQty != 0 || !p.TotalCost.IsZero() {
		t.Error("new product must start with empty valuation")
	}
	if !p.UnitCost().IsZero() {
		t.Error("unit cost at zero quantity must be zero")
	}

	// Fresh product sits below its minimum stock.
	low, err := svcs.master.ListLowStock(ctx)
	if err != nil {
		t.Fatalf("ListLowStock: %v", err)
	}
	found := false
	for _, lp := range low {
		if lp.ID == p.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected the fresh product in the low-stock list")
	}

	if err := svcs.master.DeactivateProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeactivateProduct: %v", err)
	}

	// Deactivated products stay readable but leave new documents.
	got, err := svcs.master.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.IsActive {
		t.Error("product should be inactive")
	}
	_, err = svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 2,
		Items:          []core.LineInput{{ProductID: p.ID, Quantity: 1}},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound selling an inactive product, got %v", err)
	}
}

func TestReporting_SalesAndReceivables(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	if _, err := svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 2,
		Items:          []core.LineInput{{ProductID: 1, Quantity: 3}},
	}); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if _, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "2000", 1)); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	sum, err := svcs.reporting.GetSalesSummary(ctx, "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("GetSalesSummary: %v", err)
	}
	if sum.InvoiceCount != 2 {
		t.Errorf("invoice count = %d, want 2", sum.InvoiceCount)
	}
	if !sum.NetTotal.Equal(d("2600")) {
		t.Errorf("net total = %s, want 2600", sum.NetTotal)
	}

	// Outside the range nothing shows.
	empty, err := svcs.reporting.GetSalesSummary(ctx, "2026-09-01", "")
	if err != nil {
		t.Fatal(err)
	}
	if empty.InvoiceCount != 0 {
		t.Errorf("out-of-range count = %d, want 0", empty.InvoiceCount)
	}

	recv, err := svcs.reporting.GetReceivables(ctx)
	if err != nil {
		t.Fatalf("GetReceivables: %v", err)
	}
	if len(recv) != 1 || recv[0].ShopID != 1 {
		t.Fatalf("receivables = %+v, want only shop 1", recv)
	}
	if !recv[0].BalanceAmount.Equal(d("2000")) || recv[0].OpenInvoices != 1 {
		t.Errorf("receivable = (%s, %d), want (2000, 1)", recv[0].BalanceAmount, recv[0].OpenInvoices)
	}

	movement, err := svcs.reporting.GetProductMovement(ctx, "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("GetProductMovement: %v", err)
	}
	if len(movement) == 0 {
		t.Fatal("expected product movement rows")
	}
	for _, m := range movement {
		if m.ProductID == 1 && m.SoldQty != 3 {
			t.Errorf("product 1 sold qty = %d, want 3", m.SoldQty)
		}
	}
}
