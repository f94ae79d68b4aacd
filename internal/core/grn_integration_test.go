package core_test

import (
	"context"
	"errors"
	"testing"

	"distribution-ledger/internal/core"
)

func grnInput(qty int64, unitPrice string) core.DocumentInput {
	item := core.LineInput{ProductID: 1, Quantity: qty}
	if unitPrice != "" {
		item.UnitPrice = d(unitPrice)
	}
	return core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 1,
		Items:          []core.LineInput{item},
		CreatedBy:      "tester",
	}
}

func TestGRN_ReceiptMovesWeightedAverage(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// 10 @ 100 on hand; receive 10 @ 150.
	g, err := svcs.grns.CreateGRN(ctx, grnInput(10, "150"))
	if err != nil {
		t.Fatalf("CreateGRN: %v", err)
	}

	if g.Number != "GRN-001" {
		t.Errorf("number = %s, want GRN-001", g.Number)
	}
	if !g.NetTotal.Equal(d("1500")) {
		t.Errorf("netTotal = %s, want 1500", g.NetTotal)
	}
	if !g.TotalCost.Equal(d("1500")) {
		t.Errorf("totalCost = %s, want 1500", g.TotalCost)
	}
	if len(g.Items) != 1 || !g.Items[0].ItemCost.Equal(d("1500")) {
		t.Errorf("line item cost wrong: %+v", g.Items)
	}

	qty, totalCost := productValuation(t, pool, 1)
	if qty != 20 || !totalCost.Equal(d("2500")) {
		t.Errorf("valuation = (%d, %s), want (20, 2500)", qty, totalCost)
	}
}

func TestGRN_DefaultsToProductCostPrice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// No unit price on the line: the product's cost price (100) applies.
	g, err := svcs.grns.CreateGRN(ctx, grnInput(5, ""))
	if err != nil {
		t.Fatalf("CreateGRN: %v", err)
	}
	if !g.Items[0].CostPrice.Equal(d("100")) {
		t.Errorf("cost price = %s, want product default 100", g.Items[0].CostPrice)
	}

	qty, totalCost := productValuation(t, pool, 1)
	if qty != 15 || !totalCost.Equal(d("1500")) {
		t.Errorf("valuation = (%d, %s), want (15, 1500)", qty, totalCost)
	}
}

func TestGRN_UpdateReversesRecordedCost(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	g, err := svcs.grns.CreateGRN(ctx, grnInput(10, "150"))
	if err != nil {
		t.Fatalf("CreateGRN: %v", err)
	}

	// Shrinking the receipt reverses exactly the 1500 it recorded, then
	// applies 5 @ 150: back to 10/1000, then 15/1750.
	if _, err := svcs.grns.UpdateGRN(ctx, g.ID, grnInput(5, "150")); err != nil {
		t.Fatalf("UpdateGRN: %v", err)
	}

	qty, totalCost := productValuation(t, pool, 1)
	if qty != 15 || !totalCost.Equal(d("1750")) {
		t.Errorf("valuation = (%d, %s), want (15, 1750)", qty, totalCost)
	}
}

func TestGRN_DeleteReversesReceipt(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	g, err := svcs.grns.CreateGRN(ctx, grnInput(10, "150"))
	if err != nil {
		t.Fatalf("CreateGRN: %v", err)
	}

	if err := svcs.grns.DeleteGRN(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGRN: %v", err)
	}

	if _, err := svcs.grns.GetGRN(ctx, g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	qty, totalCost := productValuation(t, pool, 1)
	if qty != 10 || !totalCost.Equal(d("1000")) {
		t.Errorf("valuation = (%d, %s), want (10, 1000)", qty, totalCost)
	}
}

func TestGRN_IgnoresPercentageDeductions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// Header percentage fields on the input must not shrink the payable:
	// the grns table stores no rates, so a deducted net total could never
	// be reproduced from the stored row.
	in := grnInput(10, "150")
	in.InvoiceType = "credit"
	in.InvoiceTypePercentage = d("10")
	in.CashDiscountEnabled = true

	g, err := svcs.grns.CreateGRN(ctx, in)
	if err != nil {
		t.Fatalf("CreateGRN: %v", err)
	}
	if !g.NetTotal.Equal(d("1500")) {
		t.Errorf("netTotal = %s, want the full line sum 1500", g.NetTotal)
	}
	if !g.NetTotal.Equal(g.SubTotal) {
		t.Errorf("netTotal %s != subTotal %s", g.NetTotal, g.SubTotal)
	}

	// Same on update.
	upd := grnInput(5, "150")
	upd.InvoiceType = "credit"
	upd.InvoiceTypePercentage = d("10")
	upd.CashDiscountEnabled = true
	g, err = svcs.grns.UpdateGRN(ctx, g.ID, upd)
	if err != nil {
		t.Fatalf("UpdateGRN: %v", err)
	}
	if !g.NetTotal.Equal(d("750")) {
		t.Errorf("netTotal after update = %s, want 750", g.NetTotal)
	}
}

func TestGRN_UnknownSupplierRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	in := grnInput(5, "150")
	in.CounterpartyID = 999
	if _, err := svcs.grns.CreateGRN(ctx, in); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown supplier, got %v", err)
	}
}
