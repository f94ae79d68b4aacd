package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"distribution-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func creditInvoiceInput(shopID int64, unitPrice string, qty int64) core.DocumentInput {
	return core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: shopID,
		InvoiceType:    "credit",
		Items: []core.LineInput{
			{ProductID: 2, Quantity: qty, UnitPrice: d(unitPrice)},
		},
		CreatedBy: "tester",
	}
}

func TestInvoice_CreateCash_StockAndProfit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	inv, err := svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 2,
		Items: []core.LineInput{
			{ProductID: 1, Quantity: 3}, // default selling price 200
		},
		CreatedBy: "tester",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if inv.Number != "INV-001" {
		t.Errorf("number = %s, want INV-001", inv.Number)
	}
	if !inv.NetTotal.Equal(d("600")) {
		t.Errorf("netTotal = %s, want 600", inv.NetTotal)
	}
	// Unit cost 100 at the moment of sale: cost 300, profit 300.
	if !inv.TotalCost.Equal(d("300")) {
		t.Errorf("totalCost = %s, want 300", inv.TotalCost)
	}
	if !inv.TotalProfit.Equal(d("300")) {
		t.Errorf("totalProfit = %s, want 300", inv.TotalProfit)
	}
	if len(inv.Items) != 1 || !inv.Items[0].ItemCost.Equal(d("300")) {
		t.Errorf("line item cost wrong: %+v", inv.Items)
	}

	qty, totalCost := productValuation(t, pool, 1)
	if qty != 7 || !totalCost.Equal(d("700")) {
		t.Errorf("valuation = (%d, %s), want (7, 700)", qty, totalCost)
	}

	// Cash invoices never create a receivable or move the balance.
	var payments int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM pending_payments").Scan(&payments); err != nil {
		t.Fatal(err)
	}
	if payments != 0 {
		t.Errorf("expected no pending payments, got %d", payments)
	}
	if !shopBalance(t, pool, 2).IsZero() {
		t.Error("cash invoice must not move the shop balance")
	}
}

func TestInvoice_CreditGate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// 40000 of the 50000 limit already consumed.
	if _, err := pool.Exec(ctx, "UPDATE shops SET balance_amount = 40000 WHERE id = 1"); err != nil {
		t.Fatal(err)
	}

	// 15000 against 10000 available: rejected, nothing written.
	_, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "15000", 1))
	var limitErr *core.CreditLimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected CreditLimitExceededError, got %v", err)
	}
	if !limitErr.AvailableCredit.Equal(d("10000")) {
		t.Errorf("available credit = %s, want 10000", limitErr.AvailableCredit)
	}
	qty, _ := productValuation(t, pool, 2)
	if qty != 100 {
		t.Errorf("rejected invoice must not consume stock, qty = %d", qty)
	}

	// 9000 fits: balance rises to 49000 and a receivable appears.
	inv, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "9000", 1))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !shopBalance(t, pool, 1).Equal(d("49000")) {
		t.Errorf("balance = %s, want 49000", shopBalance(t, pool, 1))
	}

	var remaining decimal.Decimal
	var status, dueDate string
	err = pool.QueryRow(ctx, `
		SELECT remaining_amount, payment_status, due_date::text
		FROM pending_payments WHERE invoice_id = $1
	`, inv.ID).Scan(&remaining, &status, &dueDate)
	if err != nil {
		t.Fatalf("expected a pending payment: %v", err)
	}
	if !remaining.Equal(d("9000")) || status != "pending" {
		t.Errorf("receivable = (%s, %s), want (9000, pending)", remaining, status)
	}
	if dueDate != "2026-09-27" {
		t.Errorf("due date = %s, want invoice date + 30 days = 2026-09-27", dueDate)
	}
}

func TestInvoice_OverdueBlocksCredit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// A long-overdue credit invoice.
	old := creditInvoiceInput(1, "1000", 1)
	old.Date = "2020-01-10"
	old.DueDate = "2020-02-10"
	if _, err := svcs.invoices.CreateInvoice(ctx, old); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Even a tiny new credit document is blocked while it stays unpaid.
	_, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "10", 1))
	var overdueErr *core.OverduePaymentsError
	if !errors.As(err, &overdueErr) {
		t.Fatalf("expected OverduePaymentsError, got %v", err)
	}
	if overdueErr.OverdueCount != 1 || !overdueErr.OverdueAmount.Equal(d("1000")) {
		t.Errorf("overdue = (%d, %s), want (1, 1000)", overdueErr.OverdueCount, overdueErr.OverdueAmount)
	}

	// A cash sale to the same shop is still allowed.
	cash := creditInvoiceInput(1, "10", 1)
	cash.InvoiceType = "cash"
	if _, err := svcs.invoices.CreateInvoice(ctx, cash); err != nil {
		t.Errorf("cash invoice should bypass the gate: %v", err)
	}
}

func TestInvoice_UpdateReconcilesPayment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	inv, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "9000", 1))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	t.Run("CreditToCredit_AdjustsAmounts", func(t *testing.T) {
		updated, err := svcs.invoices.UpdateInvoice(ctx, inv.ID, creditInvoiceInput(1, "6000", 1))
		if err != nil {
			t.Fatalf("UpdateInvoice: %v", err)
		}
		if !updated.NetTotal.Equal(d("6000")) {
			t.Errorf("netTotal = %s, want 6000", updated.NetTotal)
		}
		if !shopBalance(t, pool, 1).Equal(d("6000")) {
			t.Errorf("balance = %s, want 6000", shopBalance(t, pool, 1))
		}
		var remaining decimal.Decimal
		if err := pool.QueryRow(ctx,
			"SELECT remaining_amount FROM pending_payments WHERE invoice_id = $1", inv.ID,
		).Scan(&remaining); err != nil {
			t.Fatal(err)
		}
		if !remaining.Equal(d("6000")) {
			t.Errorf("remaining = %s, want 6000", remaining)
		}
	})

	t.Run("CreditToCash_DropsReceivable", func(t *testing.T) {
		in := creditInvoiceInput(1, "6000", 1)
		in.InvoiceType = "cash"
		if _, err := svcs.invoices.UpdateInvoice(ctx, inv.ID, in); err != nil {
			t.Fatalf("UpdateInvoice: %v", err)
		}
		var count int
		if err := pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM pending_payments WHERE invoice_id = $1", inv.ID,
		).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Error("receivable should be gone after credit → cash")
		}
		if !shopBalance(t, pool, 1).IsZero() {
			t.Errorf("balance = %s, want 0", shopBalance(t, pool, 1))
		}
	})

	t.Run("CashToCredit_CreatesReceivable", func(t *testing.T) {
		if _, err := svcs.invoices.UpdateInvoice(ctx, inv.ID, creditInvoiceInput(1, "7500", 1)); err != nil {
			t.Fatalf("UpdateInvoice: %v", err)
		}
		var remaining decimal.Decimal
		if err := pool.QueryRow(ctx,
			"SELECT remaining_amount FROM pending_payments WHERE invoice_id = $1", inv.ID,
		).Scan(&remaining); err != nil {
			t.Fatalf("expected a fresh receivable: %v", err)
		}
		if !remaining.Equal(d("7500")) {
			t.Errorf("remaining = %s, want 7500", remaining)
		}
		if !shopBalance(t, pool, 1).Equal(d("7500")) {
			t.Errorf("balance = %s, want 7500", shopBalance(t, pool, 1))
		}
	})
}

func TestInvoice_UpdateUsesPriorExposure(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// Headroom 10000; an existing 8000 credit invoice fills most of it.
	if _, err := pool.Exec(ctx, "UPDATE shops SET balance_amount = 40000 WHERE id = 1"); err != nil {
		t.Fatal(err)
	}
	inv, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "8000", 1))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Raising it to 9500 still fits because its own 8000 is credited back.
	if _, err := svcs.invoices.UpdateInvoice(ctx, inv.ID, creditInvoiceInput(1, "9500", 1)); err != nil {
		t.Fatalf("UpdateInvoice to 9500: %v", err)
	}
	if !shopBalance(t, pool, 1).Equal(d("49500")) {
		t.Errorf("balance = %s, want 49500", shopBalance(t, pool, 1))
	}

	// 11000 exceeds even the adjusted headroom.
	_, err = svcs.invoices.UpdateInvoice(ctx, inv.ID, creditInvoiceInput(1, "11000", 1))
	var limitErr *core.CreditLimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected CreditLimitExceededError, got %v", err)
	}
}

func TestInvoice_UpdateRestoresStockFirst(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// Take 8 of product 1's 10 units.
	inv, err := svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 2,
		Items:          []core.LineInput{{ProductID: 1, Quantity: 8}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Only 2 remain on the shelf, but editing the invoice down to 6 works
	// because its own 8 units are reclaimed before the check.
	if _, err := svcs.invoices.UpdateInvoice(ctx, inv.ID, core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 2,
		Items:          []core.LineInput{{ProductID: 1, Quantity: 6}},
	}); err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}

	qty, totalCost := productValuation(t, pool, 1)
	if qty != 4 || !totalCost.Equal(d("400")) {
		t.Errorf("valuation = (%d, %s), want (4, 400)", qty, totalCost)
	}
}

func TestInvoice_DeleteRestoresStockKeepsBalance(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	inv, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "9000", 1))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if err := svcs.invoices.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}

	if _, err := svcs.invoices.GetInvoice(ctx, inv.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	qty, _ := productValuation(t, pool, 2)
	if qty != 100 {
		t.Errorf("stock not restored, qty = %d", qty)
	}

	// Receivable goes with the invoice; the balance contribution stays.
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM pending_payments").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("receivable should cascade with the invoice")
	}
	if !shopBalance(t, pool, 1).Equal(d("9000")) {
		t.Errorf("balance = %s, want 9000", shopBalance(t, pool, 1))
	}
}

func TestInvoice_SequentialNumbers(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	for i, want := range []string{"INV-001", "INV-002", "INV-003"} {
		inv, err := svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
			Date:           "2026-08-28",
			CounterpartyID: 2,
			Items:          []core.LineInput{{ProductID: 2, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("CreateInvoice %d: %v", i, err)
		}
		if inv.Number != want {
			t.Errorf("invoice %d number = %s, want %s", i, inv.Number, want)
		}
	}

	// Deleting the latest does not free its number for reuse.
	invoices, _, err := svcs.invoices.ListInvoices(ctx, core.ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if err := svcs.invoices.DeleteInvoice(ctx, invoices[0].ID); err != nil {
		t.Fatal(err)
	}
	inv, err := svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
		Date:           "2026-08-28",
		CounterpartyID: 2,
		Items:          []core.LineInput{{ProductID: 2, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Number != "INV-004" {
		t.Errorf("number after delete = %s, want INV-004", inv.Number)
	}
}

func TestInvoice_ConcurrentNumbering(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	// Several writers race for the next number; every invoice must land on
	// its own number with no gaps.
	const writers = 6
	numbers := make(chan string, writers)
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := svcs.invoices.CreateInvoice(ctx, core.DocumentInput{
				Date:           "2026-08-28",
				CounterpartyID: 2,
				Items:          []core.LineInput{{ProductID: 2, Quantity: 1}},
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- inv.Number
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent CreateInvoice: %v", err)
	}

	seen := make(map[string]bool)
	for n := range numbers {
		if seen[n] {
			t.Fatalf("number %s assigned twice", n)
		}
		seen[n] = true
	}
	for i := 1; i <= writers; i++ {
		want := fmt.Sprintf("INV-%03d", i)
		if !seen[want] {
			t.Errorf("missing %s in assigned numbers %v", want, seen)
		}
	}
}

func TestPayment_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	inv, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "9000", 1))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	var paymentID int64
	if err := pool.QueryRow(ctx,
		"SELECT id FROM pending_payments WHERE invoice_id = $1", inv.ID,
	).Scan(&paymentID); err != nil {
		t.Fatal(err)
	}

	p, err := svcs.payments.AddPayment(ctx, paymentID, d("4000"))
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if p.Status != core.PaymentPartial || !p.RemainingAmount.Equal(d("5000")) {
		t.Errorf("after partial payment: (%s, %s), want (partial, 5000)", p.Status, p.RemainingAmount)
	}
	if !shopBalance(t, pool, 1).Equal(d("5000")) {
		t.Errorf("balance = %s, want 5000", shopBalance(t, pool, 1))
	}

	// Overpayment is rejected outright.
	if _, err := svcs.payments.AddPayment(ctx, paymentID, d("5000.01")); err == nil {
		t.Error("expected overpayment to be rejected")
	}
	var vErr *core.ValidationError
	if _, err := svcs.payments.AddPayment(ctx, paymentID, decimal.Zero); !errors.As(err, &vErr) {
		t.Error("expected validation error for zero amount")
	}

	p, err = svcs.payments.AddPayment(ctx, paymentID, d("5000"))
	if err != nil {
		t.Fatalf("AddPayment final: %v", err)
	}
	if p.Status != core.PaymentCompleted || !p.RemainingAmount.IsZero() {
		t.Errorf("after full payment: (%s, %s), want (completed, 0)", p.Status, p.RemainingAmount)
	}
	if !shopBalance(t, pool, 1).IsZero() {
		t.Errorf("balance = %s, want 0", shopBalance(t, pool, 1))
	}

	// A settled receivable no longer gates new credit documents.
	if _, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "500", 1)); err != nil {
		t.Errorf("credit should be open again after settlement: %v", err)
	}
}

func TestPayment_CancelWritesOffReceivable(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	overdue := creditInvoiceInput(1, "9000", 1)
	overdue.Date = "2020-01-10"
	overdue.DueDate = "2020-02-10"
	inv, err := svcs.invoices.CreateInvoice(ctx, overdue)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	var paymentID int64
	if err := pool.QueryRow(ctx,
		"SELECT id FROM pending_payments WHERE invoice_id = $1", inv.ID,
	).Scan(&paymentID); err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.payments.AddPayment(ctx, paymentID, d("4000")); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	// The overdue remainder blocks new credit until it is written off.
	_, err = svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "100", 1))
	var overdueErr *core.OverduePaymentsError
	if !errors.As(err, &overdueErr) {
		t.Fatalf("expected OverduePaymentsError, got %v", err)
	}

	p, err := svcs.payments.CancelPayment(ctx, paymentID)
	if err != nil {
		t.Fatalf("CancelPayment: %v", err)
	}
	if p.Status != core.PaymentCancelled || !p.RemainingAmount.IsZero() {
		t.Errorf("after cancel: (%s, %s), want (cancelled, 0)", p.Status, p.RemainingAmount)
	}
	// The unpaid 5000 comes off the shop balance.
	if !shopBalance(t, pool, 1).IsZero() {
		t.Errorf("balance = %s, want 0", shopBalance(t, pool, 1))
	}

	// Credit reopens once the write-off lands.
	if _, err := svcs.invoices.CreateInvoice(ctx, creditInvoiceInput(1, "100", 1)); err != nil {
		t.Errorf("credit should be open after the write-off: %v", err)
	}

	// A cancelled record takes no further money and cannot cancel twice.
	var vErr *core.ValidationError
	if _, err := svcs.payments.AddPayment(ctx, paymentID, d("1")); err == nil {
		t.Error("expected payment against a cancelled record to be rejected")
	}
	if _, err := svcs.payments.CancelPayment(ctx, paymentID); !errors.As(err, &vErr) {
		t.Errorf("expected validation error on double cancel, got %v", err)
	}

	// The cancelled record is reachable through the status filter.
	payments, total, err := svcs.payments.ListPayments(ctx, core.PaymentFilter{Status: "cancelled"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(payments) != 1 || payments[0].ID != paymentID {
		t.Errorf("cancelled filter returned %d/%d, want the written-off record", len(payments), total)
	}
}

func TestPayment_ListFilters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svcs := newTestServices(pool)

	overdue := creditInvoiceInput(1, "1000", 1)
	overdue.Date = "2020-01-10"
	overdue.DueDate = "2020-02-10"
	if _, err := svcs.invoices.CreateInvoice(ctx, overdue); err != nil {
		t.Fatal(err)
	}

	payments, total, err := svcs.payments.ListPayments(ctx, core.PaymentFilter{Status: "due"})
	if err != nil {
		t.Fatalf("ListPayments(due): %v", err)
	}
	if total != 1 || len(payments) != 1 {
		t.Fatalf("due filter returned %d/%d, want 1/1", len(payments), total)
	}
	if payments[0].DueDate != "2020-02-10" {
		t.Errorf("due date = %s, want 2020-02-10", payments[0].DueDate)
	}

	_, total, err = svcs.payments.ListPayments(ctx, core.PaymentFilter{Status: "completed"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("completed filter returned %d, want 0", total)
	}
}
