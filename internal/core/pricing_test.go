package core_test

import (
	"testing"

	"distribution-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestIsCreditType(t *testing.T) {
	cases := map[string]bool{
		"credit":         true,
		"Credit":         true,
		"30-day credit":  true,
		"CREDIT-SPECIAL": true,
		"cash":           false,
		"":               false,
		"wholesale":      false,
	}
	for label, want := range cases {
		if got := core.IsCreditType(label); got != want {
			t.Errorf("IsCreditType(%q) = %v, want %v", label, got, want)
		}
	}
}

func TestComputeTotals_TwoDeductions(t *testing.T) {
	// 10 × 120 − 200 = 1000 subtotal, then 10% type and 5% cash discount,
	// both on the subtotal: 1000 − 100 − 50 = 850.
	lines := []core.PriceInput{
		{ProductID: 1, Quantity: 10, UnitPrice: d("120"), Discount: d("200")},
	}
	params := core.PricingParams{
		InvoiceType:           "credit",
		InvoiceTypePercentage: d("10"),
		CashDiscountEnabled:   true,
	}
	settings := core.SettingsSnapshot{CashDiscountPercent: d("5")}

	totals := core.ComputeTotals(lines, params, settings)

	if !totals.SubTotal.Equal(d("1000")) {
		t.Errorf("SubTotal = %s, want 1000", totals.SubTotal)
	}
	if !totals.TotalDiscount.Equal(d("200")) {
		t.Errorf("TotalDiscount = %s, want 200", totals.TotalDiscount)
	}
	if !totals.InvoiceTypeDiscount.Equal(d("100")) {
		t.Errorf("InvoiceTypeDiscount = %s, want 100", totals.InvoiceTypeDiscount)
	}
	if !totals.CashDiscount.Equal(d("50")) {
		t.Errorf("CashDiscount = %s, want 50", totals.CashDiscount)
	}
	if !totals.NetTotal.Equal(d("850")) {
		t.Errorf("NetTotal = %s, want 850", totals.NetTotal)
	}
	if !totals.CashDiscountPercentage.Equal(d("5")) {
		t.Errorf("CashDiscountPercentage = %s, want 5 (resolved from settings)", totals.CashDiscountPercentage)
	}
}

func TestComputeTotals_NoTypeNoCash(t *testing.T) {
	lines := []core.PriceInput{
		{ProductID: 1, Quantity: 3, UnitPrice: d("100")},
		{ProductID: 2, Quantity: 2, UnitPrice: d("50"), Discount: d("10")},
	}
	totals := core.ComputeTotals(lines, core.PricingParams{}, core.SettingsSnapshot{CashDiscountPercent: d("5")})

	if !totals.SubTotal.Equal(d("390")) {
		t.Errorf("SubTotal = %s, want 390", totals.SubTotal)
	}
	// Cash discount disabled: settings percentage must not leak in.
	if !totals.NetTotal.Equal(d("390")) {
		t.Errorf("NetTotal = %s, want 390", totals.NetTotal)
	}
	if !totals.CashDiscountPercentage.IsZero() {
		t.Errorf("CashDiscountPercentage = %s, want 0", totals.CashDiscountPercentage)
	}
}

func TestComputeTotals_TypePercentageIgnoredWithoutType(t *testing.T) {
	lines := []core.PriceInput{{ProductID: 1, Quantity: 1, UnitPrice: d("100")}}
	params := core.PricingParams{InvoiceType: "", InvoiceTypePercentage: d("10")}

	totals := core.ComputeTotals(lines, params, core.SettingsSnapshot{})
	if !totals.NetTotal.Equal(d("100")) {
		t.Errorf("NetTotal = %s, want 100 (no type selected)", totals.NetTotal)
	}
}

func TestComputeTotals_ExplicitCashPercentageWins(t *testing.T) {
	pct := d("2.5")
	lines := []core.PriceInput{{ProductID: 1, Quantity: 1, UnitPrice: d("1000")}}
	params := core.PricingParams{CashDiscountEnabled: true, CashDiscountPercentage: &pct}

	totals := core.ComputeTotals(lines, params, core.SettingsSnapshot{CashDiscountPercent: d("5")})
	if !totals.CashDiscount.Equal(d("25")) {
		t.Errorf("CashDiscount = %s, want 25", totals.CashDiscount)
	}
	if !totals.CashDiscountPercentage.Equal(pct) {
		t.Errorf("CashDiscountPercentage = %s, want 2.5", totals.CashDiscountPercentage)
	}
}

func TestComputeTotals_PerLineDeductionsSumToAggregate(t *testing.T) {
	lines := []core.PriceInput{
		{ProductID: 1, Quantity: 4, UnitPrice: d("125")},
		{ProductID: 2, Quantity: 7, UnitPrice: d("60"), Discount: d("20")},
		{ProductID: 3, Quantity: 1, UnitPrice: d("99.99")},
	}
	params := core.PricingParams{
		InvoiceType:           "credit",
		InvoiceTypePercentage: d("8"),
		CashDiscountEnabled:   true,
	}
	totals := core.ComputeTotals(lines, params, core.SettingsSnapshot{CashDiscountPercent: d("3")})

	var typeSum, cashSum decimal.Decimal
	for _, l := range totals.Lines {
		typeSum = typeSum.Add(l.InvoiceTypeDeduction)
		cashSum = cashSum.Add(l.CashDeduction)
	}
	if !typeSum.Equal(totals.InvoiceTypeDiscount) {
		t.Errorf("per-line type deductions sum %s != aggregate %s", typeSum, totals.InvoiceTypeDiscount)
	}
	if !cashSum.Equal(totals.CashDiscount) {
		t.Errorf("per-line cash deductions sum %s != aggregate %s", cashSum, totals.CashDiscount)
	}
}

func TestLineProfit_SumsToNetMinusCost(t *testing.T) {
	lines := []core.PriceInput{
		{ProductID: 1, Quantity: 5, UnitPrice: d("200")},
		{ProductID: 2, Quantity: 2, UnitPrice: d("150"), Discount: d("50")},
	}
	params := core.PricingParams{
		InvoiceType:           "credit",
		InvoiceTypePercentage: d("10"),
	}
	totals := core.ComputeTotals(lines, params, core.SettingsSnapshot{})

	itemCosts := []decimal.Decimal{d("600"), d("120")}
	var profitSum, costSum decimal.Decimal
	for i, l := range totals.Lines {
		profitSum = profitSum.Add(core.LineProfit(l, itemCosts[i]))
		costSum = costSum.Add(itemCosts[i])
	}

	want := totals.NetTotal.Sub(costSum)
	if !profitSum.Equal(want) {
		t.Errorf("profit sum = %s, want netTotal − totalCost = %s", profitSum, want)
	}
}
