package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IsCreditType reports whether a discount/invoice type label names a credit
// instrument. The match is a case-insensitive substring check on purpose:
// any label that mentions credit is treated as deferred payment.
func IsCreditType(invoiceType string) bool {
	return strings.Contains(strings.ToLower(invoiceType), "credit")
}

// PricingParams are the document-level discount inputs.
type PricingParams struct {
	InvoiceType           string
	InvoiceTypePercentage decimal.Decimal
	CashDiscountEnabled   bool
	// CashDiscountPercentage, when nil, falls back to the settings snapshot.
	// Documents store the resolved value so old documents keep showing the
	// percentage that was active when they were written.
	CashDiscountPercentage *decimal.Decimal
}

// PricedLine is the engine's output for one line: the gross price, the
// discounted line total, and this line's own share of the two document-level
// percentage deductions.
type PricedLine struct {
	ProductID            int64
	Quantity             int64
	UnitPrice            decimal.Decimal
	Discount             decimal.Decimal
	Price                decimal.Decimal
	TotalPrice           decimal.Decimal
	InvoiceTypeDeduction decimal.Decimal
	CashDeduction        decimal.Decimal
}

// DocumentTotals aggregates the priced lines.
// NetTotal = SubTotal − InvoiceTypeDiscount − CashDiscount.
// TotalDiscount is the sum of per-line discounts only; the two percentage
// deductions are carried separately.
type DocumentTotals struct {
	SubTotal               decimal.Decimal
	TotalDiscount          decimal.Decimal
	InvoiceTypeDiscount    decimal.Decimal
	CashDiscount           decimal.Decimal
	NetTotal               decimal.Decimal
	CashDiscountPercentage decimal.Decimal // resolved rate actually applied
	Lines                  []PricedLine
}

// PriceInput is a resolved line ready for pricing: quantity and the
// snapshotted unit price plus any line-level discount.
type PriceInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// ComputeTotals prices a document. It is a pure function of its inputs.
//
// Per line: price = quantity × unitPrice; totalPrice = price − discount.
// On the aggregate, two independent percentage deductions apply in fixed
// order: the invoice-type percentage (only when a type is selected), then
// the cash discount (only when enabled). Each line also carries its own
// share of both deductions, computed on the line's totalPrice rather than
// as a proportional split of the aggregate, so per-line profit sums to the
// aggregate profit up to rounding.
func ComputeTotals(lines []PriceInput, params PricingParams, settings SettingsSnapshot) DocumentTotals {
	typePct := decimal.Zero
	if params.InvoiceType != "" {
		typePct = params.InvoiceTypePercentage
	}

	cashPct := decimal.Zero
	if params.CashDiscountEnabled {
		if params.CashDiscountPercentage != nil {
			cashPct = *params.CashDiscountPercentage
		} else {
			cashPct = settings.CashDiscountPercent
		}
	}

	totals := DocumentTotals{CashDiscountPercentage: cashPct}
	for _, in := range lines {
		qty := decimal.NewFromInt(in.Quantity)
		price := qty.Mul(in.UnitPrice)
		totalPrice := price.Sub(in.Discount)

		pl := PricedLine{
			ProductID:            in.ProductID,
			Quantity:             in.Quantity,
			UnitPrice:            in.UnitPrice,
			Discount:             in.Discount,
			Price:                price,
			TotalPrice:           totalPrice,
			InvoiceTypeDeduction: totalPrice.Mul(typePct).Div(hundred),
			CashDeduction:        totalPrice.Mul(cashPct).Div(hundred),
		}
		totals.Lines = append(totals.Lines, pl)
		totals.SubTotal = totals.SubTotal.Add(totalPrice)
		totals.TotalDiscount = totals.TotalDiscount.Add(in.Discount)
	}

	totals.InvoiceTypeDiscount = totals.SubTotal.Mul(typePct).Div(hundred)
	totals.CashDiscount = totals.SubTotal.Mul(cashPct).Div(hundred)
	totals.NetTotal = totals.SubTotal.Sub(totals.InvoiceTypeDiscount).Sub(totals.CashDiscount)
	return totals
}

// LineProfit completes a line's profit once its cost basis is known:
// totalPrice − own invoice-type deduction − own cash deduction − itemCost.
func LineProfit(l PricedLine, itemCost decimal.Decimal) decimal.Decimal {
	return l.TotalPrice.Sub(l.InvoiceTypeDeduction).Sub(l.CashDeduction).Sub(itemCost)
}
