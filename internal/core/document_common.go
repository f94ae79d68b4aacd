package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// parseDocDate validates the YYYY-MM-DD document date.
func parseDocDate(date string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, NewValidationError("date", "must be YYYY-MM-DD")
	}
	return t, nil
}

// validateDocumentInput runs the field checks shared by all document types.
func validateDocumentInput(in DocumentInput) (time.Time, error) {
	date, err := parseDocDate(in.Date)
	if err != nil {
		return time.Time{}, err
	}
	if in.CounterpartyID == 0 {
		return time.Time{}, NewValidationError("counterparty_id", "is required")
	}
	if len(in.Items) == 0 {
		return time.Time{}, NewValidationError("items", "at least one line item is required")
	}
	for i, item := range in.Items {
		if item.ProductID == 0 {
			return time.Time{}, NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.Quantity <= 0 {
			return time.Time{}, NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if item.Discount.IsNegative() {
			return time.Time{}, NewValidationError(fmt.Sprintf("items[%d].discount", i), "cannot be negative")
		}
	}
	return date, nil
}

// aggregateRequirements sums requested quantities per product for the
// fail-fast stock check.
func aggregateRequirements(items []LineInput) []StockRequirement {
	byProduct := make(map[int64]int64)
	var order []int64
	for _, item := range items {
		if _, seen := byProduct[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		byProduct[item.ProductID] += item.Quantity
	}
	reqs := make([]StockRequirement, 0, len(order))
	for _, id := range order {
		reqs = append(reqs, StockRequirement{ProductID: id, Quantity: byProduct[id]})
	}
	return reqs
}

// pricingParamsFor maps a document input onto the pricing engine's params.
func pricingParamsFor(in DocumentInput) PricingParams {
	return PricingParams{
		InvoiceType:            in.InvoiceType,
		InvoiceTypePercentage:  in.InvoiceTypePercentage,
		CashDiscountEnabled:    in.CashDiscountEnabled,
		CashDiscountPercentage: in.CashDiscountPercentage,
	}
}

// lockShopTx reads and locks the shop row so gate reads and balance writes
// within the transaction cannot race a concurrent document.
func lockShopTx(ctx context.Context, tx pgx.Tx, shopID int64) (*Shop, error) {
	var s Shop
	err := tx.QueryRow(ctx, `
		SELECT id, name, address, phone, credit_limit, balance_amount, created_at
		FROM shops
		WHERE id = $1
		FOR UPDATE
	`, shopID).Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.CreditLimit, &s.BalanceAmount, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shop %d: %w", shopID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock shop %d: %w", shopID, err)
	}
	return &s, nil
}

// supplierExistsTx verifies the GRN counterparty.
func supplierExistsTx(ctx context.Context, tx pgx.Tx, supplierID int64) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)", supplierID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to verify supplier %d: %w", supplierID, err)
	}
	if !exists {
		return fmt.Errorf("supplier %d: %w", supplierID, ErrNotFound)
	}
	return nil
}

// resolveLines snapshots product prices for the requested lines. useCostPrice
// selects the supplier-side default (GRNs); otherwise the selling price. A
// non-zero UnitPrice on the input overrides the product default.
func resolveLines(ctx context.Context, tx pgx.Tx, items []LineInput, useCostPrice bool) ([]PriceInput, error) {
	inputs := make([]PriceInput, 0, len(items))
	for i, item := range items {
		var sellingPrice, costPrice decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT selling_price, cost_price FROM products WHERE id = $1 AND is_active = true",
			item.ProductID,
		).Scan(&sellingPrice, &costPrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: product %d: %w", i+1, item.ProductID, ErrNotFound)
			}
			return nil, fmt.Errorf("line %d: failed to resolve product %d: %w", i+1, item.ProductID, err)
		}

		price := item.UnitPrice
		if price.IsZero() {
			if useCostPrice {
				price = costPrice
			} else {
				price = sellingPrice
			}
		}

		inputs = append(inputs, PriceInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			Discount:  item.Discount,
		})
	}
	return inputs, nil
}
