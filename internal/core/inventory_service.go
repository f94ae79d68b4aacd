package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StockRequirement is one product's total requested quantity in a document.
type StockRequirement struct {
	ProductID int64
	Quantity  int64
}

// InventoryLedger owns the per-product valuation pair (available_qty,
// total_cost) and applies quantity/cost deltas for receipts, consumptions
// and their exact inverses.
//
// All mutating operations are TX-scoped: the document orchestrators call
// them inside their own transaction so inventory writes commit or roll back
// with the header and lines. CheckAvailability is the cheap fail-fast check
// against a fresh read before the transaction starts; ApplyConsumptionTx
// re-checks under the row lock as the final guard against races.
type InventoryLedger interface {
	CheckAvailability(ctx context.Context, reqs []StockRequirement, reclaim map[int64]int64) error

	// ApplyReceiptTx adds qty units at unitCost to the product's stock.
	ApplyReceiptTx(ctx context.Context, tx pgx.Tx, productID, qty int64, unitCost decimal.Decimal) error
	// ReverseReceiptTx undoes a prior receipt using the recorded cost basis,
	// not a recomputed one, so the undo introduces no valuation error.
	ReverseReceiptTx(ctx context.Context, tx pgx.Tx, productID, qty int64, recordedCost decimal.Decimal) error

	// ApplyConsumptionTx removes qty units, deriving the unit cost from the
	// valuation at the moment of consumption, and returns the consumed cost.
	ApplyConsumptionTx(ctx context.Context, tx pgx.Tx, productID, qty int64) (decimal.Decimal, error)
	// ReverseConsumptionTx restores qty units and the recorded item cost.
	ReverseConsumptionTx(ctx context.Context, tx pgx.Tx, productID, qty int64, recordedItemCost decimal.Decimal) error
}

type inventoryLedger struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewInventoryLedger(pool *pgxpool.Pool, log zerolog.Logger) InventoryLedger {
	return &inventoryLedger{pool: pool, log: log}
}

// CheckAvailability verifies every requirement against a fresh read, outside
// any transaction. reclaim credits back quantities currently held by the
// document being edited, keyed by product id, so an update that keeps stock
// balanced does not fail fast spuriously. The authoritative check still runs
// inside the transaction.
func (l *inventoryLedger) CheckAvailability(ctx context.Context, reqs []StockRequirement, reclaim map[int64]int64) error {
	for _, req := range reqs {
		var name string
		var available int64
		err := l.pool.QueryRow(ctx,
			"SELECT name, available_qty FROM products WHERE id = $1 AND is_active = true",
			req.ProductID,
		).Scan(&name, &available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("product %d: %w", req.ProductID, ErrNotFound)
			}
			return fmt.Errorf("failed to read stock for product %d: %w", req.ProductID, err)
		}

		effective := available + reclaim[req.ProductID]
		if req.Quantity > effective {
			return &InsufficientStockError{
				ProductID:   req.ProductID,
				ProductName: name,
				Available:   effective,
				Requested:   req.Quantity,
			}
		}
	}
	return nil
}

// lockProduct reads the valuation pair under FOR UPDATE.
func lockProduct(ctx context.Context, tx pgx.Tx, productID int64) (name string, qty int64, totalCost decimal.Decimal, err error) {
	err = tx.QueryRow(ctx,
		"SELECT name, available_qty, total_cost FROM products WHERE id = $1 FOR UPDATE",
		productID,
	).Scan(&name, &qty, &totalCost)
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return
}

func writeValuation(ctx context.Context, tx pgx.Tx, productID, qty int64, totalCost decimal.Decimal) error {
	_, err := tx.Exec(ctx,
		"UPDATE products SET available_qty = $1, total_cost = $2, updated_at = NOW() WHERE id = $3",
		qty, totalCost, productID)
	if err != nil {
		return fmt.Errorf("failed to update valuation for product %d: %w", productID, err)
	}
	return nil
}

func (l *inventoryLedger) ApplyReceiptTx(ctx context.Context, tx pgx.Tx, productID, qty int64, unitCost decimal.Decimal) error {
	if qty <= 0 {
		return NewValidationError("quantity", fmt.Sprintf("receipt quantity must be positive, got %d", qty))
	}
	if unitCost.IsNegative() {
		return NewValidationError("unit_cost", fmt.Sprintf("unit cost cannot be negative, got %s", unitCost))
	}

	_, onHand, totalCost, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return err
	}

	addedCost := decimal.NewFromInt(qty).Mul(unitCost)
	return writeValuation(ctx, tx, productID, onHand+qty, totalCost.Add(addedCost))
}

func (l *inventoryLedger) ReverseReceiptTx(ctx context.Context, tx pgx.Tx, productID, qty int64, recordedCost decimal.Decimal) error {
	name, onHand, totalCost, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return err
	}

	newQty := onHand - qty
	if newQty < 0 {
		l.log.Warn().Int64("product_id", productID).Str("product", name).
			Int64("on_hand", onHand).Int64("reversed_qty", qty).
			Msg("receipt reversal clamped quantity at zero")
		newQty = 0
	}
	newCost := totalCost.Sub(recordedCost)
	if newCost.IsNegative() {
		l.log.Warn().Int64("product_id", productID).Str("product", name).
			Str("total_cost", totalCost.String()).Str("reversed_cost", recordedCost.String()).
			Msg("receipt reversal clamped cost basis at zero")
		newCost = decimal.Zero
	}
	return writeValuation(ctx, tx, productID, newQty, newCost)
}

// ApplyConsumptionTx derives the unit cost at the moment of consumption:
// unitCost = totalCost / max(availableQty, 1). Floors at zero are a
// deliberate clamp absorbing drift under concurrent consumption; they are
// logged rather than silently applied.
func (l *inventoryLedger) ApplyConsumptionTx(ctx context.Context, tx pgx.Tx, productID, qty int64) (decimal.Decimal, error) {
	if qty <= 0 {
		return decimal.Zero, NewValidationError("quantity", fmt.Sprintf("consumption quantity must be positive, got %d", qty))
	}

	name, onHand, totalCost, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return decimal.Zero, err
	}

	// Final in-transaction stock guard: another writer may have consumed
	// stock between the fail-fast check and this lock.
	if qty > onHand {
		return decimal.Zero, &InsufficientStockError{
			ProductID:   productID,
			ProductName: name,
			Available:   onHand,
			Requested:   qty,
		}
	}

	divisor := onHand
	if divisor < 1 {
		divisor = 1
	}
	unitCost := totalCost.Div(decimal.NewFromInt(divisor))
	itemCost := unitCost.Mul(decimal.NewFromInt(qty))

	newCost := totalCost.Sub(itemCost)
	if newCost.IsNegative() {
		l.log.Warn().Int64("product_id", productID).Str("product", name).
			Str("total_cost", totalCost.String()).Str("item_cost", itemCost.String()).
			Msg("consumption clamped cost basis at zero")
		newCost = decimal.Zero
	}

	if err := writeValuation(ctx, tx, productID, onHand-qty, newCost); err != nil {
		return decimal.Zero, err
	}
	return itemCost, nil
}

func (l *inventoryLedger) ReverseConsumptionTx(ctx context.Context, tx pgx.Tx, productID, qty int64, recordedItemCost decimal.Decimal) error {
	_, onHand, totalCost, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	return writeValuation(ctx, tx, productID, onHand+qty, totalCost.Add(recordedItemCost))
}
