package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreditGate validates a prospective credit-type document against the shop's
// available credit and its unresolved overdue receivables. Non-credit
// documents are never gated.
type CreditGate struct{}

func NewCreditGate() *CreditGate {
	return &CreditGate{}
}

// CanExtendCredit is the pure limit check: the prospective total must fit in
// creditLimit − balance + priorExposure, where priorExposure is the credit
// amount the document being rewritten already contributes to the balance.
// Monotone: if an amount is blocked, every larger amount is blocked too.
func CanExtendCredit(creditLimit, balance, priorExposure, prospective decimal.Decimal) bool {
	available := creditLimit.Sub(balance).Add(priorExposure)
	return prospective.LessThanOrEqual(available)
}

// CheckTx gates a prospective document within the caller's transaction.
// The shop row should already be locked by the orchestrator so the balance
// read here cannot race the balance write at commit.
//
// Overdue receivables are a hard precondition: any pending payment of the
// shop past its due date with a remaining amount blocks every new credit
// document, even one that would fit the limit.
func (g *CreditGate) CheckTx(ctx context.Context, tx pgx.Tx, shop *Shop, prospective, priorExposure decimal.Decimal, invoiceType string) error {
	if !IsCreditType(invoiceType) {
		return nil
	}

	var overdueCount int
	var overdueAmount decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(remaining_amount), 0)
		FROM pending_payments
		WHERE shop_id = $1
		  AND payment_status NOT IN ('completed', 'cancelled')
		  AND remaining_amount > 0
		  AND due_date < CURRENT_DATE
	`, shop.ID).Scan(&overdueCount, &overdueAmount)
	if err != nil {
		return fmt.Errorf("failed to check overdue payments for shop %d: %w", shop.ID, err)
	}
	if overdueCount > 0 {
		return &OverduePaymentsError{
			ShopID:        shop.ID,
			ShopName:      shop.Name,
			OverdueCount:  overdueCount,
			OverdueAmount: overdueAmount,
		}
	}

	if !CanExtendCredit(shop.CreditLimit, shop.BalanceAmount, priorExposure, prospective) {
		return &CreditLimitExceededError{
			ShopID:          shop.ID,
			ShopName:        shop.Name,
			AvailableCredit: shop.AvailableCredit().Add(priorExposure),
			Requested:       prospective,
		}
	}
	return nil
}
