package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentFilter narrows ListPayments. Status accepts the stored statuses
// plus the virtual "due" filter (remaining > 0 and past the due date).
type PaymentFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// PaymentService keeps pending-payment records in lockstep with the credit
// status and net total of their invoice, and applies incoming payments.
//
// The *Tx methods run inside a document orchestrator's transaction; they
// also carry the shop balance adjustment that belongs to the transition, so
// receivable and balance can never drift apart.
type PaymentService interface {
	CreateForInvoiceTx(ctx context.Context, tx pgx.Tx, inv *Invoice, settings SettingsSnapshot, dueDate string) error
	ReconcileOnUpdateTx(ctx context.Context, tx pgx.Tx, inv *Invoice, wasCredit bool, oldNetTotal decimal.Decimal, settings SettingsSnapshot, dueDate string) error

	AddPayment(ctx context.Context, paymentID int64, amount decimal.Decimal) (*PendingPayment, error)
	CancelPayment(ctx context.Context, paymentID int64) (*PendingPayment, error)
	GetPayment(ctx context.Context, paymentID int64) (*PendingPayment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PendingPayment, int64, error)
}

type paymentService struct {
	pool *pgxpool.Pool
}

func NewPaymentService(pool *pgxpool.Pool) PaymentService {
	return &paymentService{pool: pool}
}

// PaymentStatusFor derives the status from the paid/net pair:
// completed iff paid ≥ net, partial iff 0 < paid < net, else pending.
func PaymentStatusFor(paid, netTotal decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(netTotal):
		return PaymentCompleted
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// resolveDueDate prefers an explicit due date over invoice date + terms.
func resolveDueDate(invoiceDate, explicit string, termDays int) (string, error) {
	if explicit != "" {
		if _, err := time.Parse("2006-01-02", explicit); err != nil {
			return "", NewValidationError("due_date", "must be YYYY-MM-DD")
		}
		return explicit, nil
	}
	base, err := time.Parse("2006-01-02", invoiceDate)
	if err != nil {
		return "", NewValidationError("date", "must be YYYY-MM-DD")
	}
	return base.AddDate(0, 0, termDays).Format("2006-01-02"), nil
}

// adjustShopBalanceTx applies a signed delta to the shop's outstanding
// receivable balance.
func adjustShopBalanceTx(ctx context.Context, tx pgx.Tx, shopID int64, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	_, err := tx.Exec(ctx,
		"UPDATE shops SET balance_amount = balance_amount + $1 WHERE id = $2",
		delta, shopID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for shop %d: %w", shopID, err)
	}
	return nil
}

// CreateForInvoiceTx inserts the receivable for a freshly written credit
// invoice and raises the shop balance by its net total.
func (s *paymentService) CreateForInvoiceTx(ctx context.Context, tx pgx.Tx, inv *Invoice, settings SettingsSnapshot, dueDate string) error {
	due, err := resolveDueDate(inv.InvoiceDate, dueDate, settings.PaymentTermDays)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pending_payments (invoice_id, shop_id, net_total, paid_amount, remaining_amount, payment_status, due_date)
		VALUES ($1, $2, $3, 0, $3, $4, $5)
	`, inv.ID, inv.ShopID, inv.NetTotal, string(PaymentPending), due)
	if err != nil {
		return fmt.Errorf("failed to insert pending payment for invoice %d: %w", inv.ID, err)
	}

	return adjustShopBalanceTx(ctx, tx, inv.ShopID, inv.NetTotal)
}

// ReconcileOnUpdateTx applies the (was-credit, is-credit) transition table
// after an invoice update:
//
//	credit → credit:     recompute remaining/status, balance += new − old
//	credit → non-credit: drop the receivable, balance −= old
//	non-credit → credit: insert the receivable, balance += new
//	non-credit → non-credit: nothing
func (s *paymentService) ReconcileOnUpdateTx(ctx context.Context, tx pgx.Tx, inv *Invoice, wasCredit bool, oldNetTotal decimal.Decimal, settings SettingsSnapshot, dueDate string) error {
	isCredit := inv.IsCredit()

	switch {
	case wasCredit && isCredit:
		var paid decimal.Decimal
		var current string
		err := tx.QueryRow(ctx,
			"SELECT paid_amount, payment_status FROM pending_payments WHERE invoice_id = $1 FOR UPDATE",
			inv.ID,
		).Scan(&paid, &current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("pending payment for invoice %d: %w", inv.ID, ErrNotFound)
			}
			return fmt.Errorf("failed to lock pending payment for invoice %d: %w", inv.ID, err)
		}

		// A written-off receivable stays written off; only the face value
		// follows the invoice.
		if PaymentStatus(current) == PaymentCancelled {
			if _, err := tx.Exec(ctx, `
				UPDATE pending_payments SET net_total = $1, updated_at = NOW() WHERE invoice_id = $2
			`, inv.NetTotal, inv.ID); err != nil {
				return fmt.Errorf("failed to update pending payment for invoice %d: %w", inv.ID, err)
			}
			return nil
		}

		remaining := inv.NetTotal.Sub(paid)
		status := PaymentStatusFor(paid, inv.NetTotal)
		if _, err := tx.Exec(ctx, `
			UPDATE pending_payments
			SET net_total = $1, remaining_amount = $2, payment_status = $3, updated_at = NOW()
			WHERE invoice_id = $4
		`, inv.NetTotal, remaining, string(status), inv.ID); err != nil {
			return fmt.Errorf("failed to update pending payment for invoice %d: %w", inv.ID, err)
		}
		return adjustShopBalanceTx(ctx, tx, inv.ShopID, inv.NetTotal.Sub(oldNetTotal))

	case wasCredit && !isCredit:
		if _, err := tx.Exec(ctx,
			"DELETE FROM pending_payments WHERE invoice_id = $1", inv.ID); err != nil {
			return fmt.Errorf("failed to delete pending payment for invoice %d: %w", inv.ID, err)
		}
		return adjustShopBalanceTx(ctx, tx, inv.ShopID, oldNetTotal.Neg())

	case !wasCredit && isCredit:
		return s.CreateForInvoiceTx(ctx, tx, inv, settings, dueDate)

	default:
		return nil
	}
}

// AddPayment applies an incoming amount to a receivable. The amount must be
// positive and no larger than the remaining balance; the shop balance drops
// by the same amount.
func (s *paymentService) AddPayment(ctx context.Context, paymentID int64, amount decimal.Decimal) (*PendingPayment, error) {
	if !amount.IsPositive() {
		return nil, NewValidationError("amount", "payment amount must be positive")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var shopID int64
	var netTotal, paid, remaining decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT shop_id, net_total, paid_amount, remaining_amount
		FROM pending_payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID).Scan(&shopID, &netTotal, &paid, &remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pending payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock pending payment %d: %w", paymentID, err)
	}

	if amount.GreaterThan(remaining) {
		return nil, NewValidationError("amount",
			fmt.Sprintf("payment %s exceeds remaining amount %s", amount.StringFixed(2), remaining.StringFixed(2)))
	}

	newPaid := paid.Add(amount)
	newRemaining := netTotal.Sub(newPaid)
	status := PaymentStatusFor(newPaid, netTotal)

	if _, err := tx.Exec(ctx, `
		UPDATE pending_payments
		SET paid_amount = $1, remaining_amount = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $4
	`, newPaid, newRemaining, string(status), paymentID); err != nil {
		return nil, fmt.Errorf("failed to apply payment %d: %w", paymentID, err)
	}

	if err := adjustShopBalanceTx(ctx, tx, shopID, amount.Neg()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return s.GetPayment(ctx, paymentID)
}

// CancelPayment writes a receivable off: the unpaid remainder comes off the
// shop balance, the remaining amount drops to zero and the record closes
// under the cancelled status. Settled and already-cancelled records are
// rejected.
func (s *paymentService) CancelPayment(ctx context.Context, paymentID int64) (*PendingPayment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var shopID int64
	var remaining decimal.Decimal
	var status string
	err = tx.QueryRow(ctx, `
		SELECT shop_id, remaining_amount, payment_status
		FROM pending_payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID).Scan(&shopID, &remaining, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pending payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock pending payment %d: %w", paymentID, err)
	}

	switch PaymentStatus(status) {
	case PaymentCompleted:
		return nil, NewValidationError("status", "settled payments cannot be cancelled")
	case PaymentCancelled:
		return nil, NewValidationError("status", "payment is already cancelled")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE pending_payments
		SET remaining_amount = 0, payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, string(PaymentCancelled), paymentID); err != nil {
		return nil, fmt.Errorf("failed to cancel pending payment %d: %w", paymentID, err)
	}

	if err := adjustShopBalanceTx(ctx, tx, shopID, remaining.Neg()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.GetPayment(ctx, paymentID)
}

const paymentSelect = `
	SELECT pp.id, pp.invoice_id, i.number, pp.shop_id, s.name,
	       pp.net_total, pp.paid_amount, pp.remaining_amount, pp.payment_status,
	       pp.due_date::text, pp.created_at, pp.updated_at
	FROM pending_payments pp
	JOIN invoices i ON i.id = pp.invoice_id
	JOIN shops s    ON s.id = pp.shop_id
`

func scanPayment(row pgx.Row) (*PendingPayment, error) {
	var p PendingPayment
	var status string
	err := row.Scan(
		&p.ID, &p.InvoiceID, &p.InvoiceNumber, &p.ShopID, &p.ShopName,
		&p.NetTotal, &p.PaidAmount, &p.RemainingAmount, &status,
		&p.DueDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = PaymentStatus(status)
	return &p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID int64) (*PendingPayment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, paymentSelect+" WHERE pp.id = $1", paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pending payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch pending payment %d: %w", paymentID, err)
	}
	return p, nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]PendingPayment, int64, error) {
	where := " WHERE 1=1"
	var args []any

	switch filter.Status {
	case "", "all":
	case "due":
		where += " AND pp.remaining_amount > 0 AND pp.due_date < CURRENT_DATE"
	default:
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND pp.payment_status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (i.number ILIKE $%d OR s.name ILIKE $%d)", len(args), len(args))
	}

	countQuery := "SELECT COUNT(*) FROM pending_payments pp JOIN invoices i ON i.id = pp.invoice_id JOIN shops s ON s.id = pp.shop_id" + where
	var total int64
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending payments: %w", err)
	}

	q := ListQuery{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	args = append(args, q.PageSize, ListQuery{Page: filter.Page, PageSize: filter.PageSize}.Offset())
	query := paymentSelect + where + fmt.Sprintf(" ORDER BY pp.due_date, pp.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query pending payments: %w", err)
	}
	defer rows.Close()

	var payments []PendingPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pending payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, total, rows.Err()
}
