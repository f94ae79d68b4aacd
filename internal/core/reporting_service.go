package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SalesSummary aggregates invoices over one date range.
type SalesSummary struct {
	FromDate      string
	ToDate        string
	InvoiceCount  int64
	SubTotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	NetTotal      decimal.Decimal
	TotalCost     decimal.Decimal
	TotalProfit   decimal.Decimal
}

// ShopReceivable is one shop's outstanding position.
type ShopReceivable struct {
	ShopID        int64
	ShopName      string
	BalanceAmount decimal.Decimal
	CreditLimit   decimal.Decimal
	OpenInvoices  int64
	OverdueAmount decimal.Decimal
}

// ProductMovement summarizes one product's flow over a date range.
type ProductMovement struct {
	ProductID    int64
	ProductName  string
	ReceivedQty  int64
	SoldQty      int64
	SalesValue   decimal.Decimal
	SalesProfit  decimal.Decimal
	AvailableQty int64
}

// ReportingService provides read-only aggregates over documents, stock and
// receivables. All queries run against committed state; no locks are taken.
type ReportingService interface {
	// GetSalesSummary aggregates invoices whose date falls in [fromDate,
	// toDate]. Empty bounds are open-ended.
	GetSalesSummary(ctx context.Context, fromDate, toDate string) (*SalesSummary, error)

	// GetReceivables returns per-shop outstanding balances, largest first,
	// with the overdue slice of each.
	GetReceivables(ctx context.Context) ([]ShopReceivable, error)

	// GetProductMovement reports received and sold quantities per product
	// over the range, most-sold first.
	GetProductMovement(ctx context.Context, fromDate, toDate string) ([]ProductMovement, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func validateRange(fromDate, toDate string) error {
	for _, d := range []string{fromDate, toDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return NewValidationError("date", "must be YYYY-MM-DD")
		}
	}
	return nil
}

func (s *reportingService) GetSalesSummary(ctx context.Context, fromDate, toDate string) (*SalesSummary, error) {
	if err := validateRange(fromDate, toDate); err != nil {
		return nil, err
	}

	q := `
		SELECT COUNT(*),
		       COALESCE(SUM(sub_total), 0),
		       COALESCE(SUM(total_discount), 0),
		       COALESCE(SUM(net_total), 0),
		       COALESCE(SUM(total_cost), 0),
		       COALESCE(SUM(total_profit), 0)
		FROM invoices
		WHERE 1=1`
	var args []any
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND invoice_date >= $%d::date", len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND invoice_date <= $%d::date", len(args))
	}

	sum := &SalesSummary{FromDate: fromDate, ToDate: toDate}
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&sum.InvoiceCount, &sum.SubTotal, &sum.TotalDiscount,
		&sum.NetTotal, &sum.TotalCost, &sum.TotalProfit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}
	return sum, nil
}

func (s *reportingService) GetReceivables(ctx context.Context) ([]ShopReceivable, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sh.id, sh.name, sh.balance_amount, sh.credit_limit,
		       COUNT(pp.id) FILTER (WHERE pp.remaining_amount > 0),
		       COALESCE(SUM(pp.remaining_amount) FILTER (
		           WHERE pp.remaining_amount > 0 AND pp.due_date < CURRENT_DATE), 0)
		FROM shops sh
		LEFT JOIN pending_payments pp ON pp.shop_id = sh.id
		GROUP BY sh.id, sh.name, sh.balance_amount, sh.credit_limit
		HAVING sh.balance_amount > 0 OR COUNT(pp.id) FILTER (WHERE pp.remaining_amount > 0) > 0
		ORDER BY sh.balance_amount DESC, sh.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivables: %w", err)
	}
	defer rows.Close()

	var out []ShopReceivable
	for rows.Next() {
		var r ShopReceivable
		if err := rows.Scan(&r.ShopID, &r.ShopName, &r.BalanceAmount, &r.CreditLimit,
			&r.OpenInvoices, &r.OverdueAmount); err != nil {
			return nil, fmt.Errorf("failed to scan receivable: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *reportingService) GetProductMovement(ctx context.Context, fromDate, toDate string) ([]ProductMovement, error) {
	if err := validateRange(fromDate, toDate); err != nil {
		return nil, err
	}

	// Received and sold sides are aggregated separately, then joined onto
	// the product registry so untouched products drop out.
	q := `
		SELECT p.id, p.name,
		       COALESCE(r.received_qty, 0),
		       COALESCE(sl.sold_qty, 0),
		       COALESCE(sl.sales_value, 0),
		       COALESCE(sl.sales_profit, 0),
		       p.available_qty
		FROM products p
		LEFT JOIN (
		    SELECT gi.product_id, SUM(gi.quantity) AS received_qty
		    FROM grn_items gi
		    JOIN grns g ON g.id = gi.grn_id
		    WHERE ($1 = '' OR g.grn_date >= $1::date)
		      AND ($2 = '' OR g.grn_date <= $2::date)
		    GROUP BY gi.product_id
		) r ON r.product_id = p.id
		LEFT JOIN (
		    SELECT ii.product_id,
		           SUM(ii.quantity)    AS sold_qty,
		           SUM(ii.total_price) AS sales_value,
		           SUM(ii.item_profit) AS sales_profit
		    FROM invoice_items ii
		    JOIN invoices i ON i.id = ii.invoice_id
		    WHERE ($1 = '' OR i.invoice_date >= $1::date)
		      AND ($2 = '' OR i.invoice_date <= $2::date)
		    GROUP BY ii.product_id
		) sl ON sl.product_id = p.id
		WHERE r.received_qty IS NOT NULL OR sl.sold_qty IS NOT NULL
		ORDER BY COALESCE(sl.sold_qty, 0) DESC, p.name`

	rows, err := s.pool.Query(ctx, q, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query product movement: %w", err)
	}
	defer rows.Close()

	var out []ProductMovement
	for rows.Next() {
		var m ProductMovement
		if err := rows.Scan(&m.ProductID, &m.ProductName, &m.ReceivedQty,
			&m.SoldQty, &m.SalesValue, &m.SalesProfit, &m.AvailableQty); err != nil {
			return nil, fmt.Errorf("failed to scan product movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
