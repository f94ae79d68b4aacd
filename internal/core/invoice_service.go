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

// InvoiceService orchestrates the sales-invoice lifecycle: each operation is
// one atomic transaction composing number assignment, pricing, the credit
// gate, inventory consumption and pending-payment reconciliation.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, in DocumentInput) (*Invoice, error)
	// UpdateInvoice replaces the line items wholesale: prior inventory
	// effects are reversed with their recorded costs, then the document is
	// repriced, re-gated and reapplied.
	UpdateInvoice(ctx context.Context, invoiceID int64, in DocumentInput) (*Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
	GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error)
	ListInvoices(ctx context.Context, q ListQuery) ([]Invoice, int64, error)
}

type invoiceService struct {
	pool      *pgxpool.Pool
	inventory InventoryLedger
	sequences SequenceService
	payments  PaymentService
	gate      *CreditGate
	settings  SettingsSource
	log       zerolog.Logger
}

func NewInvoiceService(pool *pgxpool.Pool, inventory InventoryLedger, sequences SequenceService,
	payments PaymentService, gate *CreditGate, settings SettingsSource, log zerolog.Logger) InvoiceService {
	return &invoiceService{
		pool:      pool,
		inventory: inventory,
		sequences: sequences,
		payments:  payments,
		gate:      gate,
		settings:  settings,
		log:       log,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in DocumentInput) (*Invoice, error) {
	date, err := validateDocumentInput(in)
	if err != nil {
		return nil, err
	}

	// Cheap fail-fast check before opening the transaction; the ledger
	// re-checks under the row lock.
	if err := s.inventory.CheckAvailability(ctx, aggregateRequirements(in.Items), nil); err != nil {
		return nil, err
	}

	settings := s.settings.Snapshot()

	var invoiceID int64
	err = withNumberRetry(ctx, defaultNumberAttempts, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		shop, err := lockShopTx(ctx, tx, in.CounterpartyID)
		if err != nil {
			return err
		}

		inputs, err := resolveLines(ctx, tx, in.Items, false)
		if err != nil {
			return err
		}
		totals := ComputeTotals(inputs, pricingParamsFor(in), settings)

		if err := s.gate.CheckTx(ctx, tx, shop, totals.NetTotal, decimal.Zero, in.InvoiceType); err != nil {
			return err
		}

		number, err := s.sequences.NextNumberTx(ctx, tx, InvoiceFamily, date)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO invoices (number, invoice_date, shop_id, sub_total, total_discount,
			                      invoice_type, invoice_type_percentage,
			                      cash_discount_enabled, cash_discount_percentage,
			                      net_total, total_cost, total_profit, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, 0, $11, $12)
			RETURNING id
		`, number, in.Date, shop.ID, totals.SubTotal, totals.TotalDiscount,
			in.InvoiceType, in.InvoiceTypePercentage,
			in.CashDiscountEnabled, totals.CashDiscountPercentage,
			totals.NetTotal, in.Notes, in.CreatedBy,
		).Scan(&invoiceID)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		totalCost, totalProfit, err := s.writeItemsTx(ctx, tx, invoiceID, totals.Lines)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"UPDATE invoices SET total_cost = $1, total_profit = $2 WHERE id = $3",
			totalCost, totalProfit, invoiceID); err != nil {
			return fmt.Errorf("failed to store invoice cost totals: %w", err)
		}

		if IsCreditType(in.InvoiceType) {
			inv := &Invoice{ID: invoiceID, ShopID: shop.ID, InvoiceDate: in.Date, NetTotal: totals.NetTotal}
			if err := s.payments.CreateForInvoiceTx(ctx, tx, inv, settings, in.DueDate); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit invoice: %w", err)
		}

		s.log.Info().Int64("invoice_id", invoiceID).Str("number", number).
			Str("net_total", totals.NetTotal.StringFixed(2)).Str("created_by", in.CreatedBy).
			Msg("invoice created")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, invoiceID)
}

// writeItemsTx consumes stock per line and inserts the snapshotted items,
// returning the accumulated cost and profit.
func (s *invoiceService) writeItemsTx(ctx context.Context, tx pgx.Tx, invoiceID int64, lines []PricedLine) (decimal.Decimal, decimal.Decimal, error) {
	var totalCost, totalProfit decimal.Decimal
	for i, pl := range lines {
		itemCost, err := s.inventory.ApplyConsumptionTx(ctx, tx, pl.ProductID, pl.Quantity)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		itemProfit := LineProfit(pl, itemCost)

		if _, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, product_id, quantity, selling_price,
			                           discount, price, total_price, item_cost, item_profit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, invoiceID, pl.ProductID, pl.Quantity, pl.UnitPrice,
			pl.Discount, pl.Price, pl.TotalPrice, itemCost, itemProfit); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to insert invoice line %d: %w", i+1, err)
		}

		totalCost = totalCost.Add(itemCost)
		totalProfit = totalProfit.Add(itemProfit)
	}
	return totalCost, totalProfit, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, invoiceID int64, in DocumentInput) (*Invoice, error) {
	if _, err := validateDocumentInput(in); err != nil {
		return nil, err
	}

	// The fail-fast check credits back the quantities this invoice already
	// holds, otherwise an edit of a document owning most of the stock would
	// always fail here.
	old, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if in.CounterpartyID != old.ShopID {
		return nil, NewValidationError("counterparty_id", "cannot change the shop of an existing invoice")
	}
	reclaim := make(map[int64]int64)
	for _, item := range old.Items {
		reclaim[item.ProductID] += item.Quantity
	}
	if err := s.inventory.CheckAvailability(ctx, aggregateRequirements(in.Items), reclaim); err != nil {
		return nil, err
	}

	settings := s.settings.Snapshot()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var shopID int64
	var oldType string
	var oldNet decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT shop_id, invoice_type, net_total FROM invoices WHERE id = $1 FOR UPDATE",
		invoiceID,
	).Scan(&shopID, &oldType, &oldNet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock invoice %d: %w", invoiceID, err)
	}
	wasCredit := IsCreditType(oldType)

	shop, err := lockShopTx(ctx, tx, shopID)
	if err != nil {
		return nil, err
	}

	// Reverse the prior inventory effects with the recorded quantities and
	// costs, then drop the old lines wholesale.
	if err := s.reverseItemsTx(ctx, tx, invoiceID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", invoiceID); err != nil {
		return nil, fmt.Errorf("failed to delete invoice lines: %w", err)
	}

	inputs, err := resolveLines(ctx, tx, in.Items, false)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(inputs, pricingParamsFor(in), settings)

	priorExposure := decimal.Zero
	if wasCredit {
		priorExposure = oldNet
	}
	if err := s.gate.CheckTx(ctx, tx, shop, totals.NetTotal, priorExposure, in.InvoiceType); err != nil {
		return nil, err
	}

	totalCost, totalProfit, err := s.writeItemsTx(ctx, tx, invoiceID, totals.Lines)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_date = $1, sub_total = $2, total_discount = $3,
		    invoice_type = $4, invoice_type_percentage = $5,
		    cash_discount_enabled = $6, cash_discount_percentage = $7,
		    net_total = $8, total_cost = $9, total_profit = $10,
		    notes = $11, created_by = $12, updated_at = NOW()
		WHERE id = $13
	`, in.Date, totals.SubTotal, totals.TotalDiscount,
		in.InvoiceType, in.InvoiceTypePercentage,
		in.CashDiscountEnabled, totals.CashDiscountPercentage,
		totals.NetTotal, totalCost, totalProfit,
		in.Notes, in.CreatedBy, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to update invoice %d: %w", invoiceID, err)
	}

	inv := &Invoice{ID: invoiceID, ShopID: shopID, InvoiceDate: in.Date, InvoiceType: in.InvoiceType, NetTotal: totals.NetTotal}
	if err := s.payments.ReconcileOnUpdateTx(ctx, tx, inv, wasCredit, oldNet, settings, in.DueDate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice update: %w", err)
	}

	s.log.Info().Int64("invoice_id", invoiceID).
		Str("net_total", totals.NetTotal.StringFixed(2)).Msg("invoice updated")
	return s.GetInvoice(ctx, invoiceID)
}

// reverseItemsTx restores stock and cost basis for every recorded line.
func (s *invoiceService) reverseItemsTx(ctx context.Context, tx pgx.Tx, invoiceID int64) error {
	rows, err := tx.Query(ctx,
		"SELECT product_id, quantity, item_cost FROM invoice_items WHERE invoice_id = $1",
		invoiceID)
	if err != nil {
		return fmt.Errorf("failed to fetch invoice lines: %w", err)
	}

	type recorded struct {
		productID int64
		quantity  int64
		itemCost  decimal.Decimal
	}
	var items []recorded
	for rows.Next() {
		var r recorded
		if err := rows.Scan(&r.productID, &r.quantity, &r.itemCost); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan invoice line: %w", err)
		}
		items = append(items, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating invoice lines: %w", err)
	}

	for _, r := range items {
		if err := s.inventory.ReverseConsumptionTx(ctx, tx, r.productID, r.quantity, r.itemCost); err != nil {
			return err
		}
	}
	return nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	err = tx.QueryRow(ctx,
		"SELECT number FROM invoices WHERE id = $1 FOR UPDATE", invoiceID,
	).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock invoice %d: %w", invoiceID, err)
	}

	if err := s.reverseItemsTx(ctx, tx, invoiceID); err != nil {
		return err
	}

	// Lines and any pending payment go with the header via cascade.
	// TODO: decide whether deleting a credit invoice should also reduce the
	// shop balance; today the balance contribution survives deletion.
	if _, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice deletion: %w", err)
	}

	s.log.Info().Int64("invoice_id", invoiceID).Str("number", number).Msg("invoice deleted")
	return nil
}

const invoiceSelect = `
	SELECT i.id, i.number, i.invoice_date::text, i.shop_id, s.name,
	       i.sub_total, i.total_discount, i.invoice_type, i.invoice_type_percentage,
	       i.cash_discount_enabled, i.cash_discount_percentage,
	       i.net_total, i.total_cost, i.total_profit,
	       i.notes, i.created_by, i.created_at, i.updated_at
	FROM invoices i
	JOIN shops s ON s.id = i.shop_id
`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.InvoiceDate, &inv.ShopID, &inv.ShopName,
		&inv.SubTotal, &inv.TotalDiscount, &inv.InvoiceType, &inv.InvoiceTypePercentage,
		&inv.CashDiscountEnabled, &inv.CashDiscountPercentage,
		&inv.NetTotal, &inv.TotalCost, &inv.TotalProfit,
		&inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, invoiceSelect+" WHERE i.id = $1", invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	items, err := s.fetchItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (s *invoiceService) fetchItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ii.id, ii.invoice_id, ii.product_id, p.name,
		       ii.quantity, ii.selling_price, ii.discount, ii.price,
		       ii.total_price, ii.item_cost, ii.item_profit
		FROM invoice_items ii
		JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.SellingPrice, &it.Discount, &it.Price,
			&it.TotalPrice, &it.ItemCost, &it.ItemProfit,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *invoiceService) ListInvoices(ctx context.Context, q ListQuery) ([]Invoice, int64, error) {
	q = q.Normalize()

	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE (i.number ILIKE $1 OR s.name ILIKE $1)"
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM invoices i JOIN shops s ON s.id = i.shop_id" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	args = append(args, q.PageSize, q.Offset())
	query := invoiceSelect + where + fmt.Sprintf(" ORDER BY i.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range invoices {
		items, err := s.fetchItems(ctx, invoices[i].ID)
		if err != nil {
			return nil, 0, err
		}
		invoices[i].Items = items
	}
	return invoices, total, nil
}
