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

// OrderService handles sales orders. An order reserves stock the moment it is
// created and passes the same credit gate as an invoice, but it never touches
// the shop balance or the receivables ledger; that happens when the sale is
// invoiced.
type OrderService interface {
	CreateOrder(ctx context.Context, in DocumentInput) (*Order, error)
	// UpdateOrder rewrites a pending order's header and lines. The assigned
	// number is permanent: moving the order date to another day keeps the
	// original per-day number, and numbers are never reissued.
	UpdateOrder(ctx context.Context, orderID int64, in DocumentInput) (*Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	// CompleteOrder marks a pending order fulfilled. Completed orders are
	// immutable.
	CompleteOrder(ctx context.Context, orderID int64) (*Order, error)
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	ListOrders(ctx context.Context, q ListQuery) ([]Order, int64, error)
}

type orderService struct {
	pool      *pgxpool.Pool
	inventory InventoryLedger
	sequences SequenceService
	gate      *CreditGate
	settings  SettingsSource
	log       zerolog.Logger
}

func NewOrderService(pool *pgxpool.Pool, inventory InventoryLedger, sequences SequenceService,
	gate *CreditGate, settings SettingsSource, log zerolog.Logger) OrderService {
	return &orderService{
		pool:      pool,
		inventory: inventory,
		sequences: sequences,
		gate:      gate,
		settings:  settings,
		log:       log,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in DocumentInput) (*Order, error) {
	date, err := validateDocumentInput(in)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.CheckAvailability(ctx, aggregateRequirements(in.Items), nil); err != nil {
		return nil, err
	}

	settings := s.settings.Snapshot()

	var orderID int64
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

		number, err := s.sequences.NextNumberTx(ctx, tx, OrderFamily, date)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO orders (number, order_date, shop_id, status, sub_total, total_discount,
			                    invoice_type, invoice_type_percentage,
			                    cash_discount_enabled, cash_discount_percentage,
			                    net_total, total_cost, total_profit, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, 0, $12, $13)
			RETURNING id
		`, number, in.Date, shop.ID, string(OrderPending), totals.SubTotal, totals.TotalDiscount,
			in.InvoiceType, in.InvoiceTypePercentage,
			in.CashDiscountEnabled, totals.CashDiscountPercentage,
			totals.NetTotal, in.Notes, in.CreatedBy,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		totalCost, totalProfit, err := s.writeItemsTx(ctx, tx, orderID, totals.Lines)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"UPDATE orders SET total_cost = $1, total_profit = $2 WHERE id = $3",
			totalCost, totalProfit, orderID); err != nil {
			return fmt.Errorf("failed to store order cost totals: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit order: %w", err)
		}

		s.log.Info().Int64("order_id", orderID).Str("number", number).
			Str("net_total", totals.NetTotal.StringFixed(2)).Msg("order created")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

func (s *orderService) writeItemsTx(ctx context.Context, tx pgx.Tx, orderID int64, lines []PricedLine) (decimal.Decimal, decimal.Decimal, error) {
	var totalCost, totalProfit decimal.Decimal
	for i, pl := range lines {
		itemCost, err := s.inventory.ApplyConsumptionTx(ctx, tx, pl.ProductID, pl.Quantity)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		itemProfit := LineProfit(pl, itemCost)

		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, selling_price,
			                         discount, price, total_price, item_cost, item_profit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, orderID, pl.ProductID, pl.Quantity, pl.UnitPrice,
			pl.Discount, pl.Price, pl.TotalPrice, itemCost, itemProfit); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to insert order line %d: %w", i+1, err)
		}

		totalCost = totalCost.Add(itemCost)
		totalProfit = totalProfit.Add(itemProfit)
	}
	return totalCost, totalProfit, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, orderID int64, in DocumentInput) (*Order, error) {
	if _, err := validateDocumentInput(in); err != nil {
		return nil, err
	}

	old, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if old.Status == OrderCompleted {
		return nil, NewValidationError("status", "completed orders cannot be modified")
	}
	if in.CounterpartyID != old.ShopID {
		return nil, NewValidationError("counterparty_id", "cannot change the shop of an existing order")
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
	var status string
	err = tx.QueryRow(ctx,
		"SELECT shop_id, status FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&shopID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	if OrderStatus(status) == OrderCompleted {
		return nil, NewValidationError("status", "completed orders cannot be modified")
	}

	shop, err := lockShopTx(ctx, tx, shopID)
	if err != nil {
		return nil, err
	}

	if err := s.reverseItemsTx(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID); err != nil {
		return nil, fmt.Errorf("failed to delete order lines: %w", err)
	}

	inputs, err := resolveLines(ctx, tx, in.Items, false)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(inputs, pricingParamsFor(in), settings)

	// Orders never contribute to the shop balance, so there is no prior
	// exposure to credit back when re-gating.
	if err := s.gate.CheckTx(ctx, tx, shop, totals.NetTotal, decimal.Zero, in.InvoiceType); err != nil {
		return nil, err
	}

	totalCost, totalProfit, err := s.writeItemsTx(ctx, tx, orderID, totals.Lines)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET order_date = $1, sub_total = $2, total_discount = $3,
		    invoice_type = $4, invoice_type_percentage = $5,
		    cash_discount_enabled = $6, cash_discount_percentage = $7,
		    net_total = $8, total_cost = $9, total_profit = $10,
		    notes = $11, created_by = $12, updated_at = NOW()
		WHERE id = $13
	`, in.Date, totals.SubTotal, totals.TotalDiscount,
		in.InvoiceType, in.InvoiceTypePercentage,
		in.CashDiscountEnabled, totals.CashDiscountPercentage,
		totals.NetTotal, totalCost, totalProfit,
		in.Notes, in.CreatedBy, orderID); err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order update: %w", err)
	}

	s.log.Info().Int64("order_id", orderID).
		Str("net_total", totals.NetTotal.StringFixed(2)).Msg("order updated")
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) reverseItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	rows, err := tx.Query(ctx,
		"SELECT product_id, quantity, item_cost FROM order_items WHERE order_id = $1",
		orderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order lines: %w", err)
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
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		items = append(items, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order lines: %w", err)
	}

	for _, r := range items {
		if err := s.inventory.ReverseConsumptionTx(ctx, tx, r.productID, r.quantity, r.itemCost); err != nil {
			return err
		}
	}
	return nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	err = tx.QueryRow(ctx,
		"SELECT number FROM orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}

	if err := s.reverseItemsTx(ctx, tx, orderID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order deletion: %w", err)
	}

	s.log.Info().Int64("order_id", orderID).Str("number", number).Msg("order deleted")
	return nil
}

func (s *orderService) CompleteOrder(ctx context.Context, orderID int64) (*Order, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, string(OrderCompleted), orderID, string(OrderPending))
	if err != nil {
		return nil, fmt.Errorf("failed to complete order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetOrder(ctx, orderID); err != nil {
			return nil, err
		}
		return nil, NewValidationError("status", "order is not pending")
	}

	s.log.Info().Int64("order_id", orderID).Msg("order completed")
	return s.GetOrder(ctx, orderID)
}

const orderSelect = `
	SELECT o.id, o.number, o.order_date::text, o.shop_id, s.name, o.status,
	       o.sub_total, o.total_discount, o.invoice_type, o.invoice_type_percentage,
	       o.cash_discount_enabled, o.cash_discount_percentage,
	       o.net_total, o.total_cost, o.total_profit,
	       o.notes, o.created_by, o.created_at, o.updated_at
	FROM orders o
	JOIN shops s ON s.id = o.shop_id
`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	err := row.Scan(
		&o.ID, &o.Number, &o.OrderDate, &o.ShopID, &o.ShopName, &status,
		&o.SubTotal, &o.TotalDiscount, &o.InvoiceType, &o.InvoiceTypePercentage,
		&o.CashDiscountEnabled, &o.CashDiscountPercentage,
		&o.NetTotal, &o.TotalCost, &o.TotalProfit,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, orderSelect+" WHERE o.id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	items, err := s.fetchItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *orderService) fetchItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name,
		       oi.quantity, oi.selling_price, oi.discount, oi.price,
		       oi.total_price, oi.item_cost, oi.item_profit
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.SellingPrice, &it.Discount, &it.Price,
			&it.TotalPrice, &it.ItemCost, &it.ItemProfit,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *orderService) ListOrders(ctx context.Context, q ListQuery) ([]Order, int64, error) {
	q = q.Normalize()

	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE (o.number ILIKE $1 OR s.name ILIKE $1)"
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM orders o JOIN shops s ON s.id = o.shop_id" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	args = append(args, q.PageSize, q.Offset())
	query := orderSelect + where + fmt.Sprintf(" ORDER BY o.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		items, err := s.fetchItems(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}
	return orders, total, nil
}
