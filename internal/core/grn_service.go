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

// GRNService handles goods-received notes. A GRN adds stock at the received
// cost price, feeding the weighted-average valuation; editing or deleting one
// reverses exactly the cost basis it recorded, never a recomputed figure.
type GRNService interface {
	CreateGRN(ctx context.Context, in DocumentInput) (*GRN, error)
	UpdateGRN(ctx context.Context, grnID int64, in DocumentInput) (*GRN, error)
	DeleteGRN(ctx context.Context, grnID int64) error
	GetGRN(ctx context.Context, grnID int64) (*GRN, error)
	ListGRNs(ctx context.Context, q ListQuery) ([]GRN, int64, error)
}

type grnService struct {
	pool      *pgxpool.Pool
	inventory InventoryLedger
	sequences SequenceService
	settings  SettingsSource
	log       zerolog.Logger
}

func NewGRNService(pool *pgxpool.Pool, inventory InventoryLedger, sequences SequenceService,
	settings SettingsSource, log zerolog.Logger) GRNService {
	return &grnService{
		pool:      pool,
		inventory: inventory,
		sequences: sequences,
		settings:  settings,
		log:       log,
	}
}

func (s *grnService) CreateGRN(ctx context.Context, in DocumentInput) (*GRN, error) {
	date, err := validateDocumentInput(in)
	if err != nil {
		return nil, err
	}

	settings := s.settings.Snapshot()

	var grnID int64
	err = withNumberRetry(ctx, defaultNumberAttempts, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := supplierExistsTx(ctx, tx, in.CounterpartyID); err != nil {
			return err
		}

		inputs, err := resolveLines(ctx, tx, in.Items, true)
		if err != nil {
			return err
		}
		// Supplier documents take no percentage deductions; the grns table
		// stores no rates, so the net total is the discounted line sum.
		totals := ComputeTotals(inputs, PricingParams{}, settings)

		number, err := s.sequences.NextNumberTx(ctx, tx, GRNFamily, date)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO grns (number, grn_date, supplier_id, sub_total, total_discount,
			                  net_total, total_cost, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
			RETURNING id
		`, number, in.Date, in.CounterpartyID, totals.SubTotal, totals.TotalDiscount,
			totals.NetTotal, in.Notes, in.CreatedBy,
		).Scan(&grnID)
		if err != nil {
			return fmt.Errorf("failed to insert grn: %w", err)
		}

		totalCost, err := s.writeItemsTx(ctx, tx, grnID, totals.Lines)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"UPDATE grns SET total_cost = $1 WHERE id = $2", totalCost, grnID); err != nil {
			return fmt.Errorf("failed to store grn cost total: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit grn: %w", err)
		}

		s.log.Info().Int64("grn_id", grnID).Str("number", number).
			Str("net_total", totals.NetTotal.StringFixed(2)).Msg("grn created")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetGRN(ctx, grnID)
}

// writeItemsTx receives stock per line and inserts the snapshotted items.
// The recorded item cost is quantity times the received cost price, the same
// figure ApplyReceiptTx adds to the valuation.
func (s *grnService) writeItemsTx(ctx context.Context, tx pgx.Tx, grnID int64, lines []PricedLine) (decimal.Decimal, error) {
	var totalCost decimal.Decimal
	for i, pl := range lines {
		if err := s.inventory.ApplyReceiptTx(ctx, tx, pl.ProductID, pl.Quantity, pl.UnitPrice); err != nil {
			return decimal.Zero, err
		}
		itemCost := decimal.NewFromInt(pl.Quantity).Mul(pl.UnitPrice)

		if _, err := tx.Exec(ctx, `
			INSERT INTO grn_items (grn_id, product_id, quantity, cost_price,
			                       discount, price, total_price, item_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, grnID, pl.ProductID, pl.Quantity, pl.UnitPrice,
			pl.Discount, pl.Price, pl.TotalPrice, itemCost); err != nil {
			return decimal.Zero, fmt.Errorf("failed to insert grn line %d: %w", i+1, err)
		}

		totalCost = totalCost.Add(itemCost)
	}
	return totalCost, nil
}

func (s *grnService) UpdateGRN(ctx context.Context, grnID int64, in DocumentInput) (*GRN, error) {
	if _, err := validateDocumentInput(in); err != nil {
		return nil, err
	}

	settings := s.settings.Snapshot()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var supplierID int64
	err = tx.QueryRow(ctx,
		"SELECT supplier_id FROM grns WHERE id = $1 FOR UPDATE", grnID,
	).Scan(&supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("grn %d: %w", grnID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock grn %d: %w", grnID, err)
	}
	if in.CounterpartyID != supplierID {
		return nil, NewValidationError("counterparty_id", "cannot change the supplier of an existing grn")
	}

	// Undo the received stock with recorded costs, then reapply. Reversal
	// may clamp at zero when the received stock was already sold on.
	if err := s.reverseItemsTx(ctx, tx, grnID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM grn_items WHERE grn_id = $1", grnID); err != nil {
		return nil, fmt.Errorf("failed to delete grn lines: %w", err)
	}

	inputs, err := resolveLines(ctx, tx, in.Items, true)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(inputs, PricingParams{}, settings)

	totalCost, err := s.writeItemsTx(ctx, tx, grnID, totals.Lines)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE grns
		SET grn_date = $1, sub_total = $2, total_discount = $3,
		    net_total = $4, total_cost = $5, notes = $6, created_by = $7, updated_at = NOW()
		WHERE id = $8
	`, in.Date, totals.SubTotal, totals.TotalDiscount,
		totals.NetTotal, totalCost, in.Notes, in.CreatedBy, grnID); err != nil {
		return nil, fmt.Errorf("failed to update grn %d: %w", grnID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit grn update: %w", err)
	}

	s.log.Info().Int64("grn_id", grnID).
		Str("net_total", totals.NetTotal.StringFixed(2)).Msg("grn updated")
	return s.GetGRN(ctx, grnID)
}

func (s *grnService) reverseItemsTx(ctx context.Context, tx pgx.Tx, grnID int64) error {
	rows, err := tx.Query(ctx,
		"SELECT product_id, quantity, item_cost FROM grn_items WHERE grn_id = $1", grnID)
	if err != nil {
		return fmt.Errorf("failed to fetch grn lines: %w", err)
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
			return fmt.Errorf("failed to scan grn line: %w", err)
		}
		items = append(items, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating grn lines: %w", err)
	}

	for _, r := range items {
		if err := s.inventory.ReverseReceiptTx(ctx, tx, r.productID, r.quantity, r.itemCost); err != nil {
			return err
		}
	}
	return nil
}

func (s *grnService) DeleteGRN(ctx context.Context, grnID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	err = tx.QueryRow(ctx,
		"SELECT number FROM grns WHERE id = $1 FOR UPDATE", grnID,
	).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("grn %d: %w", grnID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock grn %d: %w", grnID, err)
	}

	if err := s.reverseItemsTx(ctx, tx, grnID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM grns WHERE id = $1", grnID); err != nil {
		return fmt.Errorf("failed to delete grn %d: %w", grnID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit grn deletion: %w", err)
	}

	s.log.Info().Int64("grn_id", grnID).Str("number", number).Msg("grn deleted")
	return nil
}

const grnSelect = `
	SELECT g.id, g.number, g.grn_date::text, g.supplier_id, sp.name,
	       g.sub_total, g.total_discount, g.net_total, g.total_cost,
	       g.notes, g.created_by, g.created_at, g.updated_at
	FROM grns g
	JOIN suppliers sp ON sp.id = g.supplier_id
`

func scanGRN(row pgx.Row) (*GRN, error) {
	var g GRN
	err := row.Scan(
		&g.ID, &g.Number, &g.GRNDate, &g.SupplierID, &g.SupplierName,
		&g.SubTotal, &g.TotalDiscount, &g.NetTotal, &g.TotalCost,
		&g.Notes, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *grnService) GetGRN(ctx context.Context, grnID int64) (*GRN, error) {
	g, err := scanGRN(s.pool.QueryRow(ctx, grnSelect+" WHERE g.id = $1", grnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("grn %d: %w", grnID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch grn %d: %w", grnID, err)
	}

	items, err := s.fetchItems(ctx, grnID)
	if err != nil {
		return nil, err
	}
	g.Items = items
	return g, nil
}

func (s *grnService) fetchItems(ctx context.Context, grnID int64) ([]GRNItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT gi.id, gi.grn_id, gi.product_id, p.name,
		       gi.quantity, gi.cost_price, gi.discount, gi.price,
		       gi.total_price, gi.item_cost
		FROM grn_items gi
		JOIN products p ON p.id = gi.product_id
		WHERE gi.grn_id = $1
		ORDER BY gi.id
	`, grnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grn lines: %w", err)
	}
	defer rows.Close()

	var items []GRNItem
	for rows.Next() {
		var it GRNItem
		if err := rows.Scan(
			&it.ID, &it.GRNID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.CostPrice, &it.Discount, &it.Price,
			&it.TotalPrice, &it.ItemCost,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grn line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *grnService) ListGRNs(ctx context.Context, q ListQuery) ([]GRN, int64, error) {
	q = q.Normalize()

	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE (g.number ILIKE $1 OR sp.name ILIKE $1)"
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM grns g JOIN suppliers sp ON sp.id = g.supplier_id" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count grns: %w", err)
	}

	args = append(args, q.PageSize, q.Offset())
	query := grnSelect + where + fmt.Sprintf(" ORDER BY g.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query grns: %w", err)
	}
	defer rows.Close()

	var grns []GRN
	for rows.Next() {
		g, err := scanGRN(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan grn: %w", err)
		}
		grns = append(grns, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range grns {
		items, err := s.fetchItems(ctx, grns[i].ID)
		if err != nil {
			return nil, 0, err
		}
		grns[i].Items = items
	}
	return grns, total, nil
}
