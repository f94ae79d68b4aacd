package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop represents a customer shop. BalanceAmount is the outstanding
// receivable owed by the shop: credit invoices raise it, payments lower it.
type Shop struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AvailableCredit is the headroom left before the shop hits its limit.
func (s Shop) AvailableCredit() decimal.Decimal {
	return s.CreditLimit.Sub(s.BalanceAmount)
}

// Supplier represents a goods supplier referenced by GRNs.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Product carries the stock valuation pair: AvailableQty units on hand and
// TotalCost, the cumulative cost basis of that stock. TotalCost/AvailableQty
// is the current weighted-average unit cost.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	AvailableQty int64           `json:"available_qty"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	MinStock     int64           `json:"min_stock"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UnitCost returns the weighted-average unit cost, or zero when no stock is
// on hand (the valuation is undefined at zero quantity).
func (p Product) UnitCost() decimal.Decimal {
	if p.AvailableQty <= 0 {
		return decimal.Zero
	}
	return p.TotalCost.Div(decimal.NewFromInt(p.AvailableQty))
}

// SettingsSnapshot pins the global defaults that were in force when a
// document was priced. Passing it per call keeps historical documents on the
// percentage that was active at their creation time.
type SettingsSnapshot struct {
	CashDiscountPercent decimal.Decimal
	PaymentTermDays     int
}

// SettingsSource supplies the current settings snapshot to orchestrators.
type SettingsSource interface {
	Snapshot() SettingsSnapshot
}

// StaticSettings is a fixed SettingsSource, used by tests and one-shot tools.
type StaticSettings SettingsSnapshot

func (s StaticSettings) Snapshot() SettingsSnapshot { return SettingsSnapshot(s) }

// ListQuery selects a page of documents, optionally narrowed by a free-text
// search over the document number and counterparty name.
type ListQuery struct {
	Search   string
	Page     int
	PageSize int
}

const defaultPageSize = 20

// Normalize clamps paging values to sane bounds.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	return q
}

// Offset returns the SQL offset for the normalized query.
func (q ListQuery) Offset() int {
	n := q.Normalize()
	return (n.Page - 1) * n.PageSize
}
