package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks order fulfilment.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
)

// PaymentStatus tracks how much of a credit invoice has been settled.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Invoice is a sales invoice header with its line items.
// Monetary totals are derived by the pricing engine and stored; the
// percentage columns snapshot the rates active when the document was written.
type Invoice struct {
	ID                     int64           `json:"id"`
	Number                 string          `json:"number"`
	InvoiceDate            string          `json:"invoice_date"` // YYYY-MM-DD
	ShopID                 int64           `json:"shop_id"`
	ShopName               string          `json:"shop_name"` // joined from shops
	SubTotal               decimal.Decimal `json:"sub_total"`
	TotalDiscount          decimal.Decimal `json:"total_discount"`
	InvoiceType            string          `json:"invoice_type"` // e.g. "credit", "cash"; empty = none selected
	InvoiceTypePercentage  decimal.Decimal `json:"invoice_type_percentage"`
	CashDiscountEnabled    bool            `json:"cash_discount_enabled"`
	CashDiscountPercentage decimal.Decimal `json:"cash_discount_percentage"`
	NetTotal               decimal.Decimal `json:"net_total"`
	TotalCost              decimal.Decimal `json:"total_cost"`
	TotalProfit            decimal.Decimal `json:"total_profit"`
	Notes                  string          `json:"notes"`
	CreatedBy              string          `json:"created_by"`
	Items                  []InvoiceItem   `json:"items"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// IsCredit reports whether this invoice is a credit instrument.
func (inv Invoice) IsCredit() bool { return IsCreditType(inv.InvoiceType) }

// InvoiceItem is one invoice line. SellingPrice and ItemCost are snapshots
// taken at transaction time: later product price changes must not alter
// historical documents.
type InvoiceItem struct {
	ID           int64           `json:"id"`
	InvoiceID    int64           `json:"invoice_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"` // joined from products
	Quantity     int64           `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Discount     decimal.Decimal `json:"discount"`
	Price        decimal.Decimal `json:"price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	ItemCost     decimal.Decimal `json:"item_cost"`
	ItemProfit   decimal.Decimal `json:"item_profit"`
}

// Order is a sales order header. Orders share the invoice pricing model but
// carry a fulfilment status and a per-day document number.
type Order struct {
	ID                     int64           `json:"id"`
	Number                 string          `json:"number"`
	OrderDate              string          `json:"order_date"` // YYYY-MM-DD
	ShopID                 int64           `json:"shop_id"`
	ShopName               string          `json:"shop_name"`
	Status                 OrderStatus     `json:"status"`
	SubTotal               decimal.Decimal `json:"sub_total"`
	TotalDiscount          decimal.Decimal `json:"total_discount"`
	InvoiceType            string          `json:"invoice_type"`
	InvoiceTypePercentage  decimal.Decimal `json:"invoice_type_percentage"`
	CashDiscountEnabled    bool            `json:"cash_discount_enabled"`
	CashDiscountPercentage decimal.Decimal `json:"cash_discount_percentage"`
	NetTotal               decimal.Decimal `json:"net_total"`
	TotalCost              decimal.Decimal `json:"total_cost"`
	TotalProfit            decimal.Decimal `json:"total_profit"`
	Notes                  string          `json:"notes"`
	CreatedBy              string          `json:"created_by"`
	Items                  []OrderItem     `json:"items"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// IsCredit reports whether this order is a credit instrument.
func (o Order) IsCredit() bool { return IsCreditType(o.InvoiceType) }

// OrderItem is one order line, snapshotted like an invoice line.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int64           `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Discount     decimal.Decimal `json:"discount"`
	Price        decimal.Decimal `json:"price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	ItemCost     decimal.Decimal `json:"item_cost"`
	ItemProfit   decimal.Decimal `json:"item_profit"`
}

// GRN is a goods-received note: a supplier delivery that increases stock.
// GRNs run through the same totals engine over cost prices but carry no
// profit figures and no percentage deductions.
type GRN struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	GRNDate       string          `json:"grn_date"` // YYYY-MM-DD
	SupplierID    int64           `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	NetTotal      decimal.Decimal `json:"net_total"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	Notes         string          `json:"notes"`
	CreatedBy     string          `json:"created_by"`
	Items         []GRNItem       `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// GRNItem is one received line. ItemCost records the cost basis this line
// added to stock, so a later edit or delete reverses exactly what was applied.
type GRNItem struct {
	ID          int64           `json:"id"`
	GRNID       int64           `json:"grn_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Discount    decimal.Decimal `json:"discount"`
	Price       decimal.Decimal `json:"price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	ItemCost    decimal.Decimal `json:"item_cost"`
}

// PendingPayment is the receivable record for a credit invoice, one-to-one
// with the invoice for its whole life.
type PendingPayment struct {
	ID              int64           `json:"id"`
	InvoiceID       int64           `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"` // joined from invoices
	ShopID          int64           `json:"shop_id"`
	ShopName        string          `json:"shop_name"` // joined from shops
	NetTotal        decimal.Decimal `json:"net_total"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          PaymentStatus   `json:"payment_status"`
	DueDate         string          `json:"due_date"` // YYYY-MM-DD
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LineInput is the raw line-item input supplied by collaborators.
// A zero UnitPrice means "use the product's current default price"
// (selling price for invoices/orders, cost price for GRNs).
type LineInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// DocumentInput carries the header fields shared by invoice, order and GRN
// create/update requests.
type DocumentInput struct {
	Date                   string          `json:"date"` // YYYY-MM-DD
	CounterpartyID         int64           `json:"counterparty_id"`
	Items                  []LineInput     `json:"items"`
	InvoiceType            string          `json:"invoice_type"`
	InvoiceTypePercentage  decimal.Decimal `json:"invoice_type_percentage"`
	CashDiscountEnabled    bool            `json:"cash_discount_enabled"`
	CashDiscountPercentage *decimal.Decimal `json:"cash_discount_percentage,omitempty"` // nil = use global default
	DueDate                string          `json:"due_date,omitempty"` // overrides date + payment terms
	Notes                  string          `json:"notes"`
	CreatedBy              string          `json:"created_by"`
}
