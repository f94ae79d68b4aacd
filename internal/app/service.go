package app

import (
	"context"

	"distribution-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface UI adapters call. It decouples
// presentation from business logic: implementations contain no output
// formatting of any kind.
type ApplicationService interface {
	// CreateShop registers a new customer shop.
	CreateShop(ctx context.Context, in core.ShopInput) (*core.Shop, error)
	UpdateShop(ctx context.Context, shopID int64, in core.ShopInput) (*core.Shop, error)
	GetShop(ctx context.Context, shopID int64) (*core.Shop, error)
	ListShops(ctx context.Context, q core.ListQuery) (*ShopListResult, error)

	CreateSupplier(ctx context.Context, in core.SupplierInput) (*core.Supplier, error)
	UpdateSupplier(ctx context.Context, supplierID int64, in core.SupplierInput) (*core.Supplier, error)
	GetSupplier(ctx context.Context, supplierID int64) (*core.Supplier, error)
	ListSuppliers(ctx context.Context, q core.ListQuery) (*SupplierListResult, error)

	CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error)
	UpdateProduct(ctx context.Context, productID int64, in core.ProductInput) (*core.Product, error)
	DeactivateProduct(ctx context.Context, productID int64) error
	GetProduct(ctx context.Context, productID int64) (*core.Product, error)
	ListProducts(ctx context.Context, q core.ListQuery) (*ProductListResult, error)
	// GetStockLevels returns active products at or below minimum stock.
	GetStockLevels(ctx context.Context) ([]core.Product, error)

	// CreateInvoice runs the full invoice pipeline: number assignment,
	// pricing, credit gate, stock consumption and receivable creation, all
	// in one transaction.
	CreateInvoice(ctx context.Context, in core.DocumentInput) (*core.Invoice, error)
	UpdateInvoice(ctx context.Context, invoiceID int64, in core.DocumentInput) (*core.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
	GetInvoice(ctx context.Context, invoiceID int64) (*core.Invoice, error)
	ListInvoices(ctx context.Context, q core.ListQuery) (*InvoiceListResult, error)

	CreateOrder(ctx context.Context, in core.DocumentInput) (*core.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, in core.DocumentInput) (*core.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	// CompleteOrder marks a pending order fulfilled.
	CompleteOrder(ctx context.Context, orderID int64) (*core.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*core.Order, error)
	ListOrders(ctx context.Context, q core.ListQuery) (*OrderListResult, error)

	CreateGRN(ctx context.Context, in core.DocumentInput) (*core.GRN, error)
	UpdateGRN(ctx context.Context, grnID int64, in core.DocumentInput) (*core.GRN, error)
	DeleteGRN(ctx context.Context, grnID int64) error
	GetGRN(ctx context.Context, grnID int64) (*core.GRN, error)
	ListGRNs(ctx context.Context, q core.ListQuery) (*GRNListResult, error)

	// AddPayment applies an incoming amount against a pending payment.
	AddPayment(ctx context.Context, paymentID int64, amount decimal.Decimal) (*core.PendingPayment, error)
	// CancelPayment writes the unpaid remainder of a receivable off.
	CancelPayment(ctx context.Context, paymentID int64) (*core.PendingPayment, error)
	GetPayment(ctx context.Context, paymentID int64) (*core.PendingPayment, error)
	ListPayments(ctx context.Context, filter core.PaymentFilter) (*PaymentListResult, error)

	// GetSalesSummary aggregates invoices over an optional date range.
	GetSalesSummary(ctx context.Context, fromDate, toDate string) (*core.SalesSummary, error)
	GetReceivables(ctx context.Context) ([]core.ShopReceivable, error)
	GetProductMovement(ctx context.Context, fromDate, toDate string) ([]core.ProductMovement, error)
}
