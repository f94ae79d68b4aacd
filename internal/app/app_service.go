package app

import (
	"context"

	"distribution-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type appService struct {
	master    core.MasterService
	invoices  core.InvoiceService
	orders    core.OrderService
	grns      core.GRNService
	payments  core.PaymentService
	reporting core.ReportingService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	master core.MasterService,
	invoices core.InvoiceService,
	orders core.OrderService,
	grns core.GRNService,
	payments core.PaymentService,
	reporting core.ReportingService,
) ApplicationService {
	return &appService{
		master:    master,
		invoices:  invoices,
		orders:    orders,
		grns:      grns,
		payments:  payments,
		reporting: reporting,
	}
}

func (s *appService) CreateShop(ctx context.Context, in core.ShopInput) (*core.Shop, error) {
	return s.master.CreateShop(ctx, in)
}

func (s *appService) UpdateShop(ctx context.Context, shopID int64, in core.ShopInput) (*core.Shop, error) {
	return s.master.UpdateShop(ctx, shopID, in)
}

func (s *appService) GetShop(ctx context.Context, shopID int64) (*core.Shop, error) {
	return s.master.GetShop(ctx, shopID)
}

func (s *appService) ListShops(ctx context.Context, q core.ListQuery) (*ShopListResult, error) {
	shops, total, err := s.master.ListShops(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ShopListResult{Shops: shops, Total: total}, nil
}

func (s *appService) CreateSupplier(ctx context.Context, in core.SupplierInput) (*core.Supplier, error) {
	return s.master.CreateSupplier(ctx, in)
}

func (s *appService) UpdateSupplier(ctx context.Context, supplierID int64, in core.SupplierInput) (*core.Supplier, error) {
	return s.master.UpdateSupplier(ctx, supplierID, in)
}

func (s *appService) GetSupplier(ctx context.Context, supplierID int64) (*core.Supplier, error) {
	return s.master.GetSupplier(ctx, supplierID)
}

func (s *appService) ListSuppliers(ctx context.Context, q core.ListQuery) (*SupplierListResult, error) {
	suppliers, total, err := s.master.ListSuppliers(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers, Total: total}, nil
}

func (s *appService) CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error) {
	return s.master.CreateProduct(ctx, in)
}

func (s *appService) UpdateProduct(ctx context.Context, productID int64, in core.ProductInput) (*core.Product, error) {
	return s.master.UpdateProduct(ctx, productID, in)
}

func (s *appService) DeactivateProduct(ctx context.Context, productID int64) error {
	return s.master.DeactivateProduct(ctx, productID)
}

func (s *appService) GetProduct(ctx context.Context, productID int64) (*core.Product, error) {
	return s.master.GetProduct(ctx, productID)
}

func (s *appService) ListProducts(ctx context.Context, q core.ListQuery) (*ProductListResult, error) {
	products, total, err := s.master.ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products, Total: total}, nil
}

func (s *appService) GetStockLevels(ctx context.Context) ([]core.Product, error) {
	return s.master.ListLowStock(ctx)
}

func (s *appService) CreateInvoice(ctx context.Context, in core.DocumentInput) (*core.Invoice, error) {
	return s.invoices.CreateInvoice(ctx, in)
}

func (s *appService) UpdateInvoice(ctx context.Context, invoiceID int64, in core.DocumentInput) (*core.Invoice, error) {
	return s.invoices.UpdateInvoice(ctx, invoiceID, in)
}

func (s *appService) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	return s.invoices.DeleteInvoice(ctx, invoiceID)
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int64) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, q core.ListQuery) (*InvoiceListResult, error) {
	invoices, total, err := s.invoices.ListInvoices(ctx, q)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices, Total: total}, nil
}

func (s *appService) CreateOrder(ctx context.Context, in core.DocumentInput) (*core.Order, error) {
	return s.orders.CreateOrder(ctx, in)
}

func (s *appService) UpdateOrder(ctx context.Context, orderID int64, in core.DocumentInput) (*core.Order, error) {
	return s.orders.UpdateOrder(ctx, orderID, in)
}

func (s *appService) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.orders.DeleteOrder(ctx, orderID)
}

func (s *appService) CompleteOrder(ctx context.Context, orderID int64) (*core.Order, error) {
	return s.orders.CompleteOrder(ctx, orderID)
}

func (s *appService) GetOrder(ctx context.Context, orderID int64) (*core.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

func (s *appService) ListOrders(ctx context.Context, q core.ListQuery) (*OrderListResult, error) {
	orders, total, err := s.orders.ListOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders, Total: total}, nil
}

func (s *appService) CreateGRN(ctx context.Context, in core.DocumentInput) (*core.GRN, error) {
	return s.grns.CreateGRN(ctx, in)
}

func (s *appService) UpdateGRN(ctx context.Context, grnID int64, in core.DocumentInput) (*core.GRN, error) {
	return s.grns.UpdateGRN(ctx, grnID, in)
}

func (s *appService) DeleteGRN(ctx context.Context, grnID int64) error {
	return s.grns.DeleteGRN(ctx, grnID)
}

func (s *appService) GetGRN(ctx context.Context, grnID int64) (*core.GRN, error) {
	return s.grns.GetGRN(ctx, grnID)
}

func (s *appService) ListGRNs(ctx context.Context, q core.ListQuery) (*GRNListResult, error) {
	grns, total, err := s.grns.ListGRNs(ctx, q)
	if err != nil {
		return nil, err
	}
	return &GRNListResult{GRNs: grns, Total: total}, nil
}

func (s *appService) AddPayment(ctx context.Context, paymentID int64, amount decimal.Decimal) (*core.PendingPayment, error) {
	return s.payments.AddPayment(ctx, paymentID, amount)
}

func (s *appService) CancelPayment(ctx context.Context, paymentID int64) (*core.PendingPayment, error) {
	return s.payments.CancelPayment(ctx, paymentID)
}

func (s *appService) GetPayment(ctx context.Context, paymentID int64) (*core.PendingPayment, error) {
	return s.payments.GetPayment(ctx, paymentID)
}

func (s *appService) ListPayments(ctx context.Context, filter core.PaymentFilter) (*PaymentListResult, error) {
	payments, total, err := s.payments.ListPayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments, Total: total}, nil
}

func (s *appService) GetSalesSummary(ctx context.Context, fromDate, toDate string) (*core.SalesSummary, error) {
	return s.reporting.GetSalesSummary(ctx, fromDate, toDate)
}

func (s *appService) GetReceivables(ctx context.Context) ([]core.ShopReceivable, error) {
	return s.reporting.GetReceivables(ctx)
}

func (s *appService) GetProductMovement(ctx context.Context, fromDate, toDate string) ([]core.ProductMovement, error) {
	return s.reporting.GetProductMovement(ctx, fromDate, toDate)
}
