package app

import "distribution-ledger/internal/core"

// List results pair one page of records with the total match count so
// adapters can render pagination.

type ShopListResult struct {
	Shops []core.Shop `json:"shops"`
	Total int64       `json:"total"`
}

type SupplierListResult struct {
	Suppliers []core.Supplier `json:"suppliers"`
	Total     int64           `json:"total"`
}

type ProductListResult struct {
	Products []core.Product `json:"products"`
	Total    int64          `json:"total"`
}

type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
	Total    int64          `json:"total"`
}

type OrderListResult struct {
	Orders []core.Order `json:"orders"`
	Total  int64        `json:"total"`
}

type GRNListResult struct {
	GRNs  []core.GRN `json:"grns"`
	Total int64      `json:"total"`
}

type PaymentListResult struct {
	Payments []core.PendingPayment `json:"payments"`
	Total    int64                 `json:"total"`
}
