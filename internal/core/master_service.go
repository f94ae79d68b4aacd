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

// ShopInput carries the writable shop fields. BalanceAmount is never written
// directly; only document and payment flows move it.
type ShopInput struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Phone       string          `json:"phone"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

// SupplierInput carries the writable supplier fields.
type SupplierInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ProductInput carries the writable product fields. The valuation pair
// (available_qty, total_cost) is owned by the inventory ledger and never set
// through this service.
type ProductInput struct {
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	MinStock     int64           `json:"min_stock"`
}

// MasterService maintains the registries documents reference: shops,
// suppliers and products.
type MasterService interface {
	CreateShop(ctx context.Context, in ShopInput) (*Shop, error)
	UpdateShop(ctx context.Context, shopID int64, in ShopInput) (*Shop, error)
	GetShop(ctx context.Context, shopID int64) (*Shop, error)
	ListShops(ctx context.Context, q ListQuery) ([]Shop, int64, error)

	CreateSupplier(ctx context.Context, in SupplierInput) (*Supplier, error)
	UpdateSupplier(ctx context.Context, supplierID int64, in SupplierInput) (*Supplier, error)
	GetSupplier(ctx context.Context, supplierID int64) (*Supplier, error)
	ListSuppliers(ctx context.Context, q ListQuery) ([]Supplier, int64, error)

	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, productID int64, in ProductInput) (*Product, error)
	// DeactivateProduct retires a product from new documents while keeping
	// its history intact. Products are never hard-deleted.
	DeactivateProduct(ctx context.Context, productID int64) error
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ListProducts(ctx context.Context, q ListQuery) ([]Product, int64, error)
	// ListLowStock returns active products at or below their minimum stock.
	ListLowStock(ctx context.Context) ([]Product, error)
}

type masterService struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewMasterService(pool *pgxpool.Pool, log zerolog.Logger) MasterService {
	return &masterService{pool: pool, log: log}
}

func (in ShopInput) validate() error {
	if in.Name == "" {
		return NewValidationError("name", "is required")
	}
	if in.CreditLimit.IsNegative() {
		return NewValidationError("credit_limit", "cannot be negative")
	}
	return nil
}

func (s *masterService) CreateShop(ctx context.Context, in ShopInput) (*Shop, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO shops (name, address, phone, credit_limit, balance_amount)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id
	`, in.Name, in.Address, in.Phone, in.CreditLimit).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}

	s.log.Info().Int64("shop_id", id).Str("name", in.Name).Msg("shop created")
	return s.GetShop(ctx, id)
}

func (s *masterService) UpdateShop(ctx context.Context, shopID int64, in ShopInput) (*Shop, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE shops SET name = $1, address = $2, phone = $3, credit_limit = $4
		WHERE id = $5
	`, in.Name, in.Address, in.Phone, in.CreditLimit, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to update shop %d: %w", shopID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("shop %d: %w", shopID, ErrNotFound)
	}
	return s.GetShop(ctx, shopID)
}

func (s *masterService) GetShop(ctx context.Context, shopID int64) (*Shop, error) {
	var sh Shop
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, address, phone, credit_limit, balance_amount, created_at
		FROM shops WHERE id = $1
	`, shopID).Scan(&sh.ID, &sh.Name, &sh.Address, &sh.Phone, &sh.CreditLimit, &sh.BalanceAmount, &sh.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shop %d: %w", shopID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch shop %d: %w", shopID, err)
	}
	return &sh, nil
}

func (s *masterService) ListShops(ctx context.Context, q ListQuery) ([]Shop, int64, error) {
	q = q.Normalize()

	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM shops"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count shops: %w", err)
	}

	args = append(args, q.PageSize, q.Offset())
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, name, address, phone, credit_limit, balance_amount, created_at
		FROM shops %s ORDER BY name LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query shops: %w", err)
	}
	defer rows.Close()

	var shops []Shop
	for rows.Next() {
		var sh Shop
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Address, &sh.Phone, &sh.CreditLimit, &sh.BalanceAmount, &sh.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan shop: %w", err)
		}
		shops = append(shops, sh)
	}
	return shops, total, rows.Err()
}

func (in SupplierInput) validate() error {
	if in.Name == "" {
		return NewValidationError("name", "is required")
	}
	return nil
}

func (s *masterService) CreateSupplier(ctx context.Context, in SupplierInput) (*Supplier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, phone, address)
		VALUES ($1, $2, $3)
		RETURNING id
	`, in.Name, in.Phone, in.Address).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	s.log.Info().Int64("supplier_id", id).Str("name", in.Name).Msg("supplier created")
	return s.GetSupplier(ctx, id)
}

func (s *masterService) UpdateSupplier(ctx context.Context, supplierID int64, in SupplierInput) (*Supplier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx,
		"UPDATE suppliers SET name = $1, phone = $2, address = $3 WHERE id = $4",
		in.Name, in.Phone, in.Address, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to update supplier %d: %w", supplierID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("supplier %d: %w", supplierID, ErrNotFound)
	}
	return s.GetSupplier(ctx, supplierID)
}

func (s *masterService) GetSupplier(ctx context.Context, supplierID int64) (*Supplier, error) {
	var sp Supplier
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, phone, address, created_at FROM suppliers WHERE id = $1",
		supplierID).Scan(&sp.ID, &sp.Name, &sp.Phone, &sp.Address, &sp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", supplierID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch supplier %d: %w", supplierID, err)
	}
	return &sp, nil
}

func (s *masterService) ListSuppliers(ctx context.Context, q ListQuery) ([]Supplier, int64, error) {
	q = q.Normalize()

	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM suppliers"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count suppliers: %w", err)
	}

	args = append(args, q.PageSize, q.Offset())
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, name, phone, address, created_at
		FROM suppliers %s ORDER BY name LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sp Supplier
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Phone, &sp.Address, &sp.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, sp)
	}
	return suppliers, total, rows.Err()
}

func (in ProductInput) validate() error {
	if in.Name == "" {
		return NewValidationError("name", "is required")
	}
	if in.SellingPrice.IsNegative() {
		return NewValidationError("selling_price", "cannot be negative")
	}
	if in.CostPrice.IsNegative() {
		return NewValidationError("cost_price", "cannot be negative")
	}
	if in.MinStock < 0 {
		return NewValidationError("min_stock", "cannot be negative")
	}
	return nil
}

func (s *masterService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, selling_price, cost_price, available_qty, total_cost, min_stock, is_active)
		VALUES ($1, $2, $3, 0, 0, $4, true)
		RETURNING id
	`, in.Name, in.SellingPrice, in.CostPrice, in.MinStock).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.log.Info().Int64("product_id", id).Str("name", in.Name).Msg("product created")
	return s.GetProduct(ctx, id)
}

func (s *masterService) UpdateProduct(ctx context.Context, productID int64, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, selling_price = $2, cost_price = $3, min_stock = $4, updated_at = NOW()
		WHERE id = $5
	`, in.Name, in.SellingPrice, in.CostPrice, in.MinStock, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return s.GetProduct(ctx, productID)
}

func (s *masterService) DeactivateProduct(ctx context.Context, productID int64) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1", productID)
	if err != nil {
		return fmt.Errorf("failed to deactivate product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	s.log.Info().Int64("product_id", productID).Msg("product deactivated")
	return nil
}

const productSelect = `
	SELECT id, name, selling_price, cost_price, available_qty, total_cost, min_stock, is_active, created_at
	FROM products
`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SellingPrice, &p.CostPrice,
		&p.AvailableQty, &p.TotalCost, &p.MinStock, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *masterService) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, productSelect+" WHERE id = $1", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return p, nil
}

func (s *masterService) ListProducts(ctx context.Context, q ListQuery) ([]Product, int64, error) {
	q = q.Normalize()

	where := ""
	var args []any
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args = append(args, q.PageSize, q.Offset())
	rows, err := s.pool.Query(ctx,
		productSelect+where+fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (s *masterService) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		productSelect+" WHERE is_active = true AND available_qty <= min_stock ORDER BY available_qty, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query low-stock products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
