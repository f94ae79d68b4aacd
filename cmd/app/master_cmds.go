package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"distribution-ledger/internal/core"
)

func init() {
	rootCmd.AddCommand(shopsCmd, suppliersCmd, productsCmd)

	shopsCmd.AddCommand(shopsListCmd, shopsGetCmd, shopsCreateCmd, shopsUpdateCmd)
	addListFlags(shopsListCmd)
	for _, c := range []*cobra.Command{shopsCreateCmd, shopsUpdateCmd} {
		c.Flags().String("name", "", "shop name")
		c.Flags().String("address", "", "address")
		c.Flags().String("phone", "", "phone number")
		c.Flags().String("credit-limit", "0", "credit limit")
	}

	suppliersCmd.AddCommand(suppliersListCmd, suppliersGetCmd, suppliersCreateCmd, suppliersUpdateCmd)
	addListFlags(suppliersListCmd)
	for _, c := range []*cobra.Command{suppliersCreateCmd, suppliersUpdateCmd} {
		c.Flags().String("name", "", "supplier name")
		c.Flags().String("address", "", "address")
		c.Flags().String("phone", "", "phone number")
	}

	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsCreateCmd,
		productsUpdateCmd, productsDeactivateCmd, productsLowStockCmd)
	addListFlags(productsListCmd)
	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		c.Flags().String("name", "", "product name")
		c.Flags().String("selling-price", "0", "default selling price")
		c.Flags().String("cost-price", "0", "default cost price")
		c.Flags().Int64("min-stock", 0, "minimum stock level")
	}
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	s, _ := cmd.Flags().GetString(name)
	return decimal.NewFromString(s)
}

func shopInputFromFlags(cmd *cobra.Command) (core.ShopInput, error) {
	limit, err := decimalFlag(cmd, "credit-limit")
	if err != nil {
		return core.ShopInput{}, err
	}
	name, _ := cmd.Flags().GetString("name")
	address, _ := cmd.Flags().GetString("address")
	phone, _ := cmd.Flags().GetString("phone")
	return core.ShopInput{Name: name, Address: address, Phone: phone, CreditLimit: limit}, nil
}

var shopsCmd = &cobra.Command{Use: "shops", Short: "Manage customer shops"}

var shopsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shops",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.ListShops(cmd.Context(), listQueryFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var shopsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one shop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		shop, err := svc.GetShop(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(shop)
	},
}

var shopsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a shop",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := shopInputFromFlags(cmd)
		if err != nil {
			return err
		}
		shop, err := svc.CreateShop(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(shop)
	},
}

var shopsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a shop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		in, err := shopInputFromFlags(cmd)
		if err != nil {
			return err
		}
		shop, err := svc.UpdateShop(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		return printJSON(shop)
	},
}

func supplierInputFromFlags(cmd *cobra.Command) core.SupplierInput {
	name, _ := cmd.Flags().GetString("name")
	address, _ := cmd.Flags().GetString("address")
	phone, _ := cmd.Flags().GetString("phone")
	return core.SupplierInput{Name: name, Address: address, Phone: phone}
}

var suppliersCmd = &cobra.Command{Use: "suppliers", Short: "Manage suppliers"}

var suppliersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suppliers",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.ListSuppliers(cmd.Context(), listQueryFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var suppliersGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one supplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		sup, err := svc.GetSupplier(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(sup)
	},
}

var suppliersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a supplier",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := svc.CreateSupplier(cmd.Context(), supplierInputFromFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(sup)
	},
}

var suppliersUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a supplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		sup, err := svc.UpdateSupplier(cmd.Context(), id, supplierInputFromFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(sup)
	},
}

func productInputFromFlags(cmd *cobra.Command) (core.ProductInput, error) {
	selling, err := decimalFlag(cmd, "selling-price")
	if err != nil {
		return core.ProductInput{}, err
	}
	cost, err := decimalFlag(cmd, "cost-price")
	if err != nil {
		return core.ProductInput{}, err
	}
	name, _ := cmd.Flags().GetString("name")
	minStock, _ := cmd.Flags().GetInt64("min-stock")
	return core.ProductInput{Name: name, SellingPrice: selling, CostPrice: cost, MinStock: minStock}, nil
}

var productsCmd = &cobra.Command{Use: "products", Short: "Manage products and stock"}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.ListProducts(cmd.Context(), listQueryFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one product with its valuation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		p, err := svc.GetProduct(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := productInputFromFlags(cmd)
		if err != nil {
			return err
		}
		p, err := svc.CreateProduct(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		in, err := productInputFromFlags(cmd)
		if err != nil {
			return err
		}
		p, err := svc.UpdateProduct(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var productsDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Retire a product from new documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return svc.DeactivateProduct(cmd.Context(), id)
	},
}

var productsLowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List products at or below their minimum stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := svc.GetStockLevels(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(products)
	},
}
