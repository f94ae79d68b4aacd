package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"distribution-ledger/internal/core"
)

func init() {
	rootCmd.AddCommand(invoicesCmd, ordersCmd, grnsCmd, paymentsCmd, reportCmd)

	invoicesCmd.AddCommand(invoicesListCmd, invoicesGetCmd, invoicesCreateCmd,
		invoicesUpdateCmd, invoicesDeleteCmd)
	addListFlags(invoicesListCmd)

	ordersCmd.AddCommand(ordersListCmd, ordersGetCmd, ordersCreateCmd,
		ordersUpdateCmd, ordersDeleteCmd, ordersCompleteCmd)
	addListFlags(ordersListCmd)

	grnsCmd.AddCommand(grnsListCmd, grnsGetCmd, grnsCreateCmd, grnsUpdateCmd, grnsDeleteCmd)
	addListFlags(grnsListCmd)

	paymentsCmd.AddCommand(paymentsListCmd, paymentsGetCmd, paymentsPayCmd, paymentsCancelCmd)
	paymentsListCmd.Flags().String("status", "", "pending, partial, completed, cancelled or due")
	paymentsListCmd.Flags().String("search", "", "filter by invoice number or shop name")
	paymentsListCmd.Flags().Int("page", 1, "page number")
	paymentsListCmd.Flags().Int("size", 20, "page size")

	reportCmd.AddCommand(reportSalesCmd, reportReceivablesCmd, reportMovementCmd)
	for _, c := range []*cobra.Command{reportSalesCmd, reportMovementCmd} {
		c.Flags().String("from", "", "start date YYYY-MM-DD")
		c.Flags().String("to", "", "end date YYYY-MM-DD")
	}
}

var invoicesCmd = &cobra.Command{Use: "invoices", Short: "Manage sales invoices"}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.ListInvoices(cmd.Context(), listQueryFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var invoicesGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one invoice with its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		inv, err := svc.GetInvoice(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(inv)
	},
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invoice from a JSON document on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readDocumentInput()
		if err != nil {
			return err
		}
		inv, err := svc.CreateInvoice(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(inv)
	},
}

var invoicesUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace an invoice's lines from a JSON document on stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		in, err := readDocumentInput()
		if err != nil {
			return err
		}
		inv, err := svc.UpdateInvoice(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		return printJSON(inv)
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an invoice, restoring its stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return svc.DeleteInvoice(cmd.Context(), id)
	},
}

var ordersCmd = &cobra.Command{Use: "orders", Short: "Manage sales orders"}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.ListOrders(cmd.Context(), listQueryFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var ordersGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one order with its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		o, err := svc.GetOrder(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(o)
	},
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an order from a JSON document on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readDocumentInput()
		if err != nil {
			return err
		}
		o, err := svc.CreateOrder(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(o)
	},
}

var ordersUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace an order's lines from a JSON document on stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		in, err := readDocumentInput()
		if err != nil {
			return err
		}
		o, err := svc.UpdateOrder(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		return printJSON(o)
	},
}

var ordersDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an order, restoring its stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return svc.DeleteOrder(cmd.Context(), id)
	},
}

var ordersCompleteCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Mark a pending order fulfilled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		o, err := svc.CompleteOrder(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(o)
	},
}

var grnsCmd = &cobra.Command{Use: "grns", Short: "Manage goods-received notes"}

var grnsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List GRNs",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.ListGRNs(cmd.Context(), listQueryFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var grnsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one GRN with its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		g, err := svc.GetGRN(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

var grnsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a goods receipt from a JSON document on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readDocumentInput()
		if err != nil {
			return err
		}
		g, err := svc.CreateGRN(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

var grnsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace a GRN's lines from a JSON document on stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		in, err := readDocumentInput()
		if err != nil {
			return err
		}
		g, err := svc.UpdateGRN(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

var grnsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a GRN, reversing its receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return svc.DeleteGRN(cmd.Context(), id)
	},
}

var paymentsCmd = &cobra.Command{Use: "payments", Short: "Manage pending payments"}

var paymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending payments",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		search, _ := cmd.Flags().GetString("search")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		res, err := svc.ListPayments(cmd.Context(), core.PaymentFilter{
			Status: status, Search: search, Page: page, PageSize: size,
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var paymentsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one pending payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		p, err := svc.GetPayment(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var paymentsPayCmd = &cobra.Command{
	Use:   "pay ID AMOUNT",
	Short: "Apply an incoming payment against a receivable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return err
		}
		p, err := svc.AddPayment(cmd.Context(), id, amount)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var paymentsCancelCmd = &cobra.Command{
	Use:   "cancel ID",
	Short: "Write the unpaid remainder of a receivable off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		p, err := svc.CancelPayment(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var reportCmd = &cobra.Command{Use: "report", Short: "Reporting queries"}

var reportSalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Sales summary over a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		sum, err := svc.GetSalesSummary(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		return printJSON(sum)
	},
}

var reportReceivablesCmd = &cobra.Command{
	Use:   "receivables",
	Short: "Outstanding balances per shop",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := svc.GetReceivables(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var reportMovementCmd = &cobra.Command{
	Use:   "movement",
	Short: "Product stock movement over a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		out, err := svc.GetProductMovement(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}
