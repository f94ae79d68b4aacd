package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"distribution-ledger/internal/app"
	"distribution-ledger/internal/config"
	"distribution-ledger/internal/core"
	"distribution-ledger/internal/db"
	"distribution-ledger/internal/logger"
)

var (
	pool *pgxpool.Pool
	svc  app.ApplicationService
)

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Transactional inventory and billing ledger",
	Long: `Back-office ledger for a retail distributor: shops, suppliers,
products, goods-received notes, sales orders, invoices and pending payments.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}

		pool, err = db.NewPool(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}

		inventory := core.NewInventoryLedger(pool, logger.WithComponent("inventory"))
		sequences := core.NewSequenceService()
		payments := core.NewPaymentService(pool)
		gate := core.NewCreditGate()
		settings := cfg.Settings()

		master := core.NewMasterService(pool, logger.WithComponent("master"))
		invoices := core.NewInvoiceService(pool, inventory, sequences, payments, gate, settings, logger.WithComponent("invoices"))
		orders := core.NewOrderService(pool, inventory, sequences, gate, settings, logger.WithComponent("orders"))
		grns := core.NewGRNService(pool, inventory, sequences, settings, logger.WithComponent("grns"))
		reporting := core.NewReportingService(pool)

		svc = app.NewAppService(master, invoices, orders, grns, payments, reporting)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pool != nil {
			pool.Close()
		}
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// printJSON renders any result on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readDocumentInput decodes a document request from stdin.
func readDocumentInput() (core.DocumentInput, error) {
	var in core.DocumentInput
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		return in, fmt.Errorf("invalid JSON on stdin: %w", err)
	}
	return in, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func listQueryFlags(cmd *cobra.Command) core.ListQuery {
	search, _ := cmd.Flags().GetString("search")
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")
	return core.ListQuery{Search: search, Page: page, PageSize: size}
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "filter by number or name")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("size", 20, "page size")
}
