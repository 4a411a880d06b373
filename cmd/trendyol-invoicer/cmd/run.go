package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/config"
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/processor"
	"github.com/rezonia/trendyol-invoicer/internal/trendyol"
)

var (
	ordersFile      string
	orderStatus     string
	dryRun          bool
	limit           int
	continueOnError bool
	policyName      string
	saveOrders      bool
	metricsFile     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Issue invoices for shipped orders and link them on Trendyol",
	Long: `Fetch orders from Trendyol (or read a snapshot) and, for every eligible order without an
invoice: build the Oblio payload, check its total against the order total, issue the invoice,
check the total Oblio reports, record it in invoice_links.json and send the link to Trendyol.

Orders that already carry an invoice link, or whose invoice is already recorded, are skipped.
Cancelled orders are recorded in cancelled_orders.json. The run stops at the first failed
order unless --continue-on-error is given.

Examples:
  trendyol-invoicer run --dry-run
  trendyol-invoicer run --limit 10
  trendyol-invoicer run --orders-file orders.json --policy v2`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&ordersFile, "orders-file", "", "Read orders from a snapshot instead of the API")
	runCmd.Flags().StringVar(&orderStatus, "status", "", "Only fetch orders with this package status (default: all)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and reconcile invoices without issuing or recording anything")
	runCmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many orders (0 = all)")
	runCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep going after a failed order")
	runCmd.Flags().StringVar(&policyName, "policy", "", "Invoicing policy: v1, v2, v3 (env: INVOICE_POLICY)")
	runCmd.Flags().BoolVar(&saveOrders, "save-orders", false, "Save fetched orders to orders.json")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	var sections []func(*config.Config) interface{}
	if ordersFile == "" || !dryRun {
		sections = append(sections, trendyolSection)
	}
	if !dryRun {
		sections = append(sections, oblioSection)
	}
	c, err := loadConfig(sections...)
	if err != nil {
		return err
	}
	if policyName != "" {
		c.Invoice.Policy = policyName
	}

	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.writeMetrics(metricsFile)

	engine, err := newEngine(c)
	if err != nil {
		return err
	}

	opts := []processor.Option{
		processor.WithLedgers(a.invoiceLinks(), ledger.NewCancelledOrders(c.Files.CancelledOrdersPath())),
		processor.WithLogger(a.logger),
		processor.WithMetrics(a.metrics),
		processor.WithDelay(c.Run.OrderDelay),
		processor.WithDryRun(dryRun),
		processor.WithContinueOnError(continueOnError),
		processor.WithLimit(limit),
	}

	var ty *trendyol.Client
	if ordersFile == "" || !dryRun {
		if ty, err = a.trendyolClient(); err != nil {
			return err
		}
	}
	if !dryRun {
		ob, err := a.oblioClient()
		if err != nil {
			return err
		}
		opts = append(opts, processor.WithIssuer(ob), processor.WithNotifier(ty))
	}

	pipeline, err := processor.NewPipeline(engine, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var orders []model.Order
	if ordersFile != "" {
		orders, err = trendyol.LoadOrdersFile(ordersFile)
	} else {
		orders, err = ty.FetchOrders(ctx, orderStatus)
	}
	if err != nil {
		return err
	}
	printVerbose("Loaded %d orders\n", len(orders))

	if saveOrders && ordersFile == "" {
		if err := trendyol.SaveOrdersFile(c.Files.OrdersSnapshotPath(), orders); err != nil {
			return err
		}
		a.logger.Info("orders snapshot saved", zap.String("path", c.Files.OrdersSnapshotPath()))
	}

	start := time.Now()
	report, runErr := pipeline.Run(ctx, orders)
	a.logger.Info("run completed", zap.String("run_id", report.RunID), zap.Duration("took", time.Since(start)))

	if err := outputReport(report); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run %s stopped: %w", report.RunID, runErr)
	}
	if report.Stats.Failed > 0 {
		return fmt.Errorf("%d orders failed", report.Stats.Failed)
	}
	return nil
}

func newEngine(c *config.Config) (*invoicing.Engine, error) {
	invCfg, err := c.InvoicingConfig()
	if err != nil {
		return nil, err
	}
	return invoicing.NewEngine(invCfg)
}
