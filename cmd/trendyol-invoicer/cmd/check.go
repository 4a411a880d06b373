package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/processor"
	"github.com/rezonia/trendyol-invoicer/internal/trendyol"
)

var checkOrdersFile string

var checkCmd = &cobra.Command{
	Use:   "check [order-id]",
	Short: "Preview invoices for an orders snapshot without calling any API",
	Long: `Run the invoicing rules over an orders snapshot (see "fetch") and report, per order,
whether it would be invoiced, skipped or rejected, with the computed and declared totals.

Nothing is issued and no log is written. Orders already recorded in invoice_links.json are
reported as already invoiced.

Examples:
  trendyol-invoicer check
  trendyol-invoicer check 3456789012 -f json
  trendyol-invoicer check --orders-file march.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkOrdersFile, "orders-file", "", "Orders snapshot (default: <data-dir>/orders.json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	c, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.close()

	path := checkOrdersFile
	if path == "" {
		path = c.Files.OrdersSnapshotPath()
	}
	orders, err := trendyol.LoadOrdersFile(path)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", args[0])
		}
		orders = filterOrder(orders, id)
		if len(orders) == 0 {
			return fmt.Errorf("order %d not found in %s", id, path)
		}
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	pipeline, err := processor.NewPipeline(engine,
		processor.WithDryRun(true),
		processor.WithContinueOnError(true),
		processor.WithLedgers(a.invoiceLinks(), nil),
		processor.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := pipeline.Run(ctx, orders)
	if err != nil {
		return err
	}
	return outputReport(report)
}

func filterOrder(orders []model.Order, id int64) []model.Order {
	for _, o := range orders {
		if o.ID == id {
			return []model.Order{o}
		}
	}
	return nil
}
