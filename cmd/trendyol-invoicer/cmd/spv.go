package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/spv"
)

var spvSeries string

var spvCmd = &cobra.Command{
	Use:   "spv <start> <end>",
	Short: "Send a range of issued invoices to SPV",
	Long: `Send invoices start..end (inclusive) of a series to the national e-invoice system through
Oblio. Both numbers must be greater than MIN_SPV_NUMBER (default 4000). Sending stops at the
first invoice Oblio does not confirm.

Examples:
  trendyol-invoicer spv 4101 4120
  trendyol-invoicer spv 4101 4101 --series BBB`,
	Args: cobra.ExactArgs(2),
	RunE: runSPV,
}

func init() {
	rootCmd.AddCommand(spvCmd)

	spvCmd.Flags().StringVar(&spvSeries, "series", "", "Invoice series (default: SERIES_NAME)")
	spvCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write submission metrics in Prometheus text format")
}

func runSPV(cmd *cobra.Command, args []string) error {
	start, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("start number must be an integer: %q", args[0])
	}
	end, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("end number must be an integer: %q", args[1])
	}

	c, err := loadConfig(oblioSection)
	if err != nil {
		return err
	}
	if err := spv.ValidateRange(start, end, c.Run.MinSPVNumber); err != nil {
		return err
	}
	series := spvSeries
	if series == "" {
		series = c.Invoice.SeriesName
	}

	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.writeMetrics(metricsFile)

	client, err := a.oblioClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Sending invoices %s%d to %s%d to SPV (CIF %s)\n", series, start, series, end, client.CIF())
	summary, submitErr := spv.NewSubmitter(client,
		spv.WithDelay(c.Run.OrderDelay),
		spv.WithLogger(a.logger),
		spv.WithMetrics(a.metrics),
	).Submit(ctx, series, start, end)

	if outputFormat == "json" {
		if err := outputJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		for _, o := range summary.Outcomes {
			status := "SUCCESS"
			if !o.Sent {
				status = "FAILED: " + o.Error.Error()
			}
			fmt.Printf("  %s-%d  %s\n", series, o.Number, status)
		}
		fmt.Printf("\nSent: %d  Failed: %d\n", summary.Sent, summary.Failed)
	}

	return submitErr
}
