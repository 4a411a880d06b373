package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/trendyol"
)

var (
	fetchOutput string
	fetchStatus string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Save Trendyol orders to a snapshot file",
	Long: `Fetch every order page from Trendyol and save the orders to a JSON snapshot that
"check" and "run --orders-file" can read.

Examples:
  trendyol-invoicer fetch
  trendyol-invoicer fetch --status Delivered -o delivered.json`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Snapshot file (default: <data-dir>/orders.json)")
	fetchCmd.Flags().StringVar(&fetchStatus, "status", "", "Only fetch orders with this package status (default: all)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(trendyolSection)
	if err != nil {
		return err
	}

	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.trendyolClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	orders, err := client.FetchOrders(ctx, fetchStatus)
	if err != nil {
		return err
	}

	path := fetchOutput
	if path == "" {
		path = c.Files.OrdersSnapshotPath()
	}
	if err := trendyol.SaveOrdersFile(path, orders); err != nil {
		return err
	}

	fmt.Printf("Saved %d orders to %s\n", len(orders), path)
	return nil
}
