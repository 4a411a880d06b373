package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/model"
)

var linksOrderID int64

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List issued invoices and their links",
	Long: `List the invoices recorded in invoice_links.json.

Examples:
  trendyol-invoicer links
  trendyol-invoicer links --order 3456789012 -f json`,
	Args: cobra.NoArgs,
	RunE: runLinks,
}

func init() {
	rootCmd.AddCommand(linksCmd)

	linksCmd.Flags().Int64Var(&linksOrderID, "order", 0, "Only show the invoice of this order")
}

func runLinks(cmd *cobra.Command, args []string) error {
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

	var entries []model.InvoiceLinkEntry
	if linksOrderID != 0 {
		entry, found, err := a.invoiceLinks().Find(strconv.FormatInt(linksOrderID, 10))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no invoice recorded for order %d", linksOrderID)
		}
		entries = []model.InvoiceLinkEntry{entry}
	} else {
		entries, err = a.invoiceLinks().Entries()
		if err != nil {
			return err
		}
	}

	if outputFormat == "json" {
		if entries == nil {
			entries = []model.InvoiceLinkEntry{}
		}
		return outputJSON(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("No invoice links found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tINVOICE\tTOTAL (RON)\tCREATED\tLINK")
	fmt.Fprintln(tw, "-----\t-------\t-----------\t-------\t----")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\t%s\n",
			e.OrderID,
			e.InvoiceSeries,
			e.InvoiceNumber,
			e.TotalAmount.StringFixed(2),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.InvoiceLink,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d invoices\n", len(entries))
	return nil
}
