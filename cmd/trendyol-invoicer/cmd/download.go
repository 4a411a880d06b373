package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/download"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download issued invoice PDFs",
	Long: `Download the PDF of every invoice in invoice_links.json into a dated folder
(downloaded_invoices_YYYY-MM-DD) in the data directory.

Only the newest link per invoice number is used. Invoices already in
downloaded_invoices_log.json, or numbered at or below the last downloaded one, are skipped.
Files named Trendyol_Factura_<number>.pdf that already exist are recorded without downloading.

Examples:
  trendyol-invoicer download
  trendyol-invoicer download --data-dir ./state -v`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.close()

	downloader := download.NewDownloader(
		a.invoiceLinks(),
		ledger.NewDownloads(c.Files.DownloadsPath()),
		a.httpClient("oblio-docs"),
		c.Files.DataDir,
		download.WithDelay(c.Run.DownloadDelay),
		download.WithLogger(a.logger),
	)

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := downloader.Run(ctx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), summary)
	}
	fmt.Printf("Folder:          %s\n", summary.Folder)
	fmt.Printf("Links:           %d (%d unique)\n", summary.TotalLinks, summary.Unique)
	fmt.Printf("Last downloaded: %d\n", summary.LastDownloaded)
	fmt.Printf("Candidates:      %d\n", summary.Candidates)
	fmt.Printf("Downloaded:      %d\n", summary.Downloaded)
	fmt.Printf("Already present: %d\n", summary.Skipped)
	fmt.Printf("Failed:          %d\n", summary.Failed)

	if summary.Failed > 0 {
		return fmt.Errorf("%d downloads failed", summary.Failed)
	}
	return nil
}
